// Package store implements the durable, typed key-value back-end of
// spec.md §4.9: atomic multi-put across namespaces, backed by an embedded
// LSM engine (github.com/syndtr/goleveldb), as the go-ethereum-family repos
// in the corpus do for their chain databases.
package store

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Namespace tags a key with the logical table it belongs to, per the list in
// spec.md §4.9.
type Namespace string

const (
	NSBlocksByHash   Namespace = "blocks:by_hash"
	NSBlocksByHeight Namespace = "blocks:by_height"
	NSAccounts       Namespace = "accounts"
	NSCode           Namespace = "code"
	NSStorage        Namespace = "storage"
	NSReceipts       Namespace = "receipts:by_tx_hash"
	NSSnapshots      Namespace = "snapshots:by_height"
	NSMeta           Namespace = "meta"
)

// Store is the durable back-end: a single LevelDB handle with namespace
// prefixing, exposing put/get/delete/batch_write/iterate_range/close exactly
// as spec.md §4.9 requires.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the LevelDB database rooted at dir —
// data_dir from the configuration table, spec.md §6.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open durable store at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close durable store: %w", err)
	}
	return nil
}

func namespacedKey(ns Namespace, key []byte) []byte {
	out := make([]byte, 0, len(ns)+1+len(key))
	out = append(out, ns...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

// Put writes value under (ns, key).
func (s *Store) Put(ns Namespace, key, value []byte) error {
	if err := s.db.Put(namespacedKey(ns, key), value, nil); err != nil {
		return fmt.Errorf("put %s/%x: %w", ns, key, err)
	}
	return nil
}

// Get reads the value at (ns, key); ok is false if absent.
func (s *Store) Get(ns Namespace, key []byte) (value []byte, ok bool, err error) {
	v, err := s.db.Get(namespacedKey(ns, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%x: %w", ns, key, err)
	}
	return v, true, nil
}

// Delete removes the value at (ns, key), if present.
func (s *Store) Delete(ns Namespace, key []byte) error {
	if err := s.db.Delete(namespacedKey(ns, key), nil); err != nil {
		return fmt.Errorf("delete %s/%x: %w", ns, key, err)
	}
	return nil
}

// Write is one entry of an atomic batch: Delete true removes Key from NS,
// otherwise Value is written.
type Write struct {
	NS     Namespace
	Key    []byte
	Value  []byte
	Delete bool
}

// BatchWrite applies all writes atomically: either every entry becomes
// visible, or none do, per spec.md §4.9/§5 (the writer uses this to make a
// block, its receipts, and its mutated accounts visible together).
func (s *Store) BatchWrite(writes []Write) error {
	batch := new(leveldb.Batch)
	for _, w := range writes {
		k := namespacedKey(w.NS, w.Key)
		if w.Delete {
			batch.Delete(k)
		} else {
			batch.Put(k, w.Value)
		}
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("atomic batch write (%d entries): %w", len(writes), err)
	}
	return nil
}

// IterateRange calls fn for every key in ns with the namespace prefix
// stripped, in ascending key order, stopping early if fn returns false.
func (s *Store) IterateRange(ns Namespace, fn func(key, value []byte) bool) error {
	prefix := append([]byte(ns), ':')
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()[len(prefix):]
		if !fn(key, iter.Value()) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterate %s: %w", ns, err)
	}
	return nil
}
