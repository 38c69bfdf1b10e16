package store

import (
	"encoding/binary"
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
)

// heightKey encodes a block height as a fixed-width big-endian key so
// lexical LevelDB ordering matches numeric ordering.
func heightKey(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return buf[:]
}

// PutSnapshot records the state root computed after committing the block at
// height, per spec.md §4.9's "every 1,000 blocks" rule (the caller decides
// cadence; this just persists whatever root it is given).
func (s *Store) PutSnapshot(height uint64, root cryptoutil.Hash) error {
	if err := s.Put(NSSnapshots, heightKey(height), root.Bytes()); err != nil {
		return fmt.Errorf("put snapshot at height %d: %w", height, err)
	}
	return nil
}

// LatestSnapshot scans for the highest recorded snapshot at or below maxHeight.
func (s *Store) LatestSnapshot(maxHeight uint64) (height uint64, root cryptoutil.Hash, found bool, err error) {
	err = s.IterateRange(NSSnapshots, func(key, value []byte) bool {
		h := binary.BigEndian.Uint64(key)
		if h > maxHeight {
			return true
		}
		if !found || h > height {
			if rootHash, ok := cryptoutil.HashFromBytes(value); ok {
				height = h
				root = rootHash
				found = true
			}
		}
		return true
	})
	return height, root, found, err
}
