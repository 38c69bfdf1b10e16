// Package chain holds the committed block ledger: the head pointer, and
// durable lookup of blocks by hash or height. Adapted from the teacher's
// internal/blockchain package (same "in-memory head + durable backing"
// shape), with genesis construction generalized to spec.md §4.6's
// account-based initial allocation instead of a UTXO coinbase set.
package chain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/nodeerrors"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/store"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

// Chain is the append-only, single-writer block ledger.
type Chain struct {
	mu      sync.RWMutex
	head    *types.Block
	height  uint64
	durable *store.Store
}

// Open loads the chain's head from the durable store, if any; a fresh
// data directory yields an empty Chain awaiting genesis.
func Open(durable *store.Store) (*Chain, error) {
	c := &Chain{durable: durable}
	raw, ok, err := durable.Get(store.NSMeta, []byte("head_height"))
	if err != nil {
		return nil, fmt.Errorf("load chain head: %w", err)
	}
	if !ok {
		return c, nil
	}
	height := binary.BigEndian.Uint64(raw)
	block, ok, err := c.BlockByHeight(height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nodeerrors.Wrap(nodeerrors.KindStorage, nodeerrors.ErrStoreCorrupt)
	}
	c.head = block
	c.height = height
	return c, nil
}

// Height reports the height of the current head block.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Head returns the current head block, or nil before genesis.
func (c *Chain) Head() *types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// Append commits block as the new head, folding any extra writes (the
// state store's mutated accounts, posts, code, and storage) into the same
// atomic batch so a block, its receipts, and the state it produced become
// visible together or not at all (spec.md §4.8 step 6, §5). Callers
// (internal/consensus) are responsible for having already verified
// height/prev_hash continuity, the proposer signature, and the tx_root —
// Append only persists.
func (c *Chain) Append(block *types.Block, receipts []*types.Receipt, extra ...store.Write) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("marshal block %s: %w", block.Hash, err)
	}
	heightKey := heightKeyOf(block.Header.Height)

	writes := []store.Write{
		{NS: store.NSBlocksByHash, Key: block.Hash.Bytes(), Value: raw},
		{NS: store.NSBlocksByHeight, Key: heightKey, Value: block.Hash.Bytes()},
		{NS: store.NSMeta, Key: []byte("head_height"), Value: heightKey},
	}
	for _, r := range receipts {
		rraw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal receipt %s: %w", r.TxHash, err)
		}
		writes = append(writes, store.Write{NS: store.NSReceipts, Key: r.TxHash.Bytes(), Value: rraw})
	}
	writes = append(writes, extra...)

	if err := c.durable.BatchWrite(writes); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Header.Height, err)
	}

	c.mu.Lock()
	c.head = block
	c.height = block.Header.Height
	c.mu.Unlock()
	return nil
}

// BlockByHeight looks up a committed block by height.
func (c *Chain) BlockByHeight(height uint64) (*types.Block, bool, error) {
	hashRaw, ok, err := c.durable.Get(store.NSBlocksByHeight, heightKeyOf(height))
	if err != nil || !ok {
		return nil, false, err
	}
	return c.BlockByHash(hashRaw)
}

// BlockByHash looks up a committed block by its hash bytes.
func (c *Chain) BlockByHash(hashBytes []byte) (*types.Block, bool, error) {
	raw, ok, err := c.durable.Get(store.NSBlocksByHash, hashBytes)
	if err != nil || !ok {
		return nil, false, err
	}
	var block types.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, false, fmt.Errorf("decode block: %w", err)
	}
	return &block, true, nil
}

// ReceiptByTxHash looks up a committed transaction's receipt.
func (c *Chain) ReceiptByTxHash(h cryptoutil.Hash) (*types.Receipt, bool, error) {
	raw, ok, err := c.durable.Get(store.NSReceipts, h.Bytes())
	if err != nil || !ok {
		return nil, false, err
	}
	var r types.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, true, nil
}

// PruneBelow removes every committed block (and its receipts) with height
// strictly below watermark from the durable store, per spec.md §4.9's
// retention policy. The in-memory head is never a candidate, so the live
// chain is unaffected.
func (c *Chain) PruneBelow(watermark uint64) error {
	var candidates []store.BlockIndexEntry
	err := c.durable.IterateRange(store.NSBlocksByHeight, func(key, value []byte) bool {
		height := binary.BigEndian.Uint64(key)
		if height >= watermark {
			return true
		}
		entry := store.BlockIndexEntry{Height: height, Hash: append([]byte(nil), value...)}
		if block, ok, err := c.BlockByHash(value); err == nil && ok {
			for _, h := range block.TxHashes() {
				entry.TxHashes = append(entry.TxHashes, h.Bytes())
			}
		}
		candidates = append(candidates, entry)
		return true
	})
	if err != nil {
		return fmt.Errorf("collect prune candidates below %d: %w", watermark, err)
	}
	if len(candidates) == 0 {
		return nil
	}
	return c.durable.PruneBelow(watermark, candidates)
}

func heightKeyOf(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return buf[:]
}
