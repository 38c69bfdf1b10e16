package store

import "fmt"

// BlockIndexEntry is the minimal information PruneBelow needs about a block
// to remove it and its receipts.
type BlockIndexEntry struct {
	Height   uint64
	Hash     []byte
	TxHashes [][]byte
}

// PruneBelow deletes every block (and its receipts) strictly below
// watermark, per spec.md §4.9's retention policy. Callers supply the index
// of blocks eligible for removal; PruneBelow does not itself decide the
// watermark.
func (s *Store) PruneBelow(watermark uint64, candidates []BlockIndexEntry) error {
	var writes []Write
	for _, b := range candidates {
		if b.Height >= watermark {
			continue
		}
		writes = append(writes, Write{NS: NSBlocksByHeight, Key: heightKey(b.Height), Delete: true})
		writes = append(writes, Write{NS: NSBlocksByHash, Key: b.Hash, Delete: true})
		for _, txHash := range b.TxHashes {
			writes = append(writes, Write{NS: NSReceipts, Key: txHash, Delete: true})
		}
	}
	if len(writes) == 0 {
		return nil
	}
	if err := s.BatchWrite(writes); err != nil {
		return fmt.Errorf("prune below height %d: %w", watermark, err)
	}
	return nil
}
