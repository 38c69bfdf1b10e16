// Package mempool implements the pending-transaction pool of spec.md §4.7:
// admission control in front of a hash-keyed set, with a secondary
// ordering the block builder consumes directly. Adapted from the
// teacher's internal/mempool package, which held transactions in a
// mutex-guarded map with a similar "validate on admission, reselect on
// build" split; the ordering rule and cap enforcement are rebuilt for
// this spec's gas-price-first block-building policy.
package mempool

import (
	"sort"
	"sync"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/nodeerrors"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

// Pool is the single-writer, multi-reader pending transaction set of
// spec.md §4.7.
type Pool struct {
	mu         sync.RWMutex
	byHash     map[cryptoutil.Hash]*types.SignedTransaction
	capacity   int
	pendingGas uint64
	limiter    *gas.RateLimiter
}

// New builds an empty pool with the given capacity (spec.md §6's
// mempool_capacity) and per-sender rate limiter.
func New(capacity int, limiter *gas.RateLimiter) *Pool {
	return &Pool{
		byHash:   make(map[cryptoutil.Hash]*types.SignedTransaction),
		capacity: capacity,
		limiter:  limiter,
	}
}

// Len reports the number of transactions currently pending.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Admit inserts stx if it passes the pool's own admission rules: not already
// present, within capacity, and within the sender's rate-limit window.
// Admit does not itself run gas.Validate — callers run that first and only
// call Admit once validation has already passed, since RateLimiter.Allow
// must be checked (and, on success, recorded) exactly once per candidate.
func (p *Pool) Admit(stx *types.SignedTransaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byHash[stx.Hash]; exists {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrDuplicateTx)
	}
	if len(p.byHash) >= p.capacity {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrMempoolFull)
	}
	if p.limiter != nil && !p.limiter.Allow(stx.Tx.From) {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrRateLimited)
	}
	if p.limiter != nil {
		p.limiter.Record(stx.Tx.From)
	}
	p.byHash[stx.Hash] = stx
	p.pendingGas += stx.Tx.GasLimit
	return nil
}

// PendingGas reports the summed gas_limit of every pending transaction —
// the "would-be" block gas-used the admission validator checks new
// candidates against (spec.md §4.7), so the pool never holds more than
// one block's worth of gas beyond what the next build can clear.
func (p *Pool) PendingGas() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pendingGas
}

// Remove drops a transaction from the pool, called once it has been
// included in a committed block (or evicted for staleness).
func (p *Pool) Remove(hash cryptoutil.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash cryptoutil.Hash) {
	if stx, ok := p.byHash[hash]; ok {
		p.pendingGas -= stx.Tx.GasLimit
		delete(p.byHash, hash)
	}
}

// RemoveAll drops every transaction in hashes in one pass, used by the
// block committer after a block has been applied.
func (p *Pool) RemoveAll(hashes []cryptoutil.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		p.removeLocked(h)
	}
}

// Ordered returns every pending transaction sorted by the block builder's
// selection order: descending gas_price, then ascending nonce, then
// ascending transaction hash as a final deterministic tiebreak (spec.md
// §9 Open Question: tx ordering tiebreak, decided as ascending tx hash —
// see SPEC_FULL.md).
func (p *Pool) Ordered() []*types.SignedTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*types.SignedTransaction, 0, len(p.byHash))
	for _, stx := range p.byHash {
		out = append(out, stx)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Tx.GasPrice.Eq(b.Tx.GasPrice) {
			return a.Tx.GasPrice.Gt(b.Tx.GasPrice)
		}
		if a.Tx.Nonce != b.Tx.Nonce {
			return a.Tx.Nonce < b.Tx.Nonce
		}
		return lessHash(a.Hash, b.Hash)
	})
	return out
}

func lessHash(a, b cryptoutil.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Snapshot returns the transactions currently pending, in no defined order, used by
// graceful shutdown to persist an exact resume point (spec.md's
// supplemented "flush mempool snapshot" shutdown step).
func (p *Pool) Snapshot() []*types.SignedTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.SignedTransaction, 0, len(p.byHash))
	for _, stx := range p.byHash {
		out = append(out, stx)
	}
	return out
}
