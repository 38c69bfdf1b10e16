package types

import (
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/holiman/uint256"
)

// Account is the per-address record owned exclusively by the state store
// (spec.md §3/§4.3): created lazily on first reference, mutated only by the
// state transition, never destroyed.
type Account struct {
	Balance     *uint256.Int    `json:"balance"`
	Nonce       uint64          `json:"nonce"`
	Reputation  int64           `json:"reputation"`
	IsContract  bool            `json:"is_contract"`
	CodeHash    cryptoutil.Hash `json:"code_hash,omitempty"`
	StorageRoot cryptoutil.Hash `json:"storage_root,omitempty"`
}

// ZeroAccount returns a fresh, non-contract account with zero balance, the
// value get_or_create inserts on first reference (spec.md §4.3).
func ZeroAccount() *Account {
	return &Account{Balance: uint256.NewInt(0)}
}

// Clone returns a deep copy, used by the admission path to snapshot state it
// reads without racing the writer (spec.md §5).
func (a *Account) Clone() *Account {
	cp := *a
	cp.Balance = new(uint256.Int).Set(a.Balance)
	return &cp
}

// Post is the on-chain record binding a content hash to an author
// (spec.md §3), keyed by PostID, unique across the chain.
type Post struct {
	Owner       cryptoutil.Address `json:"owner"`
	ContentHash cryptoutil.Hash    `json:"content_hash"`
	Pointer     *string            `json:"pointer,omitempty"`
	BlockHeight uint64             `json:"block_height"`
}
