// Package state implements the account/state store of spec.md §4.3: the
// authoritative in-memory view of accounts, posts, contract code, and
// contract storage, backed by the durable store of internal/store for
// crash recovery. Adapted from the teacher's internal/state package, which
// held the same "maps guarded by one mutex, durable backing underneath"
// shape for a UTXO balance sheet; here the maps carry the account-based,
// contract-aware model spec.md requires.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/store"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
	"github.com/holiman/uint256"
)

// supplyMetaKey is the internal/store NSMeta key the running total-supply
// figure is persisted under, seeded from the genesis alloc total and
// advanced only by minted block rewards (spec.md §3/§8's supply law: fees
// move balances between accounts but never change total supply).
const supplyMetaKey = "supply"

// storageKey addresses one 32-byte contract storage slot.
type storageKey struct {
	addr cryptoutil.Address
	slot cryptoutil.Hash
}

// Store is the single-writer, multi-reader account/state store of
// spec.md §4.3. Reads prefer the in-memory maps; a miss falls through to
// the durable store. Only account reads are cached back into memory,
// matching the teacher's "get_or_create" helper on its balance map.
type Store struct {
	mu       sync.RWMutex
	accounts map[cryptoutil.Address]*types.Account
	posts    map[string]*types.Post
	code     map[cryptoutil.Hash][]byte
	slots    map[storageKey]cryptoutil.Hash
	supply   *uint256.Int
	durable  *store.Store
}

// New builds a state store backed by durable for persistence and recovery,
// restoring the running total-supply figure (spec.md §3's supply cap, §8's
// supply law) from durable.NSMeta if a chain already exists there.
func New(durable *store.Store) *Store {
	supply := uint256.NewInt(0)
	if raw, ok, err := durable.Get(store.NSMeta, []byte(supplyMetaKey)); err == nil && ok {
		if v, parseErr := uint256FromDecimal(string(raw)); parseErr == nil {
			supply = v
		}
	}
	return &Store{
		accounts: make(map[cryptoutil.Address]*types.Account),
		posts:    make(map[string]*types.Post),
		code:     make(map[cryptoutil.Hash][]byte),
		slots:    make(map[storageKey]cryptoutil.Hash),
		supply:   supply,
		durable:  durable,
	}
}

func uint256FromDecimal(s string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, err
	}
	return v, nil
}

// Supply returns a copy of the running total-supply figure: the sum of
// genesis alloc balances and every block reward minted since, per
// spec.md §8's conservation law (fees move balances between accounts, they
// never mint or burn).
func (s *Store) Supply() *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(uint256.Int).Set(s.supply)
}

// SetSupply seeds the running total-supply figure, used once by genesis to
// record the sum of the initial allocation.
func (s *Store) SetSupply(v *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supply = new(uint256.Int).Set(v)
}

// MintSupply advances the running total-supply figure by amount, called by
// the block committer after crediting a block reward to the proposer
// (spec.md §4.8 step 4).
func (s *Store) MintSupply(amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supply.Add(s.supply, amount)
}

// GetAccount returns addr's account, creating a zero-balance account on
// first reference (spec.md §4.3's get_or_create), consulting the durable
// store before falling back to a fresh zero account. The returned pointer
// is owned by the store; callers in the execution path mutate it directly
// under the writer's exclusivity, callers on the admission path should
// Clone it first (see Snapshot).
func (s *Store) GetAccount(addr cryptoutil.Address) *types.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(addr)
}

func (s *Store) getOrCreateLocked(addr cryptoutil.Address) *types.Account {
	if acc, ok := s.accounts[addr]; ok {
		return acc
	}
	if raw, ok, err := s.durable.Get(store.NSAccounts, addr.Bytes()); err == nil && ok {
		var acc types.Account
		if err := json.Unmarshal(raw, &acc); err == nil {
			s.accounts[addr] = &acc
			return &acc
		}
	}
	acc := types.ZeroAccount()
	s.accounts[addr] = acc
	return acc
}

// PutAccount replaces addr's account record outright, used by the
// execution path after computing the post-transition balance/nonce/etc.
func (s *Store) PutAccount(addr cryptoutil.Address, acc *types.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[addr] = acc
}

// IsContract reports whether addr is a deployed contract account.
func (s *Store) IsContract(addr cryptoutil.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acc, ok := s.accounts[addr]; ok {
		return acc.IsContract
	}
	if raw, ok, err := s.durable.Get(store.NSAccounts, addr.Bytes()); err == nil && ok {
		var acc types.Account
		if json.Unmarshal(raw, &acc) == nil {
			return acc.IsContract
		}
	}
	return false
}

// PostExists reports whether postID has already been claimed.
func (s *Store) PostExists(postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.posts[postID]; ok {
		return true
	}
	_, ok, err := s.durable.Get(store.NSMeta, []byte("post:"+postID))
	return err == nil && ok
}

// GetPost returns the post bound to postID, if any.
func (s *Store) GetPost(postID string) (*types.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.posts[postID]; ok {
		return p, true
	}
	raw, ok, err := s.durable.Get(store.NSMeta, []byte("post:"+postID))
	if err != nil || !ok {
		return nil, false
	}
	var p types.Post
	if json.Unmarshal(raw, &p) != nil {
		return nil, false
	}
	return &p, true
}

// PutPost binds postID to post, rejecting a second claim is the caller's
// responsibility (spec.md §4.4's duplicate-post-id check runs before
// execution ever reaches here).
func (s *Store) PutPost(postID string, post *types.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[postID] = post
}

// GetCode returns the bytecode stored under codeHash.
func (s *Store) GetCode(codeHash cryptoutil.Hash) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if code, ok := s.code[codeHash]; ok {
		return code, true
	}
	raw, ok, err := s.durable.Get(store.NSCode, codeHash.Bytes())
	if err != nil || !ok {
		return nil, false
	}
	return raw, true
}

// PutCode stores bytecode under its Keccak-256 hash, returning that hash.
func (s *Store) PutCode(code []byte) cryptoutil.Hash {
	h := cryptoutil.Keccak256(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[h] = code
	return h
}

// GetStorage reads one contract storage slot, returning the zero hash when
// unset (the EVM convention: every slot defaults to zero).
func (s *Store) GetStorage(addr cryptoutil.Address, slot cryptoutil.Hash) cryptoutil.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := storageKey{addr, slot}
	if v, ok := s.slots[key]; ok {
		return v
	}
	raw, ok, err := s.durable.Get(store.NSStorage, storageDBKey(addr, slot))
	if err != nil || !ok {
		return cryptoutil.Hash{}
	}
	v, ok := cryptoutil.HashFromBytes(raw)
	if !ok {
		return cryptoutil.Hash{}
	}
	return v
}

// SetStorage writes one contract storage slot.
func (s *Store) SetStorage(addr cryptoutil.Address, slot, value cryptoutil.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[storageKey{addr, slot}] = value
}

func storageDBKey(addr cryptoutil.Address, slot cryptoutil.Hash) []byte {
	out := make([]byte, 0, cryptoutil.AddressSize+cryptoutil.HashSize)
	out = append(out, addr.Bytes()...)
	out = append(out, slot.Bytes()...)
	return out
}

// PendingWrites returns the batch entries persisting every in-memory
// account, post, code blob, storage slot, and the running supply figure.
// The block committer combines them with the block's own writes so that a
// block, its receipts, and the state it produced become visible in one
// atomic batch (spec.md §4.8 step 6, §5).
func (s *Store) PendingWrites() ([]store.Write, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var writes []store.Write
	for addr, acc := range s.accounts {
		raw, err := json.Marshal(acc)
		if err != nil {
			return nil, fmt.Errorf("marshal account %s: %w", addr, err)
		}
		writes = append(writes, store.Write{NS: store.NSAccounts, Key: addr.Bytes(), Value: raw})
	}
	for postID, post := range s.posts {
		raw, err := json.Marshal(post)
		if err != nil {
			return nil, fmt.Errorf("marshal post %s: %w", postID, err)
		}
		writes = append(writes, store.Write{NS: store.NSMeta, Key: []byte("post:" + postID), Value: raw})
	}
	for codeHash, code := range s.code {
		writes = append(writes, store.Write{NS: store.NSCode, Key: codeHash.Bytes(), Value: code})
	}
	for key, value := range s.slots {
		writes = append(writes, store.Write{NS: store.NSStorage, Key: storageDBKey(key.addr, key.slot), Value: value.Bytes()})
	}
	writes = append(writes, store.Write{NS: store.NSMeta, Key: []byte(supplyMetaKey), Value: []byte(s.supply.Dec())})
	return writes, nil
}

// Flush persists PendingWrites as its own atomic batch, for callers with no
// block writes to bundle.
func (s *Store) Flush() error {
	writes, err := s.PendingWrites()
	if err != nil {
		return err
	}
	return s.durable.BatchWrite(writes)
}

// snapshotView is an immutable point-in-time copy of the accounts and posts
// the admission path needs, satisfying gas.StateView without racing the
// writer (spec.md §5).
type snapshotView struct {
	accounts map[cryptoutil.Address]*types.Account
	posts    map[string]struct{}
	contract map[cryptoutil.Address]bool
}

// Snapshot deep-copies the current in-memory accounts/posts/contract-flags
// for the mempool's validation path to read against, per spec.md §5: "the
// admission path validates against a recent, consistent snapshot rather
// than locking the live state on every check."
func (s *Store) Snapshot() *snapshotView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv := &snapshotView{
		accounts: make(map[cryptoutil.Address]*types.Account, len(s.accounts)),
		posts:    make(map[string]struct{}, len(s.posts)),
		contract: make(map[cryptoutil.Address]bool, len(s.accounts)),
	}
	for addr, acc := range s.accounts {
		sv.accounts[addr] = acc.Clone()
		sv.contract[addr] = acc.IsContract
	}
	for postID := range s.posts {
		sv.posts[postID] = struct{}{}
	}
	return sv
}

func (sv *snapshotView) GetAccount(addr cryptoutil.Address) *types.Account {
	if acc, ok := sv.accounts[addr]; ok {
		return acc
	}
	return types.ZeroAccount()
}

func (sv *snapshotView) PostExists(postID string) bool {
	_, ok := sv.posts[postID]
	return ok
}

func (sv *snapshotView) IsContract(addr cryptoutil.Address) bool {
	return sv.contract[addr]
}

// Root computes the state root: SHA-256 over the canonically encoded,
// address-sorted account list followed by the post-ID-sorted post list
// (spec.md §9's decision for the Open Question on state commitment, since
// spec.md leaves the exact commitment scheme unspecified beyond "a root
// over accounts and posts").
func (s *Store) Root() cryptoutil.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addrs := make([]cryptoutil.Address, 0, len(s.accounts))
	for addr := range s.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].String() < addrs[j].String() })

	accountList := make(codec.List, 0, len(addrs))
	for _, addr := range addrs {
		acc := s.accounts[addr]
		accountList = append(accountList, codec.Object{
			{Key: "address", Value: codec.Str(addr.String())},
			{Key: "balance", Value: codec.Dec(balanceDec(acc))},
			{Key: "nonce", Value: codec.Num(int64(acc.Nonce))},
			{Key: "reputation", Value: codec.Num(acc.Reputation)},
			{Key: "is_contract", Value: codec.Str(boolStr(acc.IsContract))},
		})
	}

	postIDs := make([]string, 0, len(s.posts))
	for id := range s.posts {
		postIDs = append(postIDs, id)
	}
	sort.Strings(postIDs)

	postList := make(codec.List, 0, len(postIDs))
	for _, id := range postIDs {
		p := s.posts[id]
		postList = append(postList, codec.Object{
			{Key: "post_id", Value: codec.Str(id)},
			{Key: "owner", Value: codec.Str(p.Owner.String())},
			{Key: "content_hash", Value: codec.Str(p.ContentHash.String())},
		})
	}

	root := codec.Object{
		{Key: "accounts", Value: accountList},
		{Key: "posts", Value: postList},
	}
	return cryptoutil.SHA256(codec.Encode(root))
}

func balanceDec(acc *types.Account) string {
	if acc.Balance == nil {
		return "0"
	}
	return acc.Balance.Dec()
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
