// Package genesis implements the one-time chain-initialization step: load
// a genesis file's initial allocation and apply it to a fresh state store
// and chain, producing block 0. Adapted from the teacher's
// internal/blockchain genesis-block construction, generalized from a
// single-coinbase-output UTXO genesis to an arbitrary per-address balance
// allocation, per spec.md §4.6/§9's "initial_supply distributed per a
// genesis alloc file, an original_source feature the distilled spec left
// implicit" supplement.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/state"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
	"github.com/holiman/uint256"
)

// File is the on-disk genesis document (spec.md §6's genesis_file).
type File struct {
	ChainID       string            `json:"chain_id"`
	InitialSupply string            `json:"initial_supply"`
	BlockReward   string            `json:"block_reward"`
	BaseFeePerGas string            `json:"base_fee_per_gas"`
	Alloc         map[string]string `json:"alloc"`
}

// Load reads and parses a genesis file from disk.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file %q: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode genesis file %q: %w", path, err)
	}
	return &f, nil
}

// Apply credits every address in f.Alloc into st and returns the genesis
// block (height 0, zero prev_hash, empty tx list), unsigned; it is committed
// as-is, since genesis carries no proposer signature to verify. The recorded
// total supply is the sum of the alloc balances; f.InitialSupply is not read.
func Apply(f *File, st *state.Store, timestampMs uint64) (*types.Block, error) {
	total := uint256.NewInt(0)
	addrs := make([]string, 0, len(f.Alloc))
	for addrHex := range f.Alloc {
		addrs = append(addrs, addrHex)
	}
	addrs = codec.SortedKeys(addrs)

	for _, addrHex := range addrs {
		addr, err := cryptoutil.ParseAddress(addrHex)
		if err != nil {
			return nil, fmt.Errorf("genesis alloc address %q: %w", addrHex, err)
		}
		amount, err := parseDec(f.Alloc[addrHex])
		if err != nil {
			return nil, fmt.Errorf("genesis alloc amount for %q: %w", addrHex, err)
		}
		acc := st.GetAccount(addr)
		acc.Balance.Add(acc.Balance, amount)
		st.PutAccount(addr, acc)
		total.Add(total, amount)
	}
	st.SetSupply(total)

	baseFee, err := parseDec(f.BaseFeePerGas)
	if err != nil {
		return nil, fmt.Errorf("genesis base_fee_per_gas: %w", err)
	}

	header := types.Header{
		Height:        0,
		PrevHash:      cryptoutil.Hash{},
		TimestampMs:   timestampMs,
		TxRoot:        mustEmptyMerkleRoot(),
		Proposer:      cryptoutil.Address{},
		GasUsed:       0,
		GasLimit:      0,
		BaseFeePerGas: baseFee,
	}
	block := &types.Block{
		Header:    header,
		Txs:       nil,
		Signature: nil,
	}
	block.Hash = cryptoutil.SHA256(block.HashPreimage())
	return block, nil
}

func parseDec(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, err
	}
	return v, nil
}

func mustEmptyMerkleRoot() cryptoutil.Hash {
	return codec.MerkleRoot(nil)
}
