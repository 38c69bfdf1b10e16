package types

import (
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/holiman/uint256"
)

// Header is a block header (spec.md §3); TxRoot is the Merkle root over the
// list of transaction hashes (§4.2).
type Header struct {
	Height        uint64             `json:"height"`
	PrevHash      cryptoutil.Hash    `json:"prev_hash"`
	TimestampMs   uint64             `json:"timestamp_ms"`
	TxRoot        cryptoutil.Hash    `json:"tx_root"`
	Proposer      cryptoutil.Address `json:"proposer"`
	GasUsed       uint64             `json:"gas_used"`
	GasLimit      uint64             `json:"gas_limit"`
	BaseFeePerGas *uint256.Int       `json:"base_fee_per_gas"`
}

// Preimage builds the canonical byte encoding of the header fields
// (spec.md §4.2: "the same scheme over the header fields"), used both for
// the block hash and as the bytes the proposer's signature covers.
func (h *Header) Preimage() []byte {
	fields := codec.Object{
		{Key: "height", Value: codec.Num(int64(h.Height))},
		{Key: "prev_hash", Value: codec.Str("0x" + hexEncode(h.PrevHash[:]))},
		{Key: "timestamp_ms", Value: codec.Num(int64(h.TimestampMs))},
		{Key: "tx_root", Value: codec.Str("0x" + hexEncode(h.TxRoot[:]))},
		{Key: "proposer", Value: codec.Str(h.Proposer.String())},
		{Key: "gas_used", Value: codec.Num(int64(h.GasUsed))},
		{Key: "gas_limit", Value: codec.Num(int64(h.GasLimit))},
		{Key: "base_fee_per_gas", Value: codec.Dec(decOrZero(h.BaseFeePerGas))},
	}
	return codec.Encode(fields)
}

// Block is a sealed header plus its transactions and proposer signature
// (spec.md §3): signature covers SHA-256(canonical_bytes(header)); hash
// covers SHA-256(canonical_bytes({header, signature})).
type Block struct {
	Header    Header              `json:"header"`
	Txs       []SignedTransaction `json:"txs"`
	Signature []byte              `json:"signature"`
	Hash      cryptoutil.Hash     `json:"hash"`
}

// TxHashes returns the ordered list of included transaction hashes, the
// input to MerkleRoot for TxRoot verification (spec.md invariants, §8).
func (b *Block) TxHashes() []cryptoutil.Hash {
	out := make([]cryptoutil.Hash, len(b.Txs))
	for i, tx := range b.Txs {
		out[i] = tx.Hash
	}
	return out
}

// HashPreimage builds the canonical bytes for the block's own Hash field:
// SHA-256(canonical_bytes(header)) followed by the raw signature, per
// spec.md §3's "hash = SHA-256(canonical_bytes({header, signature}))".
func (b *Block) HashPreimage() []byte {
	headerHash := cryptoutil.SHA256(b.Header.Preimage())
	fields := codec.Object{
		{Key: "header_hash", Value: codec.Str("0x" + hexEncode(headerHash[:]))},
		{Key: "signature", Value: codec.Str("0x" + hexEncode(b.Signature))},
	}
	return codec.Encode(fields)
}
