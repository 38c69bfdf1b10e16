// Package types holds the node's domain model: transactions, accounts,
// blocks, headers, and receipts (spec.md §3). Adapted from the teacher's
// internal/core package — same "plain struct + explicit methods, no
// reflection" shape, generalized from a UTXO ledger to the account-based,
// tagged-transaction-variant model spec.md requires (spec.md §9: "use a sum
// type with one variant per tx type and exhaustive matching").
package types

import (
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/holiman/uint256"
)

// TxType tags the transaction variant, per spec.md §3.
type TxType string

const (
	TxTransfer   TxType = "transfer"
	TxPost       TxType = "post"
	TxReputation TxType = "reputation"
	TxDeploy     TxType = "deploy"
	TxCall       TxType = "call"
)

// Transaction is the pre-signature, tagged record of spec.md §3: common
// fields plus exactly one populated type-specific extension, matching the
// tag in Type.
type Transaction struct {
	Type     TxType             `json:"type"`
	Nonce    uint64             `json:"nonce"`
	From     cryptoutil.Address `json:"from"`
	GasLimit uint64             `json:"gas_limit"`
	GasPrice *uint256.Int       `json:"gas_price"`
	Data     []byte             `json:"data,omitempty"`

	Transfer   *TransferPayload   `json:"transfer,omitempty"`
	Post       *PostPayload       `json:"post,omitempty"`
	Reputation *ReputationPayload `json:"reputation,omitempty"`
	Deploy     *DeployPayload     `json:"deploy,omitempty"`
	Call       *CallPayload       `json:"call,omitempty"`
}

// TransferPayload moves native token from sender to recipient.
type TransferPayload struct {
	To     cryptoutil.Address `json:"to"`
	Amount *uint256.Int       `json:"amount"`
}

// PostPayload binds a content hash (and optional off-chain pointer) to the
// sender as author, keyed by PostID (spec.md §3 "Post record").
type PostPayload struct {
	PostID      string          `json:"post_id"`
	ContentHash cryptoutil.Hash `json:"content_hash"`
	Pointer     *string         `json:"pointer,omitempty"`
}

// ReputationPayload adjusts a target account's signed reputation score.
type ReputationPayload struct {
	Target cryptoutil.Address `json:"target"`
	Delta  int64              `json:"delta"`
	Reason *string            `json:"reason,omitempty"`
}

// DeployPayload creates a new contract account running bytecode.
type DeployPayload struct {
	Bytecode        []byte       `json:"bytecode"`
	Value           *uint256.Int `json:"value,omitempty"`
	ConstructorArgs []byte       `json:"constructor_args,omitempty"`
}

// CallPayload invokes an existing contract account.
type CallPayload struct {
	To    cryptoutil.Address `json:"to"`
	Value *uint256.Int       `json:"value"`
	Data  []byte             `json:"data"`
}

// SignedTransaction is a Transaction plus its signature envelope, per
// spec.md §3: hash = SHA-256(canonical_bytes(tx, chain_id)), signature
// covers the same preimage.
type SignedTransaction struct {
	Tx        Transaction          `json:"tx"`
	Signature []byte               `json:"signature"`
	PublicKey []byte               `json:"public_key"`
	Algorithm cryptoutil.Algorithm `json:"algorithm"`
	Hash      cryptoutil.Hash      `json:"hash"`
}

// ValueOut returns the native-token amount this tx moves out of the
// sender's balance before fees, used by the funds check (spec.md §4.4 step 6)
// and by the state transition's dispatch (spec.md §4.6).
func (tx *Transaction) ValueOut() *uint256.Int {
	switch tx.Type {
	case TxTransfer:
		return tx.Transfer.Amount
	case TxDeploy:
		if tx.Deploy.Value != nil {
			return tx.Deploy.Value
		}
	case TxCall:
		return tx.Call.Value
	}
	return uint256.NewInt(0)
}

// Preimage builds the canonical byte encoding of {tx, chain_id} per
// spec.md §4.2, used both to compute Hash and as the exact bytes the
// signature covers.
func (tx *Transaction) Preimage(chainID string) []byte {
	fields := codec.Object{
		{Key: "type", Value: codec.Str(tx.Type)},
		{Key: "nonce", Value: codec.Num(int64(tx.Nonce))},
		{Key: "from", Value: codec.Str(tx.From.String())},
		{Key: "gas_limit", Value: codec.Num(int64(tx.GasLimit))},
		{Key: "gas_price", Value: codec.Dec(decOrZero(tx.GasPrice))},
		{Key: "data", Value: bytesOrNull(tx.Data)},
		{Key: "payload", Value: tx.payloadFields()},
		{Key: "chain_id", Value: codec.Str(chainID)},
	}
	return codec.Encode(fields)
}

func (tx *Transaction) payloadFields() codec.Value {
	switch tx.Type {
	case TxTransfer:
		return codec.Object{
			{Key: "to", Value: codec.Str(tx.Transfer.To.String())},
			{Key: "amount", Value: codec.Dec(decOrZero(tx.Transfer.Amount))},
		}
	case TxPost:
		return codec.Object{
			{Key: "post_id", Value: codec.Str(tx.Post.PostID)},
			{Key: "content_hash", Value: codec.Str("0x" + hexEncode(tx.Post.ContentHash[:]))},
			{Key: "pointer", Value: strOrNull(tx.Post.Pointer)},
		}
	case TxReputation:
		return codec.Object{
			{Key: "target", Value: codec.Str(tx.Reputation.Target.String())},
			{Key: "delta", Value: codec.Num(tx.Reputation.Delta)},
			{Key: "reason", Value: strOrNull(tx.Reputation.Reason)},
		}
	case TxDeploy:
		return codec.Object{
			{Key: "bytecode", Value: codec.Str("0x" + hexEncode(tx.Deploy.Bytecode))},
			{Key: "value", Value: codec.Dec(decOrZero(tx.Deploy.Value))},
			{Key: "constructor_args", Value: codec.Str("0x" + hexEncode(tx.Deploy.ConstructorArgs))},
		}
	case TxCall:
		return codec.Object{
			{Key: "to", Value: codec.Str(tx.Call.To.String())},
			{Key: "value", Value: codec.Dec(decOrZero(tx.Call.Value))},
			{Key: "data", Value: codec.Str("0x" + hexEncode(tx.Call.Data))},
		}
	default:
		panic(fmt.Sprintf("types: unknown tx type %q in payloadFields", tx.Type))
	}
}

func decOrZero(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func bytesOrNull(b []byte) codec.Value {
	if len(b) == 0 {
		return codec.Null{}
	}
	return codec.Str("0x" + hexEncode(b))
}

func strOrNull(s *string) codec.Value {
	if s == nil {
		return codec.Null{}
	}
	return codec.Str(*s)
}
