// Package peer defines the wire envelope format spec.md §6 puts in scope
// (peer transport semantics themselves are an explicit non-goal) and a
// minimal in-process Bus standing in for the transport, adapted from the
// teacher's internal/network.SimulatedNetwork — same "register a handler
// per node ID, fan out by direct call" shape, narrowed to the three
// envelope kinds this spec defines.
package peer

import (
	"encoding/json"
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

// Kind tags an envelope's payload type.
type Kind string

const (
	KindHello Kind = "hello"
	KindTx    Kind = "tx"
	KindBlock Kind = "block"
)

// Envelope is the outermost peer message wrapper: a kind tag plus a
// canonically JSON-encoded payload, per spec.md §6 ("integers as decimal
// strings" — satisfied here because Transaction/Block already carry
// decimal-string uint256 fields via their json tags).
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// HelloPayload is sent on connection establishment, identifying the peer.
type HelloPayload struct {
	ChainID string `json:"chain_id"`
	NodeID  string `json:"node_id"`
	Height  uint64 `json:"height"`
}

// EncodeHello builds a hello envelope.
func EncodeHello(p HelloPayload) (Envelope, error) {
	return encode(KindHello, p)
}

// EncodeTx builds a tx envelope carrying one signed transaction.
func EncodeTx(stx *types.SignedTransaction) (Envelope, error) {
	return encode(KindTx, stx)
}

// EncodeBlock builds a block envelope carrying one sealed block.
func EncodeBlock(block *types.Block) (Envelope, error) {
	return encode(KindBlock, block)
}

func encode(kind Kind, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	return Envelope{Kind: kind, Payload: raw}, nil
}

// DecodeHello extracts a HelloPayload from e; callers must check e.Kind first.
func (e Envelope) DecodeHello() (HelloPayload, error) {
	var p HelloPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// DecodeTx extracts a SignedTransaction from e; callers must check e.Kind first.
func (e Envelope) DecodeTx() (*types.SignedTransaction, error) {
	var stx types.SignedTransaction
	if err := json.Unmarshal(e.Payload, &stx); err != nil {
		return nil, fmt.Errorf("decode tx envelope: %w", err)
	}
	return &stx, nil
}

// DecodeBlock extracts a Block from e; callers must check e.Kind first.
func (e Envelope) DecodeBlock() (*types.Block, error) {
	var block types.Block
	if err := json.Unmarshal(e.Payload, &block); err != nil {
		return nil, fmt.Errorf("decode block envelope: %w", err)
	}
	return &block, nil
}
