package types

import "github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"

// Event is one log entry emitted by contract execution (spec.md §3).
type Event struct {
	Topics []cryptoutil.Hash `json:"topics"`
	Data   []byte            `json:"data"`
}

// Receipt is the post-execution record of a transaction (spec.md §3),
// stored by the durable store and queryable by tx hash.
type Receipt struct {
	TxHash          cryptoutil.Hash     `json:"tx_hash"`
	Success         bool                `json:"success"`
	GasUsed         uint64              `json:"gas_used"`
	ReturnData      []byte              `json:"return_data,omitempty"`
	Error           string              `json:"error,omitempty"`
	Events          []Event             `json:"events"`
	ContractAddress *cryptoutil.Address `json:"contract_address,omitempty"`
	BlockHeight     uint64              `json:"block_height"`
	BlockHash       cryptoutil.Hash     `json:"block_hash"`
}
