// Package execution implements the deterministic state transition function
// of spec.md §4.6: given a validated transaction and the current state, it
// debits gas, dispatches by transaction type, and emits a receipt. Adapted
// from the teacher's internal/core apply-transaction loop (same "mutate
// balances in place, return a result record" shape), generalized from a
// two-party UTXO spend to the five-variant account-based dispatch spec.md
// requires, with EVM execution layered in for deploy/call.
package execution

import (
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/evm"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/nodeerrors"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/state"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
	"github.com/holiman/uint256"
)

// BlockContext carries the header fields the state transition and any EVM
// execution it triggers need to see (spec.md §4.6/§4.5).
type BlockContext struct {
	Height      uint64
	TimestampMs uint64
	Proposer    cryptoutil.Address
	GasLimit    uint64
}

// Apply runs the full state transition of spec.md §4.6 for one already
// admission-validated transaction, mutating st in place and returning the
// resulting receipt. It never returns an error for an ordinary execution
// failure (insufficient runtime gas, a REVERTing contract, and so on) —
// those are reported as Receipt.Success == false, per spec.md §4.6's
// "execution failure still consumes gas and produces a receipt". Apply
// returns an error only when the sender's balance cannot cover the upfront
// gas reservation (gas_limit × gas_price).
func Apply(stx *types.SignedTransaction, st *state.Store, params gas.Params, block BlockContext) (*types.Receipt, error) {
	tx := &stx.Tx
	sender := st.GetAccount(tx.From)

	upfront := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.GasPrice)
	if sender.Balance.Lt(upfront) {
		return nil, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrInsufficientFunds)
	}
	sender.Balance.Sub(sender.Balance, upfront)

	receipt := &types.Receipt{
		TxHash:      stx.Hash,
		BlockHeight: block.Height,
	}

	gasUsed, err := dispatch(tx, sender, st, params, block, receipt)
	if gasUsed < gas.MinExecutionConsumed {
		gasUsed = gas.MinExecutionConsumed
	}
	if gasUsed > tx.GasLimit {
		gasUsed = tx.GasLimit
	}
	receipt.GasUsed = gasUsed
	if err != nil {
		receipt.Success = false
		receipt.Error = err.Error()
	} else {
		receipt.Success = true
	}
	// Refund unused gas at the transaction's own gas price, per spec.md §4.6.
	spent := new(uint256.Int).Mul(uint256.NewInt(gasUsed), tx.GasPrice)
	refund := new(uint256.Int).Sub(upfront, spent)
	sender.Balance.Add(sender.Balance, refund)

	// The proposer collects the gas actually consumed as a fee, per
	// spec.md §4.6's "fees accrue to the block's proposer".
	proposer := st.GetAccount(block.Proposer)
	proposer.Balance.Add(proposer.Balance, spent)

	// Nonce advances only on success: spec.md §4.6 step 4, "on failure...
	// nonce is still not incremented".
	if err == nil {
		sender.Nonce++
	}
	st.PutAccount(tx.From, sender)
	if block.Proposer != tx.From {
		st.PutAccount(block.Proposer, proposer)
	}

	return receipt, nil
}

// dispatch runs the type-specific effect and returns the gas it consumed
// (before the min_consumed floor is applied by the caller). On failure it
// returns the gas consumed up to the point of failure and a non-nil error;
// it never mutates balances beyond what Apply already reserved — state
// changes made before a failure are deliberately NOT rolled back beyond
// the sender/proposer fee accounting, matching spec.md §4.6's "a failed
// transaction's side effects other than the fee charge are discarded by
// construction: every mutating branch below returns before committing
// its effect once an error is known".
func dispatch(tx *types.Transaction, sender *types.Account, st *state.Store, params gas.Params, block BlockContext, receipt *types.Receipt) (uint64, error) {
	switch tx.Type {
	case types.TxTransfer:
		return applyTransfer(tx, sender, st)
	case types.TxPost:
		return applyPost(tx, st, block)
	case types.TxReputation:
		return applyReputation(tx, st)
	case types.TxDeploy:
		return applyDeploy(tx, sender, st, params, block, receipt)
	case types.TxCall:
		return applyCall(tx, sender, st, params, block, receipt)
	default:
		return 0, fmt.Errorf("%w: %q", nodeerrors.ErrUnknownTxType, tx.Type)
	}
}

func applyTransfer(tx *types.Transaction, sender *types.Account, st *state.Store) (uint64, error) {
	amount := tx.Transfer.Amount
	if sender.Balance.Lt(amount) {
		return gas.BaseTxGas, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrInsufficientFunds)
	}
	recipient := st.GetAccount(tx.Transfer.To)
	sender.Balance.Sub(sender.Balance, amount)
	recipient.Balance.Add(recipient.Balance, amount)
	st.PutAccount(tx.Transfer.To, recipient)
	return gas.BaseTxGas, nil
}

func applyPost(tx *types.Transaction, st *state.Store, block BlockContext) (uint64, error) {
	if st.PostExists(tx.Post.PostID) {
		return gas.BaseTxGas, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrPostIDTaken)
	}
	st.PutPost(tx.Post.PostID, &types.Post{
		Owner:       tx.From,
		ContentHash: tx.Post.ContentHash,
		Pointer:     tx.Post.Pointer,
		BlockHeight: block.Height,
	})
	return gas.BaseTxGas + 20_000, nil
}

func applyReputation(tx *types.Transaction, st *state.Store) (uint64, error) {
	target := st.GetAccount(tx.Reputation.Target)
	target.Reputation += tx.Reputation.Delta
	st.PutAccount(tx.Reputation.Target, target)
	return gas.BaseTxGas + 15_000, nil
}

func applyDeploy(tx *types.Transaction, sender *types.Account, st *state.Store, params gas.Params, block BlockContext, receipt *types.Receipt) (uint64, error) {
	contractAddr := cryptoutil.ContractAddress(tx.From, sender.Nonce)

	value := uint256.NewInt(0)
	if tx.Deploy.Value != nil {
		value = tx.Deploy.Value
	}
	if sender.Balance.Lt(value) {
		return gas.BaseTxGas, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrInsufficientFunds)
	}

	runtimeGas := tx.GasLimit - gas.RequiredGas(tx)
	msg := evm.Message{
		From:     tx.From,
		To:       contractAddr,
		Value:    value,
		Data:     tx.Deploy.ConstructorArgs,
		GasPrice: tx.GasPrice,
		GasLimit: runtimeGas,
	}
	blockCtx := evm.BlockContext{Height: block.Height, TimestampMs: block.TimestampMs, GasLimit: params.BlockGasLimit}
	result := evm.Run(st, blockCtx, msg, tx.Deploy.Bytecode)

	receipt.Events = convertLogs(result.Logs)
	receipt.ReturnData = result.ReturnData

	used := gas.RequiredGas(tx) + result.GasUsed
	if !result.Success {
		return used, nodeerrors.Wrap(nodeerrors.KindExecution, fmt.Errorf("%w: %v", nodeerrors.ErrExecutionReverted, result.Err))
	}

	// Only on success does spec.md §4.6 step 2's "create a contract account
	// at the computed address" take effect; a reverted deploy leaves no
	// contract account, no installed code, and no value transfer behind.
	// The code installed at contractAddr is the EVM's returned data, i.e.
	// the init code's runtime output (§4.5/§4.6), not the init code itself.
	codeHash := st.PutCode(result.ReturnData)
	contract := types.ZeroAccount()
	contract.IsContract = true
	contract.CodeHash = codeHash
	if tx.Deploy.Value != nil {
		contract.Balance = new(uint256.Int).Set(value)
		sender.Balance.Sub(sender.Balance, value)
	}
	st.PutAccount(contractAddr, contract)
	receipt.ContractAddress = &contractAddr
	return used, nil
}

func applyCall(tx *types.Transaction, sender *types.Account, st *state.Store, params gas.Params, block BlockContext, receipt *types.Receipt) (uint64, error) {
	if !st.IsContract(tx.Call.To) {
		return gas.BaseTxGas, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrNotAContract)
	}
	contract := st.GetAccount(tx.Call.To)
	code, ok := st.GetCode(contract.CodeHash)
	if !ok {
		return gas.BaseTxGas, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrCodeNotFound)
	}

	value := uint256.NewInt(0)
	if tx.Call.Value != nil {
		value = tx.Call.Value
	}
	if sender.Balance.Lt(value) {
		return gas.BaseTxGas, nodeerrors.Wrap(nodeerrors.KindExecution, nodeerrors.ErrInsufficientFunds)
	}

	runtimeGas := tx.GasLimit - gas.RequiredGas(tx)
	msg := evm.Message{
		From:     tx.From,
		To:       tx.Call.To,
		Value:    value,
		Data:     tx.Call.Data,
		GasPrice: tx.GasPrice,
		GasLimit: runtimeGas,
	}
	blockCtx := evm.BlockContext{Height: block.Height, TimestampMs: block.TimestampMs, GasLimit: params.BlockGasLimit}
	result := evm.Run(st, blockCtx, msg, code)

	if result.Success {
		sender.Balance.Sub(sender.Balance, value)
		contract.Balance.Add(contract.Balance, value)
		st.PutAccount(tx.Call.To, contract)
	}
	receipt.Events = convertLogs(result.Logs)
	receipt.ReturnData = result.ReturnData

	used := gas.RequiredGas(tx) + result.GasUsed
	if !result.Success {
		return used, nodeerrors.Wrap(nodeerrors.KindExecution, fmt.Errorf("%w: %v", nodeerrors.ErrExecutionReverted, result.Err))
	}
	return used, nil
}

func convertLogs(logs []evm.Log) []types.Event {
	out := make([]types.Event, len(logs))
	for i, l := range logs {
		out[i] = types.Event{Topics: l.Topics, Data: l.Data}
	}
	return out
}
