// Package gas implements the gas-cost schedule, pre-execution validator,
// base-fee update rule, and per-sender rate limiter of spec.md §4.4.
package gas

import "github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"

// BaseTxGas is the flat cost charged to every transaction before its type
// surcharge and data rule, per spec.md §4.4.
const BaseTxGas uint64 = 21_000

const (
	surchargePost       uint64 = 20_000
	surchargeReputation uint64 = 15_000
	surchargeDeployBase uint64 = 32_000
	surchargeDeployByte uint64 = 200
	surchargeCall       uint64 = 25_000
)

const (
	gasPerZeroByte    uint64 = 4
	gasPerNonZeroByte uint64 = 16
)

// DataGas applies the "4 per zero byte, 16 per non-zero byte" rule shared by
// every transaction type's data payload, per spec.md §4.4.
func DataGas(data []byte) uint64 {
	var total uint64
	for _, b := range data {
		if b == 0 {
			total += gasPerZeroByte
		} else {
			total += gasPerNonZeroByte
		}
	}
	return total
}

// RequiredGas computes the total gas a transaction must supply in its
// gas_limit, per the schedule table in spec.md §4.4.
func RequiredGas(tx *types.Transaction) uint64 {
	total := BaseTxGas
	switch tx.Type {
	case types.TxTransfer:
		total += DataGas(tx.Data)
	case types.TxPost:
		total += surchargePost + DataGas(tx.Data)
	case types.TxReputation:
		total += surchargeReputation + DataGas(tx.Data)
	case types.TxDeploy:
		codeSize := uint64(0)
		if tx.Deploy != nil {
			codeSize = uint64(len(tx.Deploy.Bytecode))
		}
		total += surchargeDeployBase + surchargeDeployByte*codeSize
		if tx.Deploy != nil {
			total += DataGas(tx.Deploy.ConstructorArgs)
		}
	case types.TxCall:
		total += surchargeCall
		if tx.Call != nil {
			total += DataGas(tx.Call.Data)
		}
	}
	return total
}

// MinExecutionConsumed is the minimum gas a transaction that reaches step 2
// of the state transition always consumes, even on failure (spec.md §4.6
// step 4: "min_consumed = 21,000").
const MinExecutionConsumed uint64 = BaseTxGas
