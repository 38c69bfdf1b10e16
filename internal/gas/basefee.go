package gas

import (
	"math/big"

	"github.com/holiman/uint256"
)

// UpdateBaseFee applies the base-fee update rule of spec.md §4.4: let
// T = gas_limit/2; if gas_used == T the fee is unchanged; otherwise
// delta = base_fee * (gas_used - T) / (T * 8), new fee = max(min_gas_price,
// base_fee + delta). Delta may be negative, so the arithmetic is carried out
// in math/big (uint256 has no signed subtraction) and clamped to the floor
// and to 256 bits at the end.
func UpdateBaseFee(baseFee *uint256.Int, gasUsed, gasLimit uint64, minGasPrice *uint256.Int) *uint256.Int {
	target := gasLimit / 2
	if target == 0 || gasUsed == target {
		return new(uint256.Int).Set(baseFee)
	}

	base := baseFee.ToBig()
	diff := new(big.Int).SetInt64(int64(gasUsed) - int64(target))
	denom := new(big.Int).SetUint64(target * 8)

	delta := new(big.Int).Mul(base, diff)
	delta.Quo(delta, denom)

	result := new(big.Int).Add(base, delta)
	floor := minGasPrice.ToBig()
	if result.Cmp(floor) < 0 {
		result = floor
	}
	if result.Sign() < 0 {
		result = floor
	}

	newFee, overflow := uint256.FromBig(result)
	if overflow {
		newFee = uint256.NewInt(0).SetAllOne()
	}
	return newFee
}
