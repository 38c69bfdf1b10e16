package gas

import (
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/nodeerrors"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
	"github.com/holiman/uint256"
)

// StateView is the read-only slice of account/post/contract state the
// validator needs. state.Store satisfies it; admission-path callers pass a
// snapshot so validation never races the writer (spec.md §5).
type StateView interface {
	GetAccount(addr cryptoutil.Address) *types.Account
	PostExists(postID string) bool
	IsContract(addr cryptoutil.Address) bool
}

// Params bundles the node-wide parameters the validator checks against,
// drawn from the configuration table of spec.md §6.
type Params struct {
	ChainID       string
	MinGasPrice   *uint256.Int
	BlockGasLimit uint64
}

// Validate runs the pre-execution checks of spec.md §4.4 in order, stopping
// at first failure, against the given state view and the gas already
// committed to the in-progress (or hypothetical) block.
func Validate(stx *types.SignedTransaction, view StateView, params Params, blockGasUsed uint64) error {
	tx := &stx.Tx

	// 1. Structural.
	if tx.GasLimit == 0 {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrGasLimitZero)
	}
	if tx.GasPrice == nil || tx.GasPrice.Lt(params.MinGasPrice) {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrGasPriceTooLow)
	}
	if tx.From.IsZero() {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrMalformedAddress)
	}
	if err := validateTypeShape(tx); err != nil {
		return nodeerrors.Wrap(nodeerrors.KindValidation, err)
	}

	// 2. Signature and preimage.
	hashOK, sigOK := stx.VerifyHashAndSignature(params.ChainID)
	if !hashOK {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrHashMismatch)
	}
	if !sigOK {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrSignatureInvalid)
	}
	derived, err := stx.DerivedAddress()
	if err != nil || derived != tx.From {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrAddressMismatch)
	}

	account := view.GetAccount(tx.From)

	// 3. Nonce.
	if tx.Nonce != account.Nonce {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrNonceMismatch)
	}

	// 4. Budget.
	required := RequiredGas(tx)
	if tx.GasLimit < required {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrGasBudgetTooLow)
	}
	if blockGasUsed+tx.GasLimit > params.BlockGasLimit {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrBlockGasExceeded)
	}

	// 5. Type-specific constraints.
	if err := validateTypeConstraints(tx, view); err != nil {
		return nodeerrors.Wrap(nodeerrors.KindValidation, err)
	}

	// 6. Funds.
	fee := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.GasPrice)
	need := new(uint256.Int).Add(fee, tx.ValueOut())
	if account.Balance.Lt(need) {
		return nodeerrors.Wrap(nodeerrors.KindValidation, nodeerrors.ErrInsufficientFunds)
	}

	return nil
}

func validateTypeShape(tx *types.Transaction) error {
	switch tx.Type {
	case types.TxTransfer:
		if tx.Transfer == nil {
			return nodeerrors.ErrMissingField
		}
	case types.TxPost:
		if tx.Post == nil {
			return nodeerrors.ErrMissingField
		}
	case types.TxReputation:
		if tx.Reputation == nil {
			return nodeerrors.ErrMissingField
		}
	case types.TxDeploy:
		if tx.Deploy == nil {
			return nodeerrors.ErrMissingField
		}
	case types.TxCall:
		if tx.Call == nil {
			return nodeerrors.ErrMissingField
		}
	default:
		return fmt.Errorf("%w: %q", nodeerrors.ErrUnknownTxType, tx.Type)
	}
	return nil
}

const (
	maxReputationDelta = 100
	maxDeployBytecode  = 24_576
	minDeployBytecode  = 1
	maxCallDataBytes   = 4_096
)

func validateTypeConstraints(tx *types.Transaction, view StateView) error {
	switch tx.Type {
	case types.TxTransfer:
		if tx.Transfer.To == tx.From {
			return nodeerrors.ErrSelfTransfer
		}
		if tx.Transfer.Amount == nil || tx.Transfer.Amount.IsZero() {
			return nodeerrors.ErrZeroAmount
		}
	case types.TxPost:
		if view.PostExists(tx.Post.PostID) {
			return nodeerrors.ErrPostIDTaken
		}
		if tx.Post.ContentHash.IsZero() {
			return nodeerrors.ErrBadContentHash
		}
	case types.TxReputation:
		if tx.Reputation.Target == tx.From {
			return nodeerrors.ErrSelfReputation
		}
		if tx.Reputation.Delta > maxReputationDelta || tx.Reputation.Delta < -maxReputationDelta {
			return nodeerrors.ErrReputationDeltaOOB
		}
	case types.TxDeploy:
		n := len(tx.Deploy.Bytecode)
		if n < minDeployBytecode || n > maxDeployBytecode {
			return nodeerrors.ErrBytecodeSize
		}
	case types.TxCall:
		if !view.IsContract(tx.Call.To) {
			return nodeerrors.ErrNotAContract
		}
		if len(tx.Call.Data) > maxCallDataBytes {
			return nodeerrors.ErrCallDataTooLarge
		}
	}
	return nil
}
