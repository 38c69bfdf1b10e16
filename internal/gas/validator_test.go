package gas_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

// fakeView is a minimal gas.StateView backed by plain maps, used to drive
// the validator without pulling in internal/state.
type fakeView struct {
	accounts  map[cryptoutil.Address]*types.Account
	posts     map[string]bool
	contracts map[cryptoutil.Address]bool
}

func newFakeView() *fakeView {
	return &fakeView{
		accounts:  make(map[cryptoutil.Address]*types.Account),
		posts:     make(map[string]bool),
		contracts: make(map[cryptoutil.Address]bool),
	}
}

func (v *fakeView) GetAccount(addr cryptoutil.Address) *types.Account {
	if acc, ok := v.accounts[addr]; ok {
		return acc
	}
	return types.ZeroAccount()
}

func (v *fakeView) PostExists(postID string) bool           { return v.posts[postID] }
func (v *fakeView) IsContract(addr cryptoutil.Address) bool { return v.contracts[addr] }

func signedTransfer(t *testing.T, kp *cryptoutil.Ed25519KeyPair, chainID string, nonce uint64, to cryptoutil.Address, amount, gasPrice *uint256.Int, gasLimit uint64) *types.SignedTransaction {
	t.Helper()
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	tx := types.Transaction{
		Type:     types.TxTransfer,
		Nonce:    nonce,
		From:     from,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		Transfer: &types.TransferPayload{To: to, Amount: amount},
	}
	stx := types.SignEd25519(tx, chainID, kp.PrivateKey)
	return &stx
}

func minimalParams() gas.Params {
	return gas.Params{ChainID: "forge-mini", MinGasPrice: uint256.NewInt(1_000_000_000), BlockGasLimit: 30_000_000}
}

func TestValidateAcceptsWellFormedTransfer(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01

	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1_000), uint256.NewInt(1_000_000_000), 21_000)
	require.NoError(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateBoundaryGasPriceEqualsMinIsAccepted(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	require.NoError(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateBoundaryGasPriceBelowMinIsRejected(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(999_999_999), 21_000)
	require.Error(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateBoundaryGasLimitEqualsRequiredIsAccepted(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	require.NoError(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateBoundaryGasLimitOneBelowRequiredIsRejected(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 20_999)
	require.Error(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateRejectsNonceMismatch(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 1, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	require.Error(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateRejectsInsufficientFunds(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(100) // not enough for fee
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	require.Error(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateRejectsSelfTransfer(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, from, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	require.Error(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateRejectsBlockGasLimitExceeded(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	params := minimalParams()
	params.BlockGasLimit = 21_000
	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	require.Error(t, gas.Validate(stx, view, params, 1_000), "already-committed gas plus this tx's limit exceeds the block cap")
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	var to cryptoutil.Address
	to[0] = 0x01
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000)
	view.accounts[from] = acc

	stx := signedTransfer(t, kp, "forge-mini", 0, to, uint256.NewInt(1), uint256.NewInt(1_000_000_000), 21_000)
	stx.Signature[0] ^= 0xff
	require.Error(t, gas.Validate(stx, view, minimalParams(), 0))
}

func TestValidateDeployBoundaryBytecodeSize(t *testing.T) {
	kp, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	from := cryptoutil.Ed25519Address(kp.PublicKey)
	view := newFakeView()
	acc := types.ZeroAccount()
	acc.Balance = uint256.NewInt(1_000_000_000_000_000_000)
	view.accounts[from] = acc

	newDeploy := func(size int) *types.SignedTransaction {
		tx := types.Transaction{
			Type:     types.TxDeploy,
			Nonce:    0,
			From:     from,
			GasLimit: 10_000_000,
			GasPrice: uint256.NewInt(1_000_000_000),
			Deploy:   &types.DeployPayload{Bytecode: make([]byte, size)},
		}
		stx := types.SignEd25519(tx, "forge-mini", kp.PrivateKey)
		return &stx
	}

	require.NoError(t, gas.Validate(newDeploy(24_576), view, minimalParams(), 0))
	require.Error(t, gas.Validate(newDeploy(24_577), view, minimalParams(), 0))
}
