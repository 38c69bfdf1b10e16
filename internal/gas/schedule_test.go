package gas_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

func TestRequiredGasTransferWithData(t *testing.T) {
	tx := &types.Transaction{
		Type: types.TxTransfer,
		Data: []byte{0x00, 0x01, 0x00}, // 2 zero bytes, 1 non-zero byte
	}
	require.Equal(t, gas.BaseTxGas+2*4+1*16, gas.RequiredGas(tx))
}

func TestRequiredGasDeployScalesWithBytecodeSize(t *testing.T) {
	tx := &types.Transaction{
		Type:   types.TxDeploy,
		Deploy: &types.DeployPayload{Bytecode: make([]byte, 100)},
	}
	require.Equal(t, gas.BaseTxGas+32_000+200*100, gas.RequiredGas(tx))
}

func TestRequiredGasBoundaryAtDeployByteLimit(t *testing.T) {
	accepted := &types.Transaction{Type: types.TxDeploy, Deploy: &types.DeployPayload{Bytecode: make([]byte, 24_576)}}
	require.Equal(t, gas.BaseTxGas+32_000+200*24_576, gas.RequiredGas(accepted))
}

func TestRequiredGasPostAndReputationSurcharges(t *testing.T) {
	post := &types.Transaction{Type: types.TxPost, Post: &types.PostPayload{}}
	require.Equal(t, gas.BaseTxGas+20_000, gas.RequiredGas(post))

	rep := &types.Transaction{Type: types.TxReputation, Reputation: &types.ReputationPayload{}}
	require.Equal(t, gas.BaseTxGas+15_000, gas.RequiredGas(rep))

	call := &types.Transaction{Type: types.TxCall, Call: &types.CallPayload{Value: uint256.NewInt(0)}}
	require.Equal(t, gas.BaseTxGas+25_000, gas.RequiredGas(call))
}
