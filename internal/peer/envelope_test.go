package peer_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/peer"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

func TestEncodeDecodeHelloRoundTrips(t *testing.T) {
	env, err := peer.EncodeHello(peer.HelloPayload{ChainID: "forge-mini", NodeID: "node-1", Height: 42})
	require.NoError(t, err)
	require.Equal(t, peer.KindHello, env.Kind)

	got, err := env.DecodeHello()
	require.NoError(t, err)
	require.Equal(t, "forge-mini", got.ChainID)
	require.Equal(t, "node-1", got.NodeID)
	require.Equal(t, uint64(42), got.Height)
}

func TestEncodeDecodeTxRoundTrips(t *testing.T) {
	stx := &types.SignedTransaction{
		Tx: types.Transaction{
			Type:     types.TxTransfer,
			Nonce:    3,
			GasLimit: 21_000,
			GasPrice: uint256.NewInt(1_000_000_000),
			Transfer: &types.TransferPayload{Amount: uint256.NewInt(500)},
		},
	}
	stx.Hash[0] = 0x09

	env, err := peer.EncodeTx(stx)
	require.NoError(t, err)
	require.Equal(t, peer.KindTx, env.Kind)

	got, err := env.DecodeTx()
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Tx.Nonce)
	require.True(t, got.Tx.GasPrice.Eq(uint256.NewInt(1_000_000_000)))
	require.Equal(t, byte(0x09), got.Hash[0])
}

func TestEncodeDecodeBlockRoundTrips(t *testing.T) {
	block := &types.Block{Header: types.Header{Height: 7, BaseFeePerGas: uint256.NewInt(1)}}
	block.Hash[0] = 0xaa

	env, err := peer.EncodeBlock(block)
	require.NoError(t, err)
	require.Equal(t, peer.KindBlock, env.Kind)

	got, err := env.DecodeBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Header.Height)
	require.Equal(t, byte(0xaa), got.Hash[0])
}

func TestDecodeBlockRejectsMalformedPayload(t *testing.T) {
	env := peer.Envelope{Kind: peer.KindBlock, Payload: []byte(`{"header": not json`)}
	_, err := env.DecodeBlock()
	require.Error(t, err)
}

func TestBusBroadcastReachesEveryNodeExceptSender(t *testing.T) {
	bus := peer.NewBus()
	var gotA, gotB []string

	bus.Register("a", func(from string, env peer.Envelope) { gotA = append(gotA, from) })
	bus.Register("b", func(from string, env peer.Envelope) { gotB = append(gotB, from) })
	bus.Register("c", func(from string, env peer.Envelope) { gotA = append(gotA, "c-should-not-receive") })

	bus.Broadcast("c", peer.Envelope{Kind: peer.KindHello})
	require.Equal(t, []string{"c"}, gotA)
	require.Equal(t, []string{"c"}, gotB)
}

func TestBusSendDeliversToExactlyOneNode(t *testing.T) {
	bus := peer.NewBus()
	var gotA, gotB int
	bus.Register("a", func(from string, env peer.Envelope) { gotA++ })
	bus.Register("b", func(from string, env peer.Envelope) { gotB++ })

	bus.Send("a", "sender", peer.Envelope{Kind: peer.KindTx})
	require.Equal(t, 1, gotA)
	require.Equal(t, 0, gotB)
}

func TestBusUnregisterStopsDelivery(t *testing.T) {
	bus := peer.NewBus()
	var calls int
	bus.Register("a", func(from string, env peer.Envelope) { calls++ })
	bus.Unregister("a")
	bus.Send("a", "sender", peer.Envelope{Kind: peer.KindTx})
	require.Equal(t, 0, calls)
}
