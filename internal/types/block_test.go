package types_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

func TestHeaderPreimageDeterministicAndSensitiveToEveryField(t *testing.T) {
	base := types.Header{
		Height:        1,
		TimestampMs:   1000,
		BaseFeePerGas: uint256.NewInt(1_000_000_000),
	}
	again := base
	require.Equal(t, base.Preimage(), again.Preimage())

	changed := base
	changed.Height = 2
	require.NotEqual(t, base.Preimage(), changed.Preimage())
}

func TestBlockTxRootMatchesMerkleRootOfIncludedTxs(t *testing.T) {
	var h1, h2 cryptoutil.Hash
	h1[0], h2[0] = 0x11, 0x22
	block := types.Block{
		Txs: []types.SignedTransaction{{Hash: h1}, {Hash: h2}},
	}
	block.Header.TxRoot = codec.MerkleRoot(block.TxHashes())
	require.Equal(t, codec.MerkleRoot([]cryptoutil.Hash{h1, h2}), block.Header.TxRoot)
}

func TestBlockHashCoversHeaderAndSignature(t *testing.T) {
	header := types.Header{Height: 5, BaseFeePerGas: uint256.NewInt(1)}
	block1 := types.Block{Header: header, Signature: []byte{0x01}}
	block2 := types.Block{Header: header, Signature: []byte{0x02}}

	h1 := cryptoutil.SHA256(block1.HashPreimage())
	h2 := cryptoutil.SHA256(block2.HashPreimage())
	require.NotEqual(t, h1, h2, "a different proposer signature must change the block hash")
}
