package chain_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/chain"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/store"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

func openTestChain(t *testing.T) (*chain.Chain, *store.Store) {
	t.Helper()
	durable, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = durable.Close() })

	c, err := chain.Open(durable)
	require.NoError(t, err)
	return c, durable
}

func sealedBlock(height uint64, prevHash cryptoutil.Hash) *types.Block {
	header := types.Header{
		Height:        height,
		PrevHash:      prevHash,
		TimestampMs:   1_700_000_000_000 + height,
		TxRoot:        codec.MerkleRoot(nil),
		GasLimit:      30_000_000,
		BaseFeePerGas: uint256.NewInt(1_000_000_000),
	}
	block := &types.Block{Header: header}
	block.Hash = cryptoutil.SHA256(block.HashPreimage())
	return block
}

func TestOpenFreshStoreYieldsEmptyChain(t *testing.T) {
	c, _ := openTestChain(t)
	require.Nil(t, c.Head())
	require.Equal(t, uint64(0), c.Height())
}

func TestAppendAdvancesHeadAndHeight(t *testing.T) {
	c, _ := openTestChain(t)
	block := sealedBlock(1, cryptoutil.Hash{})
	require.NoError(t, c.Append(block, nil))

	require.Equal(t, uint64(1), c.Height())
	require.Equal(t, block.Hash, c.Head().Hash)
}

func TestBlockLookupByHeightAndHash(t *testing.T) {
	c, _ := openTestChain(t)
	block := sealedBlock(1, cryptoutil.Hash{})
	require.NoError(t, c.Append(block, nil))

	byHeight, ok, err := c.BlockByHeight(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, block.Hash, byHeight.Hash)

	byHash, ok, err := c.BlockByHash(block.Hash.Bytes())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), byHash.Header.Height)

	_, ok, err = c.BlockByHeight(99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAppendPersistsReceiptsByTxHash(t *testing.T) {
	c, _ := openTestChain(t)
	block := sealedBlock(1, cryptoutil.Hash{})

	var txHash cryptoutil.Hash
	txHash[0] = 0xab
	receipt := &types.Receipt{TxHash: txHash, Success: true, GasUsed: 21_000, BlockHeight: 1, BlockHash: block.Hash}
	require.NoError(t, c.Append(block, []*types.Receipt{receipt}))

	got, ok, err := c.ReceiptByTxHash(txHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Success)
	require.Equal(t, uint64(21_000), got.GasUsed)

	_, ok, err = c.ReceiptByTxHash(cryptoutil.Hash{0: 0xcd})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPruneBelowRemovesOldBlocksAndReceiptsButKeepsTheRest(t *testing.T) {
	c, _ := openTestChain(t)

	block1 := sealedBlock(1, cryptoutil.Hash{})
	var txHash cryptoutil.Hash
	txHash[0] = 0xab
	// The receipt belongs to block 1 through one of its transactions.
	block1.Txs = []types.SignedTransaction{{Hash: txHash}}
	block1.Header.TxRoot = codec.MerkleRoot(block1.TxHashes())
	block1.Hash = cryptoutil.SHA256(block1.HashPreimage())
	receipt := &types.Receipt{TxHash: txHash, Success: true, BlockHeight: 1, BlockHash: block1.Hash}
	require.NoError(t, c.Append(block1, []*types.Receipt{receipt}))

	block2 := sealedBlock(2, block1.Hash)
	require.NoError(t, c.Append(block2, nil))

	require.NoError(t, c.PruneBelow(2))

	_, ok, err := c.BlockByHeight(1)
	require.NoError(t, err)
	require.False(t, ok, "height 1 is below the watermark")

	_, ok, err = c.ReceiptByTxHash(txHash)
	require.NoError(t, err)
	require.False(t, ok, "a pruned block's receipts go with it")

	_, ok, err = c.BlockByHeight(2)
	require.NoError(t, err)
	require.True(t, ok, "the watermark height itself is retained")
	require.Equal(t, block2.Hash, c.Head().Hash, "the head is untouched by pruning")
}

func TestReopenRestoresHeadFromDurableStore(t *testing.T) {
	dir := t.TempDir()
	durable, err := store.Open(dir)
	require.NoError(t, err)

	c, err := chain.Open(durable)
	require.NoError(t, err)

	block1 := sealedBlock(1, cryptoutil.Hash{})
	require.NoError(t, c.Append(block1, nil))
	block2 := sealedBlock(2, block1.Hash)
	require.NoError(t, c.Append(block2, nil))
	require.NoError(t, durable.Close())

	reopened, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	c2, err := chain.Open(reopened)
	require.NoError(t, err)
	require.Equal(t, uint64(2), c2.Height())
	require.Equal(t, block2.Hash, c2.Head().Hash)
	require.Equal(t, block1.Hash, c2.Head().Header.PrevHash)
}
