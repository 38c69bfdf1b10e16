package mempool_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/mempool"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

// fakeTx builds a SignedTransaction with an explicit hash and sender, good
// enough to drive the pool's admission/ordering logic without a real
// signature (Admit never re-verifies one).
func fakeTx(hashByte byte, from cryptoutil.Address, nonce uint64, gasPrice int64) *types.SignedTransaction {
	var h cryptoutil.Hash
	h[0] = hashByte
	return &types.SignedTransaction{
		Tx: types.Transaction{
			Type:     types.TxTransfer,
			Nonce:    nonce,
			From:     from,
			GasLimit: 21_000,
			GasPrice: uint256.NewInt(uint64(gasPrice)),
			Transfer: &types.TransferPayload{To: cryptoutil.Address{0xff}, Amount: uint256.NewInt(1)},
		},
		Hash: h,
	}
}

func addr(b byte) cryptoutil.Address {
	var a cryptoutil.Address
	a[0] = b
	return a
}

func TestPoolAdmitRejectsDuplicateHash(t *testing.T) {
	p := mempool.New(10, gas.NewRateLimiter(60, 1000))
	tx := fakeTx(0x01, addr(0x01), 0, 1_000_000_000)
	require.NoError(t, p.Admit(tx))
	require.Error(t, p.Admit(tx), "second admission of the same hash must be rejected")
	require.Equal(t, 1, p.Len())
}

func TestPoolAdmitRejectsAtCapacity(t *testing.T) {
	p := mempool.New(2, gas.NewRateLimiter(60, 1000))
	require.NoError(t, p.Admit(fakeTx(0x01, addr(0x01), 0, 1_000_000_000)))
	require.NoError(t, p.Admit(fakeTx(0x02, addr(0x02), 0, 1_000_000_000)))
	require.Error(t, p.Admit(fakeTx(0x03, addr(0x03), 0, 1_000_000_000)), "pool is at capacity")
	require.Equal(t, 2, p.Len())
}

func TestPoolAdmitEnforcesPerSenderRateLimit(t *testing.T) {
	p := mempool.New(100, gas.NewRateLimiter(1, 1000))
	sender := addr(0x09)
	require.NoError(t, p.Admit(fakeTx(0x01, sender, 0, 1_000_000_000)))
	require.Error(t, p.Admit(fakeTx(0x02, sender, 1, 1_000_000_000)), "second tx within the window from the same sender must be rejected")
}

func TestPoolRemoveAndRemoveAll(t *testing.T) {
	p := mempool.New(10, gas.NewRateLimiter(60, 1000))
	tx1 := fakeTx(0x01, addr(0x01), 0, 1_000_000_000)
	tx2 := fakeTx(0x02, addr(0x02), 0, 1_000_000_000)
	require.NoError(t, p.Admit(tx1))
	require.NoError(t, p.Admit(tx2))

	p.Remove(tx1.Hash)
	require.Equal(t, 1, p.Len())

	p.RemoveAll([]cryptoutil.Hash{tx2.Hash})
	require.Equal(t, 0, p.Len())
}

func TestPoolOrderedSortsByGasPriceDescThenNonceThenHash(t *testing.T) {
	p := mempool.New(10, gas.NewRateLimiter(60, 1000))

	// Same sender, out-of-order nonces at the same gas price.
	senderA := addr(0x01)
	require.NoError(t, p.Admit(fakeTx(0x02, senderA, 1, 1_000_000_000)))
	require.NoError(t, p.Admit(fakeTx(0x01, senderA, 0, 1_000_000_000)))

	// Different sender, higher gas price, should sort first regardless of hash.
	senderB := addr(0x02)
	require.NoError(t, p.Admit(fakeTx(0x00, senderB, 0, 2_000_000_000)))

	ordered := p.Ordered()
	require.Len(t, ordered, 3)
	require.Equal(t, senderB, ordered[0].Tx.From, "higher gas price sorts first")
	require.Equal(t, uint64(0), ordered[1].Tx.Nonce, "equal gas price breaks by ascending nonce")
	require.Equal(t, uint64(1), ordered[2].Tx.Nonce)
}

func TestPoolOrderedTiebreaksByAscendingHashAtEqualGasPriceAndNonce(t *testing.T) {
	p := mempool.New(10, gas.NewRateLimiter(60, 1000))
	require.NoError(t, p.Admit(fakeTx(0x05, addr(0x01), 0, 1_000_000_000)))
	require.NoError(t, p.Admit(fakeTx(0x02, addr(0x02), 0, 1_000_000_000)))

	ordered := p.Ordered()
	require.Len(t, ordered, 2)
	require.Equal(t, byte(0x02), ordered[0].Hash[0], "lower hash sorts first as final tiebreak")
	require.Equal(t, byte(0x05), ordered[1].Hash[0])
}

func TestPoolPendingGasTracksAdmissionsAndRemovals(t *testing.T) {
	p := mempool.New(10, gas.NewRateLimiter(60, 1000))
	require.Equal(t, uint64(0), p.PendingGas())

	tx1 := fakeTx(0x01, addr(0x01), 0, 1_000_000_000)
	tx2 := fakeTx(0x02, addr(0x02), 0, 1_000_000_000)
	require.NoError(t, p.Admit(tx1))
	require.NoError(t, p.Admit(tx2))
	require.Equal(t, uint64(42_000), p.PendingGas())

	p.Remove(tx1.Hash)
	require.Equal(t, uint64(21_000), p.PendingGas())

	// Removing a hash that is not present must not skew the running total.
	p.Remove(tx1.Hash)
	require.Equal(t, uint64(21_000), p.PendingGas())

	p.RemoveAll([]cryptoutil.Hash{tx2.Hash})
	require.Equal(t, uint64(0), p.PendingGas())
}

func TestPoolSnapshotReturnsAllPending(t *testing.T) {
	p := mempool.New(10, gas.NewRateLimiter(60, 1000))
	require.NoError(t, p.Admit(fakeTx(0x01, addr(0x01), 0, 1_000_000_000)))
	require.NoError(t, p.Admit(fakeTx(0x02, addr(0x02), 0, 1_000_000_000)))
	require.Len(t, p.Snapshot(), 2)
}
