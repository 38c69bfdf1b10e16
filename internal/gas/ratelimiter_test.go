package gas_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
)

// Spec.md §8 boundary: the 60th tx in a 60s window is accepted, the 61st
// is rejected.
func TestRateLimiterBoundaryAt60PerMinute(t *testing.T) {
	rl := gas.NewRateLimiter(60, 1000)
	var addr cryptoutil.Address
	addr[0] = 0x09

	for i := 0; i < 60; i++ {
		require.True(t, rl.Allow(addr), "tx %d should be admitted", i+1)
		rl.Record(addr)
	}
	require.False(t, rl.Allow(addr), "the 61st tx within the window must be rejected")
}

func TestRateLimiterTracksSendersIndependently(t *testing.T) {
	rl := gas.NewRateLimiter(1, 1000)
	var a, b cryptoutil.Address
	a[0], b[0] = 0x01, 0x02

	require.True(t, rl.Allow(a))
	rl.Record(a)
	require.False(t, rl.Allow(a))
	require.True(t, rl.Allow(b), "a different sender's window must be independent")
}
