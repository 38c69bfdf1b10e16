package gas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
)

// TestRateLimiterWindowExpiresExactWhiteBox exercises the sliding-window
// prune logic directly by overriding the injectable clock, since the
// public API intentionally exposes no way to fast-forward time.
func TestRateLimiterWindowExpiresExactWhiteBox(t *testing.T) {
	rl := NewRateLimiter(1, 1000)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }

	var addr cryptoutil.Address
	addr[0] = 0x42

	require.True(t, rl.Allow(addr))
	rl.Record(addr)
	require.False(t, rl.Allow(addr))

	rl.now = func() time.Time { return start.Add(61 * time.Second) }
	require.True(t, rl.Allow(addr), "the window must slide once 60s have elapsed")
}
