package gas

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
)

// window is 60 seconds, the sliding window spec.md §4.4 defines the
// per-sender limit over.
const window = 60 * time.Second

// RateLimiter enforces spec.md §4.4's per-from sliding window ("reject when
// more than max_tx_per_minute accepted in the last 60s") plus a global
// ingress throttle shared across all senders, backed by
// golang.org/x/time/rate's token bucket — the per-sender rule needs exact
// sliding-window counting (a token bucket would admit bursts a strict window
// would reject), so that part is hand-rolled; the node-wide throttle has no
// such exactness requirement and is a natural fit for rate.Limiter.
type RateLimiter struct {
	mu           sync.Mutex
	maxPerMinute int
	accepted     map[cryptoutil.Address][]time.Time
	global       *rate.Limiter
	now          func() time.Time
}

// NewRateLimiter builds a limiter enforcing at most maxPerMinute accepted
// transactions per sender per 60s window, plus a global token bucket across
// all senders combined that refills at globalBurst transactions/second and
// holds up to 2×globalBurst.
func NewRateLimiter(maxPerMinute int, globalBurst int) *RateLimiter {
	if globalBurst <= 0 {
		globalBurst = maxPerMinute
	}
	return &RateLimiter{
		maxPerMinute: maxPerMinute,
		accepted:     make(map[cryptoutil.Address][]time.Time),
		global:       rate.NewLimiter(rate.Limit(globalBurst), globalBurst*2),
		now:          time.Now,
	}
}

// Allow reports whether a transaction from addr may be admitted right now,
// per spec.md §4.4's boundary rule: the 60th tx in-window is accepted, the
// 61st is rejected. It does not record acceptance — call Record once the
// transaction has cleared every other validation step, so a tx rejected for
// an unrelated reason does not consume window budget.
func (rl *RateLimiter) Allow(addr cryptoutil.Address) bool {
	if !rl.global.Allow() {
		return false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	times := rl.prune(addr, rl.now())
	return len(times) < rl.maxPerMinute
}

// Record marks a transaction from addr as accepted at the current time,
// consuming one slot of the sliding window.
func (rl *RateLimiter) Record(addr cryptoutil.Address) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	times := rl.prune(addr, now)
	rl.accepted[addr] = append(times, now)
}

// prune drops timestamps older than the window and must be called with mu
// held; it returns (and stores) the retained slice.
func (rl *RateLimiter) prune(addr cryptoutil.Address, now time.Time) []time.Time {
	times := rl.accepted[addr]
	cutoff := now.Add(-window)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rl.accepted[addr] = kept
	return kept
}
