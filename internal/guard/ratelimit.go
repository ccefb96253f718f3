package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/traitors/server/internal/domain"
)

// RateLimiter implements a sliding window rate limiter.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check records a hit for key and reports whether it is within the limit.
// Blocked hits are not recorded.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(key, now)

	if len(valid) >= rl.limit {
		return domain.GuardResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit exceeded: %d/%s", rl.limit, rl.window),
			Guard:      "rate_limiter",
			RetryAfter: valid[0].Add(rl.window).Sub(now),
		}
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}

// prune drops hits older than the window. Keys with no hits left are removed
// so idle clients do not accumulate. Caller holds mu.
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	entries := rl.windows[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.windows, key)
		return nil
	}
	rl.windows[key] = valid
	return valid
}
