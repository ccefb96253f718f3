package guard

import (
	"context"
	"sync"
	"time"

	"github.com/traitors/server/internal/domain"
)

// IdempotencyGuard deduplicates requests by idempotency key. Keys are
// remembered for ttl, after which the same key is accepted again. A key can
// carry the result of the request that claimed it, so duplicates can be
// answered with the original outcome.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]idempotencyEntry
	ttl  time.Duration
	now  func() time.Time
}

type idempotencyEntry struct {
	expires time.Time
	result  string
}

// NewIdempotencyGuard creates a new in-memory idempotency guard.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		seen: make(map[string]idempotencyEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Check returns whether the given key has already been processed, and marks
// it processed if not. The empty key is always allowed.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	ig.evict(now)

	if _, ok := ig.seen[key]; ok {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = idempotencyEntry{expires: now.Add(ig.ttl)}
	return domain.GuardResult{Allowed: true}
}

// Complete records the result of the request holding key. It is a no-op for
// keys that were never claimed or have expired.
func (ig *IdempotencyGuard) Complete(key, result string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	if e, ok := ig.seen[key]; ok {
		e.result = result
		ig.seen[key] = e
	}
}

// Result returns the recorded result for key. ok is false while the key is
// unclaimed, expired, or still in flight.
func (ig *IdempotencyGuard) Result(key string) (result string, ok bool) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	e, found := ig.seen[key]
	if !found || !ig.now().Before(e.expires) || e.result == "" {
		return "", false
	}
	return e.result, true
}

// Remove deletes a key from the seen set so a failed request can be retried.
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

// Caller holds mu.
func (ig *IdempotencyGuard) evict(now time.Time) {
	for k, e := range ig.seen {
		if !now.Before(e.expires) {
			delete(ig.seen, k)
		}
	}
}
