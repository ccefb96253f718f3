package guard

import (
	"context"
	"sync"
	"time"

	"github.com/traitors/server/internal/domain"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// LoginLockout counts failed logins per key and locks the key once
// MaxAttempts failures fall inside LockoutWindow. A successful login clears
// the key.
type LoginLockout struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

// NewLoginLockout creates a lockout with the default thresholds.
func NewLoginLockout() *LoginLockout {
	return &LoginLockout{
		failures: make(map[string][]time.Time),
		max:      MaxAttempts,
		window:   LockoutWindow,
		now:      time.Now,
	}
}

// Check reports whether key may attempt a login.
func (l *LoginLockout) Check(_ context.Context, key string) domain.GuardResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.recent(key, now)
	if len(recent) >= l.max {
		return domain.GuardResult{
			Allowed:    false,
			Reason:     "too many failed login attempts, try again later",
			Guard:      "login_lockout",
			RetryAfter: recent[0].Add(l.window).Sub(now),
		}
	}
	return domain.GuardResult{Allowed: true}
}

// RecordFailure registers a failed login for key.
func (l *LoginLockout) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.failures[key] = append(l.recent(key, now), now)
}

// RecordSuccess clears the failure history for key.
func (l *LoginLockout) RecordSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
}

// Caller holds mu.
func (l *LoginLockout) recent(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	entries := l.failures[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = valid
	return valid
}
