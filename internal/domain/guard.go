package domain

import "time"

// GuardResult is the outcome of a request guard check.
type GuardResult struct {
	Allowed    bool          `json:"allowed"`
	Reason     string        `json:"reason,omitempty"`
	Guard      string        `json:"guard,omitempty"` // which guard blocked
	RetryAfter time.Duration `json:"-"`
}
