package graph

import (
	"math"
	"time"
)

// BackoffPolicy describes a capped exponential backoff schedule. It is used
// both for retrying throttled Graph requests and for pacing copy-monitor
// polls, so the knobs live in one place instead of ad hoc sleeps.
type BackoffPolicy struct {
	// MaxAttempts is the total attempt ceiling, including the first try.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy is the request retry schedule for 429/503 responses.
var DefaultRetryPolicy = BackoffPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Multiplier:  2,
	MaxDelay:    10 * time.Second,
}

// DefaultPollPolicy is the copy-monitor polling schedule. The generous
// attempt ceiling combined with the delay cap bounds total remote load for
// long-running copies.
var DefaultPollPolicy = BackoffPolicy{
	MaxAttempts: 30,
	BaseDelay:   time.Second,
	Multiplier:  1.5,
	MaxDelay:    15 * time.Second,
}

// Delay returns the backoff delay after the given zero-based attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < 0) {
		d = p.MaxDelay
	}
	return d
}
