// Package retry runs an operation until it succeeds, waiting a fixed interval
// between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Timer is the wait primitive between attempts; backoff.Timer is satisfied.
type Timer = backoff.Timer

// Strategy is a constant-interval retry policy. The zero MaxAttempts retries
// until the context is cancelled.
type Strategy struct {
	Interval    time.Duration
	MaxAttempts uint64

	// Timer replaces the real timer, mainly so tests do not sleep.
	Timer Timer
	// OnRetry is called after each failed attempt with the attempt number
	// (1-based), its error, and the wait before the next attempt.
	OnRetry func(attempt uint64, err error, next time.Duration)
}

// Permanent wraps err so that Do stops retrying and returns it.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it returns nil, a Permanent error, the attempt budget is
// spent, or ctx is done. It returns the last error (or ctx.Err()).
func (s Strategy) Do(ctx context.Context, op func(context.Context) error) error {
	var b backoff.BackOff = backoff.NewConstantBackOff(s.Interval)
	if s.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, s.MaxAttempts-1)
	}
	b = backoff.WithContext(b, ctx)

	var attempt uint64
	operation := func() error {
		attempt++
		return op(ctx)
	}
	notify := func(err error, next time.Duration) {
		if s.OnRetry != nil {
			s.OnRetry(attempt, err, next)
		}
	}

	return backoff.RetryNotifyWithTimer(operation, b, notify, s.Timer)
}
