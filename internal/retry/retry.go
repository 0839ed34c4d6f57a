// Package retry provides the bounded-retry policy shared by collaborator
// calls that are worth repeating. It wraps cenkalti/backoff with a constant
// delay and a hard attempt cap so call sites declare intent instead of
// hand-rolling sleep loops.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts bounds how many times an operation runs before the
	// policy gives up.
	DefaultMaxAttempts = 3
	// DefaultDelay is the pause between attempts.
	DefaultDelay = 2 * time.Second
)

// Policy describes a bounded retry with a fixed delay between attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// OnRetry, when set, is invoked after each failed attempt that will be
	// retried. It must not mutate caller-visible state.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the repository default of three attempts two seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// ExhaustedError reports that every attempt failed. It unwraps to the last
// failure cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs op under the policy and returns the first successful result.
// The delay applies between attempts, never after the last one. On
// exhaustion the returned error is an *ExhaustedError carrying the final
// cause; no partial result is surfaced.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Delay < 0 {
		policy.Delay = DefaultDelay
	}

	var result T
	attempt := 0
	operation := func() error {
		attempt++
		value, err := op(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	}
	notify := func(err error, _ time.Duration) {
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(operation, schedule, notify); err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &ExhaustedError{Attempts: attempt, Last: err}
	}
	return result, nil
}

// Permanent marks err so the policy stops retrying immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
