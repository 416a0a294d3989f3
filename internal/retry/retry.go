// Package retry runs fallible operations with exponential backoff,
// stopping early on non-retryable failure kinds.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/vietddude/storefront/internal/core/apperr"
)

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration // 0 = no per-attempt deadline

	// OnRetry is invoked synchronously before each retry delay, for
	// observability. Receives the attempt number that just failed
	// (1-based). Must not block.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy provides sensible defaults for network submissions.
var DefaultPolicy = Policy{
	MaxAttempts:    3,
	BaseDelay:      500 * time.Millisecond,
	MaxDelay:       30 * time.Second,
	AttemptTimeout: 10 * time.Second,
}

// Operation is one attempt of a fallible call. The context carries the
// per-attempt deadline; a cancelled attempt must return rather than
// hang.
type Operation[T any] func(ctx context.Context) (T, error)

// Do executes op up to policy.MaxAttempts times with exponential
// backoff. It stops immediately on success or the first non-retryable
// error, and returns the last error once attempts are exhausted. A
// rate-limit error's RetryAfter is honored as a floor on the next
// delay.
func Do[T any](ctx context.Context, policy Policy, op Operation[T]) (T, error) {
	var zero T
	var lastErr error

	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := runAttempt(ctx, policy, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !apperr.Retryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return zero, lastErr
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(backoff(attempt, policy, err)):
		}
	}

	return zero, lastErr
}

// runAttempt executes one attempt under its own deadline. A deadline
// hit is reported as a timeout error so the scheduler treats it like
// any other retryable failure.
func runAttempt[T any](ctx context.Context, policy Policy, op Operation[T]) (T, error) {
	attemptCtx := ctx
	if policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := op(attemptCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		var zero T
		return zero, apperr.Timeout(time.Since(start))
	}
	return result, err
}

// backoff computes the delay before the attempt following the given
// 1-based failed attempt: base, 2×base, 4×base, ... capped at
// MaxDelay.
func backoff(attempt int, policy Policy, err error) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	d := time.Duration(delay)

	// A rate-limited attempt dictates its own minimum wait.
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindRateLimit && appErr.RetryAfter > d {
		d = appErr.RetryAfter
	}
	return d
}
