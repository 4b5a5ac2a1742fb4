// Package retry provides retry strategies and a circuit breaker for resilient operations.
package retry

import (
	"context"
	"errors"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
)

// Strategy defines a retry policy.
type Strategy interface {
	// Next returns the delay before retry number attempt (starting at 1).
	// Returns false if no more retries should be attempted.
	Next(attempt int) (delay time.Duration, ok bool)
}

// Permanent wraps err so that Do and Retry stop immediately and return err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return cbackoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *cbackoff.PermanentError
	return errors.As(err, &perm)
}

// DoOption configures a single Do call.
type DoOption func(*doOptions)

type doOptions struct {
	onRetry func(attempt int, err error, delay time.Duration)
}

// OnRetry registers a hook invoked after a failed attempt, before waiting delay.
func OnRetry(fn func(attempt int, err error, delay time.Duration)) DoOption {
	return func(o *doOptions) {
		o.onRetry = fn
	}
}

// Do executes fn, retrying according to the given strategy on non-nil errors.
// It respects context cancellation. The attempt number, starting at 1, is
// available to fn through AttemptFromContext.
func Do(ctx context.Context, s Strategy, fn func(ctx context.Context) error, opts ...DoOption) error {
	var o doOptions
	for _, opt := range opts {
		opt(&o)
	}

	for attempt := 1; ; attempt++ {
		err := fn(WithAttempt(ctx, attempt))
		if err == nil {
			return nil
		}

		var perm *cbackoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Unwrap()
		}

		delay, ok := s.Next(attempt)
		if !ok {
			return err
		}
		if o.onRetry != nil {
			o.onRetry(attempt, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type attemptKey struct{}

// WithAttempt returns a copy of ctx carrying the attempt number.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// AttemptFromContext returns the attempt number stored by Do, or 0.
func AttemptFromContext(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}
