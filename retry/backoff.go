package retry

import (
	"context"
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"

	"github.com/hedeqiang/rebound/backoff"
)

// Backoff implements exponential backoff with a configurable maximum number of attempts.
type Backoff struct {
	// MaxAttempts is the maximum number of retry attempts. 0 means no retries,
	// a negative value means retry until the context ends.
	MaxAttempts int

	// Config bounds the delay sequence.
	Config backoff.Config

	// Random overrides the jitter source. Nil uses backoff.Global.
	Random backoff.Random

	mu  sync.Mutex
	gen *backoff.Generator
}

// Exponential creates a Backoff strategy with sensible defaults: 1s doubling up to 30s.
func Exponential(maxAttempts int) *Backoff {
	return &Backoff{
		MaxAttempts: maxAttempts,
		Config: backoff.Config{
			MinimumDelay: 1000,
			MaximumDelay: 30000,
			GrowthFactor: 2,
		},
	}
}

// Next returns the delay for the given attempt number.
//
// Attempt 1 always maps to the generator's first delay, so one Backoff can be
// reused across Do calls.
func (b *Backoff) Next(attempt int) (time.Duration, bool) {
	if b.MaxAttempts >= 0 && attempt > b.MaxAttempts {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen == nil {
		b.gen = backoff.New(b.Config, backoff.WithRandom(b.Random))
	}
	if b.gen.Attempts() >= attempt {
		b.gen.Reset()
	}
	for b.gen.Attempts() < attempt-1 {
		b.gen.Next()
	}
	return b.gen.NextDuration(), true
}

// Retry runs op through cenkalti/backoff's retry loop, spacing attempts with
// gen. maxTries of 0 means no limit. Errors wrapped with Permanent stop the
// loop at once.
func Retry[T any](ctx context.Context, gen *backoff.Generator, maxTries uint, op func(ctx context.Context) (T, error)) (T, error) {
	var attempt int
	return cbackoff.Retry(ctx,
		func() (T, error) {
			attempt++
			return op(WithAttempt(ctx, attempt))
		},
		cbackoff.WithBackOff(gen),
		cbackoff.WithMaxTries(maxTries),
		cbackoff.WithMaxElapsedTime(0),
	)
}
