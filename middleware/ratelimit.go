package middleware

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/hedeqiang/rebound/retry"
)

// RateLimit limits how often attempts reach the downstream, across all
// operations sharing it.
type RateLimit struct {
	limiter *rate.Limiter
}

// NewRateLimit creates a rate-limiting middleware that allows one attempt
// per interval with the given burst.
func NewRateLimit(interval time.Duration, burst int) *RateLimit {
	if burst < 1 {
		burst = 1
	}
	return &RateLimit{
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Wrap decorates the handler with rate limiting. Attempts wait for a token;
// if the context ends first the attempt fails without reaching next.
func (r *RateLimit) Wrap(next Handler) Handler {
	return func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("middleware/ratelimit: %w", err))
		}
		return next(ctx)
	}
}
