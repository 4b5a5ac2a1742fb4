package rebound

import (
	"go.uber.org/zap"

	"github.com/hedeqiang/rebound/backoff"
	"github.com/hedeqiang/rebound/middleware"
	"github.com/hedeqiang/rebound/policy"
	"github.com/hedeqiang/rebound/retry"
	"github.com/hedeqiang/rebound/subscriber"
)

// Option configures a Rebound instance.
type Option func(*Rebound)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(r *Rebound) {
		r.config = cfg
	}
}

// WithPolicy adds a policy on top of the configured ones, regardless of
// where WithConfig appears among the options.
func WithPolicy(p policy.Policy) Option {
	return func(r *Rebound) {
		r.extraPolicies = append(r.extraPolicies, p)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Rebound) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMiddleware adds middleware to the attempt pipeline.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(r *Rebound) {
		r.middlewares = append(r.middlewares, mw...)
	}
}

// WithCircuitBreaker sets a breaker shared by every policy, overriding Config.Breaker.
func WithCircuitBreaker(cb *retry.CircuitBreaker) Option {
	return func(r *Rebound) {
		r.breaker = cb
	}
}

// WithRandom sets the jitter source for every policy. It is shared by
// concurrent Do calls, so it must be safe for concurrent use.
func WithRandom(rnd backoff.Random) Option {
	return func(r *Rebound) {
		r.random = rnd
	}
}

// WithSubscriber registers a subscriber for attempt events.
func WithSubscriber(sub subscriber.Subscriber) Option {
	return func(r *Rebound) {
		r.subscribers.Add(sub)
	}
}
