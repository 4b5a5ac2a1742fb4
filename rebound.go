// Package rebound runs operations under named retry policies with
// exponential backoff and jitter.
//
// Usage:
//
//	r := rebound.New(
//	    rebound.WithLogger(logger),
//	    rebound.WithPolicy(policy.Policy{
//	        Name:        "db",
//	        MaxAttempts: 5,
//	        Backoff:     backoff.Config{MinimumDelay: 50, MaximumDelay: 2000, JitterRatio: 0.2},
//	    }),
//	)
//
//	err := r.Do(ctx, "db", func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	})
package rebound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hedeqiang/rebound/backoff"
	"github.com/hedeqiang/rebound/event"
	"github.com/hedeqiang/rebound/internal/syncutil"
	"github.com/hedeqiang/rebound/middleware"
	"github.com/hedeqiang/rebound/policy"
	"github.com/hedeqiang/rebound/retry"
	"github.com/hedeqiang/rebound/subscriber"
)

// Rebound is the main SDK entry point.
type Rebound struct {
	registry    *policy.Registry
	breaker     *retry.CircuitBreaker
	random      backoff.Random
	subscribers *subscriber.Broadcast
	logger      *zap.Logger
	config      Config
	group       *syncutil.Group

	// extraPolicies come from WithPolicy and are registered after config.Policies.
	extraPolicies []policy.Policy

	mwMu        sync.RWMutex
	middlewares []middleware.Middleware

	// mu guards shutdown. Go holds it only while handing work to the group,
	// which never blocks, so Shutdown can always take it.
	mu       sync.RWMutex
	shutdown bool
}

// New creates a new Rebound instance with the given options.
// Policies from the configuration are registered immediately; invalid or
// duplicate ones are logged and skipped.
func New(opts ...Option) *Rebound {
	r := &Rebound{
		registry:    policy.NewRegistry(),
		subscribers: subscriber.NewBroadcast(),
		logger:      zap.NewNop(),
		config:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.breaker == nil && r.config.Breaker.Threshold > 0 {
		r.breaker = retry.NewCircuitBreaker(r.config.Breaker.Threshold, r.config.Breaker.ResetTimeout)
	}
	r.group = syncutil.NewGroup(context.Background(), r.config.MaxConcurrent)

	policies := append(append([]policy.Policy(nil), r.config.Policies...), r.extraPolicies...)
	for _, p := range policies {
		if err := r.AddPolicy(p); err != nil {
			r.logger.Warn("skipping policy", zap.String("policy", p.Name), zap.Error(err))
		}
	}
	return r
}

// AddPolicy validates and registers a policy. Returns an error if a policy
// with the same name is already registered.
func (r *Rebound) AddPolicy(p policy.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.registry.Register(p)
}

// Policies returns the names of all registered policies.
func (r *Rebound) Policies() []string {
	return r.registry.Names()
}

// Use appends middleware to the attempt pipeline.
func (r *Rebound) Use(mw ...middleware.Middleware) {
	r.mwMu.Lock()
	defer r.mwMu.Unlock()
	r.middlewares = append(r.middlewares, mw...)
}

// Subscribe registers a subscriber for attempt events.
func (r *Rebound) Subscribe(sub subscriber.Subscriber) {
	r.subscribers.Add(sub)
}

// Breaker returns the shared circuit breaker, or nil if none is configured.
func (r *Rebound) Breaker() *retry.CircuitBreaker {
	return r.breaker
}

// Do runs fn under the named policy, retrying failed attempts with backoff.
// It returns the last error once the policy's attempts are exhausted, the
// unwrapped error of a retry.Permanent failure, or the context error.
func (r *Rebound) Do(ctx context.Context, name string, fn middleware.Handler) error {
	r.mu.RLock()
	shutdown := r.shutdown
	r.mu.RUnlock()
	if shutdown {
		return ErrShutdown
	}
	return r.run(ctx, name, fn)
}

// Go runs Do in the background and returns at once, even when
// MaxConcurrent operations are already running. Errors are logged, not
// returned. The context passed to fn is cancelled if Shutdown gives up
// waiting; operations still queued for a slot at that point never run.
func (r *Rebound) Go(name string, fn middleware.Handler) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.shutdown {
		return ErrShutdown
	}
	if _, ok := r.registry.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}

	r.group.Go(func(ctx context.Context) error {
		if err := r.run(ctx, name, fn); err != nil {
			r.logger.Error("background operation failed", zap.String("policy", name), zap.Error(err))
		}
		return nil
	})
	return nil
}

func (r *Rebound) run(ctx context.Context, name string, fn middleware.Handler) error {
	p, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}

	r.mwMu.RLock()
	mws := make([]middleware.Middleware, len(r.middlewares))
	copy(mws, r.middlewares)
	r.mwMu.RUnlock()

	handler := middleware.Chain(fn, mws...)
	ctx = policy.WithName(ctx, name)

	var last int
	err := retry.Do(ctx, p.Strategy(r.random), func(ctx context.Context) error {
		last = retry.AttemptFromContext(ctx)
		if r.breaker != nil && !r.breaker.Allow() {
			r.publish(name, last, 0, ErrCircuitOpen, event.Rejected)
			return retry.Permanent(ErrCircuitOpen)
		}

		err := handler(ctx)
		if r.breaker != nil {
			if err == nil {
				r.breaker.RecordSuccess()
			} else {
				r.breaker.RecordFailure()
			}
		}
		return err
	}, retry.OnRetry(func(attempt int, err error, delay time.Duration) {
		r.logger.Debug("retrying",
			zap.String("policy", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		r.publish(name, attempt, delay, err, event.Retrying)
	}))

	switch {
	case err == nil:
		r.publish(name, last, 0, nil, event.Succeeded)
	case errors.Is(err, ErrCircuitOpen):
		r.logger.Warn("circuit open", zap.String("policy", name), zap.Int("attempt", last))
	default:
		r.logger.Warn("operation failed",
			zap.String("policy", name),
			zap.Int("attempts", last),
			zap.Error(err),
		)
		r.publish(name, last, 0, err, event.Failed)
	}
	return err
}

func (r *Rebound) publish(name string, attempt int, delay time.Duration, err error, outcome event.Outcome) {
	r.subscribers.Send(event.Attempt{
		Policy:  name,
		Attempt: attempt,
		Delay:   delay,
		Err:     err,
		Outcome: outcome,
		Time:    time.Now(),
	})
}

// Shutdown refuses new work and waits for background operations to finish.
// If ctx ends first, the remaining operations are cancelled and ctx.Err()
// is returned. Subscribers are closed once every operation has returned.
func (r *Rebound) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.group.Wait()
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		_ = r.group.Stop()
	}

	r.subscribers.Close()
	return err
}
