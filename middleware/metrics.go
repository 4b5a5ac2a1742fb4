package middleware

import (
	"context"
	"sync/atomic"

	"github.com/hedeqiang/rebound/retry"
)

// Metrics collects basic counters for attempts.
type Metrics struct {
	calls    atomic.Uint64
	failures atomic.Uint64
	retried  atomic.Uint64
}

// NewMetrics creates a metrics collection middleware.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Wrap decorates the handler with metrics collection.
func (m *Metrics) Wrap(next Handler) Handler {
	return func(ctx context.Context) error {
		m.calls.Add(1)
		if attempt := retry.AttemptFromContext(ctx); attempt > 1 {
			m.retried.Add(1)
		}
		err := next(ctx)
		if err != nil {
			m.failures.Add(1)
		}
		return err
	}
}

// Calls returns the number of attempts made.
func (m *Metrics) Calls() uint64 {
	return m.calls.Load()
}

// Failures returns the number of attempts that returned an error.
func (m *Metrics) Failures() uint64 {
	return m.failures.Load()
}

// Retries returns the number of attempts that were not the first call.
func (m *Metrics) Retries() uint64 {
	return m.retried.Load()
}
