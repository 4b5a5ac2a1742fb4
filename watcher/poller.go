package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hedeqiang/rebound/backoff"
)

// ErrAlreadyRunning is returned when Watch is called on a running Poller.
var ErrAlreadyRunning = errors.New("watcher: already running")

// Probe checks a dependency once.
type Probe func(ctx context.Context) error

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Interval between checks while the dependency is healthy.
	Interval time.Duration

	// Backoff spaces checks while the dependency is failing.
	Backoff backoff.Config
}

// DefaultPollerConfig returns sensible defaults for polling.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: 5 * time.Second,
		Backoff: backoff.Config{
			MinimumDelay: 500,
			MaximumDelay: 60000,
			GrowthFactor: 2,
			JitterRatio:  0.2,
		},
	}
}

// Poller runs a Probe on a fixed interval. After a failure it waits the next
// backoff delay instead of the interval, and resets the backoff once the
// probe succeeds again.
type Poller struct {
	probe  Probe
	config PollerConfig
	gen    *backoff.Generator

	mu        sync.Mutex
	onError   func(error)
	onRecover func(int)
	running   bool
	cancel    context.CancelFunc
	stopped   chan struct{}
	failures  int
}

var _ Watcher = (*Poller)(nil)

// NewPoller creates a polling watcher for the given probe.
func NewPoller(probe Probe, cfg PollerConfig, opts ...backoff.Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollerConfig().Interval
	}
	return &Poller{
		probe:  probe,
		config: cfg,
		gen:    backoff.New(cfg.Backoff, opts...),
	}
}

// OnError registers a callback for failed checks.
func (p *Poller) OnError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// OnRecover registers a callback for recovery after failures.
func (p *Poller) OnRecover(fn func(failures int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRecover = fn
}

// Failures returns the current number of consecutive failed checks.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Watch begins polling. The first check runs immediately.
func (p *Poller) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.cancel = cancel
	p.stopped = make(chan struct{})
	stopped := p.stopped
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
		close(stopped)
	}()

	timer := time.NewTimer(p.check(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			timer.Reset(p.check(ctx))
		}
	}
}

// Stop terminates the polling loop and waits for it to exit.
func (p *Poller) Stop() error {
	p.mu.Lock()
	cancel, stopped := p.cancel, p.stopped
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
	return nil
}

// check runs the probe once and returns the wait before the next check.
func (p *Poller) check(ctx context.Context) time.Duration {
	err := p.probe(ctx)
	if ctx.Err() != nil {
		return p.config.Interval
	}

	if err != nil {
		p.mu.Lock()
		p.failures++
		fn := p.onError
		p.mu.Unlock()
		if fn != nil {
			fn(err)
		}
		return p.gen.NextDuration()
	}

	p.mu.Lock()
	failures := p.failures
	p.failures = 0
	fn := p.onRecover
	p.mu.Unlock()

	if failures > 0 {
		p.gen.Reset()
		if fn != nil {
			fn(failures)
		}
	}
	return p.config.Interval
}
