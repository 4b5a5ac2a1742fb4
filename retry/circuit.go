package retry

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// Closed means the circuit is healthy; requests flow normally.
	Closed State = iota
	// Open means too many failures have occurred; requests are rejected.
	Open
	// HalfOpen means the circuit is testing whether the downstream has recovered.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops retry loops from hammering a dependency that keeps
// failing. It opens after threshold consecutive failures and lets a single
// probe through once resetTimeout has passed.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	probing      bool
	now          func() time.Time
}

// NewCircuitBreaker creates a circuit breaker that opens after threshold
// consecutive failures and resets after resetTimeout.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Allow reports whether a request is permitted.
// In Closed state, it always allows. In Open state, it checks if the reset
// timeout has elapsed (transitioning to HalfOpen). In HalfOpen state, only
// one probe is in flight at a time.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case Closed:
		return true
	case Open:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.state = HalfOpen
		cb.probing = true
		return true
	case HalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful operation, resetting the breaker to Closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probing = false
	cb.state = Closed
}

// RecordFailure records a failed operation. A failed probe reopens the
// breaker immediately; otherwise it opens once failures reach the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.probing = false
	if cb.state == HalfOpen || cb.failures >= cb.threshold {
		cb.state = Open
		cb.openedAt = cb.now()
	}
}

// CurrentState returns the current state of the circuit breaker.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
