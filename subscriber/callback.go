package subscriber

import (
	"sync"

	"github.com/hedeqiang/rebound/event"
)

// CallbackFunc is the function signature for attempt callbacks.
type CallbackFunc func(event.Attempt)

// Callback delivers attempt events by invoking a callback function on the
// publishing goroutine.
type Callback struct {
	fn     CallbackFunc
	mu     sync.RWMutex
	closed bool
}

// NewCallback creates a callback-based subscriber.
func NewCallback(fn CallbackFunc) *Callback {
	return &Callback{fn: fn}
}

// Send invokes the callback. No-op once closed.
func (c *Callback) Send(a event.Attempt) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.fn(a)
}

// Close stops the subscriber. In-flight callbacks finish first.
func (c *Callback) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
