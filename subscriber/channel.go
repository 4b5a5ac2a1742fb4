package subscriber

import (
	"sync"

	"github.com/hedeqiang/rebound/event"
)

// Channel delivers attempt events through a Go channel.
type Channel struct {
	mu      sync.Mutex
	ch      chan event.Attempt
	closed  bool
	dropped uint64
}

// NewChannel creates a channel-based subscriber with the given buffer size.
func NewChannel(bufSize int) *Channel {
	if bufSize <= 0 {
		bufSize = 128
	}
	return &Channel{
		ch: make(chan event.Attempt, bufSize),
	}
}

// Attempts returns the channel to read events from. It is closed by Close.
func (c *Channel) Attempts() <-chan event.Attempt {
	return c.ch
}

// Send delivers an event to the channel. Drops the event if the channel is full.
func (c *Channel) Send(a event.Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- a:
	default:
		c.dropped++
	}
}

// Dropped returns the number of events discarded because the buffer was full.
func (c *Channel) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close shuts down the subscriber and closes the channel.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
