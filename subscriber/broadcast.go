package subscriber

import (
	"sync"

	"github.com/hedeqiang/rebound/event"
)

// Broadcast fans attempt events out to every registered subscriber.
// Send works on a snapshot, so a slow Callback never blocks Add.
type Broadcast struct {
	mu     sync.Mutex
	subs   []Subscriber
	closed bool
}

// NewBroadcast creates an empty Broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{}
}

// Add registers sub. A subscriber added after Close is closed at once.
func (b *Broadcast) Add(sub Subscriber) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.Close()
		return
	}
	subs := make([]Subscriber, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, sub)
	b.mu.Unlock()
}

// Send delivers a to each subscriber in registration order.
func (b *Broadcast) Send(a event.Attempt) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, sub := range subs {
		sub.Send(a)
	}
}

// Close closes every subscriber. Later calls do nothing.
func (b *Broadcast) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.closed = true
	b.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// Len returns the number of registered subscribers.
func (b *Broadcast) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
