// Package subscriber provides attempt event distribution patterns.
package subscriber

import (
	"github.com/hedeqiang/rebound/event"
)

// Subscriber receives attempt events through a chosen delivery mechanism.
type Subscriber interface {
	// Send delivers an event to this subscriber. Non-blocking.
	Send(a event.Attempt)

	// Close terminates the subscriber and releases resources.
	Close()
}
