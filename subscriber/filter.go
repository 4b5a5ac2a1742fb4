package subscriber

import "github.com/hedeqiang/rebound/event"

// Filter forwards only attempts with selected outcomes.
type Filter struct {
	next     Subscriber
	outcomes map[event.Outcome]bool
}

// Only wraps next so that it receives attempts with one of the given outcomes.
func Only(next Subscriber, outcomes ...event.Outcome) *Filter {
	f := &Filter{next: next, outcomes: make(map[event.Outcome]bool, len(outcomes))}
	for _, o := range outcomes {
		f.outcomes[o] = true
	}
	return f
}

// Send forwards a if its outcome was selected.
func (f *Filter) Send(a event.Attempt) {
	if f.outcomes[a.Outcome] {
		f.next.Send(a)
	}
}

// Close closes the wrapped subscriber.
func (f *Filter) Close() {
	f.next.Close()
}
