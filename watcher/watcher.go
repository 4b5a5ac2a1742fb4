// Package watcher provides health monitoring loops that back off while a
// dependency is failing.
package watcher

import "context"

// Watcher repeatedly checks a dependency.
type Watcher interface {
	// Watch begins monitoring. Blocks until ctx is cancelled or Stop is
	// called. Returns nil on graceful stop.
	Watch(ctx context.Context) error

	// Stop gracefully shuts down the watcher.
	Stop() error

	// OnError registers a callback invoked when a check fails.
	OnError(fn func(error))

	// OnRecover registers a callback invoked on the first successful check
	// after failures, with the number of consecutive failures.
	OnRecover(fn func(failures int))
}
