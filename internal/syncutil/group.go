// Package syncutil provides concurrency utilities.
package syncutil

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Group manages a set of goroutines that should be started and stopped together.
// Unlike errgroup.WithContext, one failing goroutine does not cancel the others.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     errgroup.Group
	sem    *semaphore.Weighted
}

// NewGroup creates a new Group derived from the given context. A positive
// limit caps the number of functions running at once.
func NewGroup(ctx context.Context, limit int) *Group {
	ctx, cancel := context.WithCancel(ctx)
	g := &Group{
		ctx:    ctx,
		cancel: cancel,
	}
	if limit > 0 {
		g.sem = semaphore.NewWeighted(int64(limit))
	}
	return g
}

// Context returns the group's context.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go launches fn within the group and returns without waiting for a slot.
// fn receives the group context and should return when it is cancelled.
// If the group is stopped before a slot frees up, fn never runs and the
// context error is reported by Wait.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if g.sem != nil {
			if err := g.sem.Acquire(g.ctx, 1); err != nil {
				return err
			}
			defer g.sem.Release(1)
		}
		return fn(g.ctx)
	})
}

// Wait blocks until every goroutine has returned and reports the first error.
func (g *Group) Wait() error {
	return g.eg.Wait()
}

// Stop cancels the group context and waits for all goroutines to finish.
func (g *Group) Stop() error {
	g.cancel()
	return g.eg.Wait()
}
