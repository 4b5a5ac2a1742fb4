// Package middleware provides interceptors for retried operations.
package middleware

import "context"

// Handler runs one attempt of an operation.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler, adding cross-cutting behavior (logging, metrics, etc.).
type Middleware interface {
	// Wrap returns a new Handler that decorates the given inner handler.
	Wrap(next Handler) Handler
}

// Func adapts a plain function to the Middleware interface.
type Func func(next Handler) Handler

// Wrap calls f(next).
func (f Func) Wrap(next Handler) Handler {
	return f(next)
}

// Chain composes multiple middlewares into a single Handler, applying them
// in the order provided (first middleware is outermost).
func Chain(handler Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i].Wrap(handler)
	}
	return handler
}
