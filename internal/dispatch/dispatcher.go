// Package dispatch provides a request handler that can be replaced at runtime.
package dispatch

import (
	"net/http"
	"sync"
	"sync/atomic"
)

// Observer is notified after a new handler has been published.
// Notifications arrive one at a time in increasing version order.
// Implementations must not block.
type Observer interface {
	HandlerSwapped(version uint64)
}

// slot is the immutable value published through the atomic pointer.
// Pairing the handler with its version keeps both in a single atomic load.
type slot struct {
	handler http.Handler
	version uint64
}

// Dispatcher holds the currently active http.Handler behind an atomic pointer.
// Reads never take a lock: every request loads one snapshot and runs to
// completion against it, even if Set is called while the request is in flight.
//
// Example usage:
//
//	d := dispatch.New(initialRouter)
//	srv := &http.Server{Handler: d}
//
//	// From a control operation:
//	d.Set(newRouter)
type Dispatcher struct {
	current  atomic.Pointer[slot]
	observer Observer
	// mu serializes writers only; ServeHTTP never takes it.
	mu      sync.Mutex
	version uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers an observer that is called after every Set.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// New creates a Dispatcher serving the given handler.
// A nil handler is replaced with http.NotFoundHandler so dispatch never panics.
func New(handler http.Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	d.version = 1
	d.current.Store(&slot{handler: orNotFound(handler), version: d.version})
	return d
}

// Set publishes handler as the new current handler.
// It never blocks on readers. Concurrent calls are last-write-wins in the
// order they take the writer lock, and the observer sees that same order.
func (d *Dispatcher) Set(handler http.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.version++
	d.current.Store(&slot{handler: orNotFound(handler), version: d.version})

	if d.observer != nil {
		d.observer.HandlerSwapped(d.version)
	}
}

// Current returns the handler that a request starting now would use.
func (d *Dispatcher) Current() http.Handler {
	return d.current.Load().handler
}

// Version returns the version number of the current handler.
// Versions increase with every Set; the initial handler is version 1.
func (d *Dispatcher) Version() uint64 {
	return d.current.Load().version
}

// Ready reports whether the dispatcher can accept requests. It always can:
// readiness of the behavior itself is reported by the installed handler.
func (d *Dispatcher) Ready() bool {
	return true
}

// ServeHTTP snapshots the current handler and delegates to it.
// Failures are whatever the installed handler produces.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := d.current.Load()
	snapshot.handler.ServeHTTP(w, r)
}

func orNotFound(handler http.Handler) http.Handler {
	if handler == nil {
		return http.NotFoundHandler()
	}
	return handler
}

var _ http.Handler = (*Dispatcher)(nil)
