package config

import "sync/atomic"

// Runtime provides atomic access to the last configuration accepted by a
// reload. Rejected configurations never reach it, so after a failed reload
// Get still returns the previous good configuration (or nil before the first).
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a new Runtime with the given initial configuration.
// initial may be nil.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	if initial != nil {
		r.ptr.Store(initial)
	}
	return r
}

// Get returns the current configuration atomically.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store atomically replaces the configuration.
// Readers holding the previous pointer keep a consistent view of it.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}
