package status

import (
	"sync/atomic"
	"time"
)

// Store holds the process-wide operational state.
// Reads and writes replace the whole value atomically, so a reader never
// observes a kind paired with another state's reason.
type Store struct {
	current atomic.Pointer[entry]
	onSet   func(from, to State)
}

type entry struct {
	since time.Time
	state State
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTransitionHook registers a function called after every Set.
func WithTransitionHook(fn func(from, to State)) StoreOption {
	return func(s *Store) {
		s.onSet = fn
	}
}

// NewStore returns a Store in the Starting state.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&entry{state: NewStarting(), since: time.Now()})
	return s
}

// Get returns the current state.
func (s *Store) Get() State {
	return s.current.Load().state
}

// Since returns when the current state was entered.
func (s *Store) Since() time.Time {
	return s.current.Load().since
}

// Set replaces the current state and returns the previous one.
func (s *Store) Set(next State) State {
	prev := s.current.Swap(&entry{state: next, since: time.Now()})
	if s.onSet != nil {
		s.onSet(prev.state, next)
	}
	return prev.state
}
