package topology

import (
	"sync"
)

// Store holds this process's own topology description.
//
// It is created once by the application and passed to every component that needs
// the local topology. There is a single writer (the local process) and many
// readers; writes replace the whole value, last writer wins.
type Store struct {
	mu       sync.RWMutex
	topology *Topology
}

// NewStore creates a store, optionally seeded with an initial topology.
func NewStore(initial *Topology) *Store {
	return &Store{topology: initial.Clone()}
}

// Set replaces the stored topology.
func (s *Store) Set(t *Topology) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topology = t.Clone()
}

// Get returns a copy of the stored topology, or nil when none has been registered yet.
func (s *Store) Get() *Topology {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.topology.Clone()
}

// Update applies fn to a copy of the stored topology and stores the result.
// It reports false when no topology is registered.
func (s *Store) Update(fn func(t *Topology)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.topology == nil {
		return false
	}
	next := s.topology.Clone()
	fn(next)
	s.topology = next
	return true
}
