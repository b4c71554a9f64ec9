package store

import (
	"sync"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

// MemoryStore is a concurrency-safe in-memory container for the current load
// state of the dashboard.
type MemoryStore struct {
	mu sync.RWMutex

	state airquality.LoadState
	// last generation handed out by Begin
	generation uint64
}

// NewMemoryStore creates a MemoryStore in the NotStarted state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Begin allocates the next generation and applies its start event.
func (s *MemoryStore) Begin() airquality.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = airquality.Reduce(s.state, airquality.Started(s.generation))
	return s.state
}

// Dispatch applies ev through the reducer and returns the resulting state.
func (s *MemoryStore) Dispatch(ev airquality.Event) airquality.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = airquality.Reduce(s.state, ev)
	return s.state
}

// Current returns the current state.
func (s *MemoryStore) Current() airquality.LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

var _ airquality.StateStore = (*MemoryStore)(nil)
