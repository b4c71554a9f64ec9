package airquality

import (
	"context"
)

// Provider abstracts the upstream air quality feed.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (Snapshot, error)
}

// StateStore is the contract the state container must satisfy. Every write
// goes through Reduce, so a store only has to serialize access.
type StateStore interface {
	// Begin allocates a new generation and moves the store to Loading.
	Begin() LoadState
	// Dispatch applies ev and returns the resulting current state.
	Dispatch(ev Event) LoadState
	Current() LoadState
}
