package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, airquality.PhaseNotStarted, s.Current().Phase)

	st := s.Begin()
	assert.Equal(t, airquality.PhaseLoading, st.Phase)
	assert.Equal(t, uint64(1), st.Generation)

	st = s.Dispatch(airquality.Succeeded(1, airquality.Snapshot{AQI: 30}))
	assert.Equal(t, airquality.PhaseReady, st.Phase)
	assert.Equal(t, st, s.Current())
}

func TestMemoryStoreDiscardsSupersededResult(t *testing.T) {
	s := NewMemoryStore()
	first := s.Begin()
	second := s.Begin()
	assert.Greater(t, second.Generation, first.Generation)

	st := s.Dispatch(airquality.Failed(first.Generation, errors.New("late")))
	assert.Equal(t, airquality.PhaseLoading, st.Phase)
	assert.Equal(t, second.Generation, st.Generation)
}

func TestMemoryStoreConcurrentBegin(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := s.Begin()
			s.Dispatch(airquality.Succeeded(st.Generation, airquality.Snapshot{}))
			_ = s.Current()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), s.Current().Generation)
}
