package dataset

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/couchcryptid/tribe-origin-map/internal/observability"
)

// ErrNotLoaded is returned by Store.Snapshot before any load has completed.
var ErrNotLoaded = errors.New("datasets not loaded yet")

type state struct {
	snap *domain.Snapshot
	err  error
}

// Store holds the current snapshot or the error that prevented loading it.
// Readers never block and always see a complete snapshot.
type Store struct {
	current atomic.Pointer[state]
	metrics *observability.Metrics
}

// NewStore creates an empty Store.
func NewStore(metrics *observability.Metrics) *Store {
	return &Store{metrics: metrics}
}

// Set publishes a successfully loaded snapshot.
func (s *Store) Set(snap *domain.Snapshot) {
	s.current.Store(&state{snap: snap})
	s.metrics.SnapshotReady.Set(1)
}

// Fail records a fatal load error. Subsequent Snapshot calls return it.
func (s *Store) Fail(err error) {
	s.current.Store(&state{err: err})
	s.metrics.SnapshotReady.Set(0)
}

// Snapshot returns the current snapshot or the error recorded by Fail.
func (s *Store) Snapshot() (*domain.Snapshot, error) {
	st := s.current.Load()
	if st == nil {
		return nil, ErrNotLoaded
	}
	if st.err != nil {
		return nil, st.err
	}
	return st.snap, nil
}

// CheckReadiness returns nil once the coordinate table has been loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	_, err := s.Snapshot()
	return err
}
