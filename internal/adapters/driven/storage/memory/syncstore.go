package memory

import (
	"context"
	"sync"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// Ensure CheckpointStore implements the interface.
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is an in-memory implementation of driven.CheckpointStore.
// Nothing survives the process; it backs dry runs and tests.
type CheckpointStore struct {
	mu     sync.RWMutex
	marks  domain.Watermarks
	writes int
}

// NewCheckpointStore creates a store seeded with a copy of initial.
func NewCheckpointStore(initial domain.Watermarks) *CheckpointStore {
	marks := make(domain.Watermarks)
	for k, v := range initial {
		marks[k] = v
	}
	return &CheckpointStore{marks: marks}
}

// Read returns a copy of the stored watermarks.
func (s *CheckpointStore) Read(_ context.Context) (domain.Watermarks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marks.Clone(), nil
}

// Write replaces the stored watermarks.
func (s *CheckpointStore) Write(_ context.Context, marks domain.Watermarks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = marks.Clone()
	s.writes++
	return nil
}

// Writes returns how many times Write has been called.
func (s *CheckpointStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
