package state

import (
	"context"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*core.Checkpoint
	locks *runLocks
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:  make(map[string]*core.Checkpoint),
		locks: newRunLocks(),
	}
}

// Create stores a new checkpoint.
func (s *MemoryStore) Create(_ context.Context, cp *core.Checkpoint) error {
	next, err := prepareCreate(cp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[next.RunID]; exists {
		return errRunExists(next.RunID)
	}
	s.runs[next.RunID] = next
	return nil
}

// Read returns a copy of the checkpoint.
func (s *MemoryStore) Read(_ context.Context, runID string) (*core.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.runs[runID]
	if !ok {
		return nil, core.ErrRunMissing(runID)
	}
	return cp.Clone(), nil
}

// Patch applies mutate under the run's lock.
func (s *MemoryStore) Patch(ctx context.Context, runID string, expected core.Stage, mutate func(*core.Checkpoint) error) (*core.Checkpoint, error) {
	unlock := s.locks.lock(runID)
	defer unlock()

	current, err := s.Read(ctx, runID)
	if err != nil {
		return nil, err
	}
	next, err := applyPatch(current, expected, mutate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, core.ErrRunMissing(runID)
	}
	s.runs[runID] = next
	return next.Clone(), nil
}

// Delete removes the checkpoint.
func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	unlock := s.locks.lock(runID)
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// List returns all runs, newest first.
func (s *MemoryStore) List(_ context.Context) ([]core.CheckpointSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.CheckpointSummary, 0, len(s.runs))
	for _, cp := range s.runs {
		out = append(out, cp.Summary())
	}
	sortSummaries(out)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func sortSummaries(out []core.CheckpointSummary) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
}
