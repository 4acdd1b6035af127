package storage

import (
	"context"
	"errors"
	"sync"

	"ksinn/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string]model.NetworkSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string]model.NetworkSnapshot)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot model.NetworkSnapshot) error {
	if snapshot.ID == "" {
		return errors.New("snapshot id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.snapshots[snapshot.ID] = cloneSnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (model.NetworkSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[id]
	if !ok {
		return model.NetworkSnapshot{}, false, nil
	}
	return cloneSnapshot(snapshot), true, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]model.SnapshotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.SnapshotSummary, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		summaries = append(summaries, snapshot.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

func cloneSnapshot(snapshot model.NetworkSnapshot) model.NetworkSnapshot {
	copied := snapshot
	copied.Weights = make([][]float64, len(snapshot.Weights))
	for i, row := range snapshot.Weights {
		copied.Weights[i] = append([]float64(nil), row...)
	}
	copied.Thresholds = append([]float64(nil), snapshot.Thresholds...)
	return copied
}
