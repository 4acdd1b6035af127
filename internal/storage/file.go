package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ksinn/internal/model"
)

const snapshotExt = ".json"

// FileStore keeps one JSON document per snapshot in a directory. Files are
// named after the snapshot name; lookups go by id.
type FileStore struct {
	dir string

	mu          sync.RWMutex
	initialized bool
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" {
		return errors.New("snapshot directory is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

func (s *FileStore) SaveSnapshot(_ context.Context, snapshot model.NetworkSnapshot) error {
	if snapshot.ID == "" {
		return errors.New("snapshot id is required")
	}
	name := snapshot.Name
	if name == "" {
		name = snapshot.ID
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid snapshot name: %q", name)
	}

	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snapshot.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}

	path := filepath.Join(s.dir, name+snapshotExt)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) GetSnapshot(ctx context.Context, id string) (model.NetworkSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, err := s.readAll(ctx)
	if err != nil {
		return model.NetworkSnapshot{}, false, err
	}
	for _, snapshot := range snapshots {
		if snapshot.ID == id {
			return snapshot, true, nil
		}
	}
	return model.NetworkSnapshot{}, false, nil
}

func (s *FileStore) ListSnapshots(ctx context.Context) ([]model.SnapshotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.SnapshotSummary, 0, len(snapshots))
	for _, snapshot := range snapshots {
		summaries = append(summaries, snapshot.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (s *FileStore) readAll(ctx context.Context) ([]model.NetworkSnapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	snapshots := make([]model.NetworkSnapshot, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != snapshotExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		snapshot, err := DecodeSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", entry.Name(), err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// sortSummaries orders snapshots newest first, then by id.
func sortSummaries(summaries []model.SnapshotSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
}
