package storage

import "fmt"

const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"

	DefaultSnapshotDir = "snapshots"
	DefaultSQLitePath  = "ksinn.db"
)

// DefaultStoreKind is the backend used when none is configured.
func DefaultStoreKind() string {
	return KindFile
}

// NewStore builds a backend by kind. path is the snapshot directory for the
// file backend and the database file for sqlite; empty paths fall back to
// the defaults.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case "", KindFile:
		if path == "" {
			path = DefaultSnapshotDir
		}
		return NewFileStore(path), nil
	case KindSQLite:
		if path == "" {
			path = DefaultSQLitePath
		}
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
