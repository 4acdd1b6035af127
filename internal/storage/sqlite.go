//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"ksinn/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot model.NetworkSnapshot) error {
	if snapshot.ID == "" {
		return errors.New("snapshot id is required")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snapshot.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, schema_version, codec_version, input_nodes, hidden_nodes, output_nodes, percent_correct, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			input_nodes = excluded.input_nodes,
			hidden_nodes = excluded.hidden_nodes,
			output_nodes = excluded.output_nodes,
			percent_correct = excluded.percent_correct,
			created_at = excluded.created_at,
			payload = excluded.payload
	`, snapshot.ID, snapshot.Name, snapshot.SchemaVersion, snapshot.CodecVersion,
		snapshot.InputNodes, snapshot.HiddenNodes, snapshot.OutputNodes,
		snapshot.PercentCorrect, snapshot.CreatedAt.UTC().Format(time.RFC3339Nano), payload)
	return err
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (model.NetworkSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.NetworkSnapshot{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NetworkSnapshot{}, false, nil
		}
		return model.NetworkSnapshot{}, false, err
	}

	snapshot, err := DecodeSnapshot(payload)
	if err != nil {
		return model.NetworkSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snapshot, true, nil
}

// ListSnapshots reads the summary columns only; payloads are not decoded.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]model.SnapshotSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, input_nodes, hidden_nodes, output_nodes, percent_correct, created_at
		FROM snapshots
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]model.SnapshotSummary, 0, 16)
	for rows.Next() {
		var (
			summary   model.SnapshotSummary
			createdAt string
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.InputNodes, &summary.HiddenNodes, &summary.OutputNodes, &summary.PercentCorrect, &createdAt); err != nil {
			return nil, err
		}
		summary.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for snapshot %s: %w", summary.ID, err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			input_nodes INTEGER NOT NULL,
			hidden_nodes INTEGER NOT NULL,
			output_nodes INTEGER NOT NULL,
			percent_correct REAL NOT NULL,
			created_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
