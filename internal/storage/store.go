package storage

import (
	"context"

	"ksinn/internal/model"
)

// Store persists trained network snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot model.NetworkSnapshot) error
	GetSnapshot(ctx context.Context, id string) (model.NetworkSnapshot, bool, error)
	ListSnapshots(ctx context.Context) ([]model.SnapshotSummary, error)
}
