package storage

import (
	"testing"
	"time"

	"ksinn/internal/model"
)

func testSnapshot(t *testing.T, id string, percent float64, createdAt time.Time) model.NetworkSnapshot {
	t.Helper()
	weights := make([][]float64, 6)
	for i := range weights {
		weights[i] = make([]float64, 6)
		for j := range weights[i] {
			weights[i][j] = float64(i*6+j) / 100
		}
	}
	return model.NetworkSnapshot{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		Name:            SnapshotName(percent, createdAt),
		InputNodes:      2,
		HiddenNodes:     2,
		OutputNodes:     2,
		LearningRate:    0.18,
		Weights:         weights,
		Thresholds:      []float64{0.5, 1, 1.5, 2, 2.5, 3},
		PercentCorrect:  percent,
		CreatedAt:       createdAt.UTC(),
	}
}

func assertSnapshotEqual(t *testing.T, got, want model.NetworkSnapshot) {
	t.Helper()
	if got.ID != want.ID || got.Name != want.Name || got.PercentCorrect != want.PercentCorrect {
		t.Fatalf("unexpected snapshot identity: got=%s/%s/%f want=%s/%s/%f", got.ID, got.Name, got.PercentCorrect, want.ID, want.Name, want.PercentCorrect)
	}
	if got.InputNodes != want.InputNodes || got.HiddenNodes != want.HiddenNodes || got.OutputNodes != want.OutputNodes {
		t.Fatalf("unexpected layer sizes: got=%d/%d/%d want=%d/%d/%d", got.InputNodes, got.HiddenNodes, got.OutputNodes, want.InputNodes, want.HiddenNodes, want.OutputNodes)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("unexpected created at: got=%v want=%v", got.CreatedAt, want.CreatedAt)
	}
	if len(got.Weights) != len(want.Weights) || len(got.Thresholds) != len(want.Thresholds) {
		t.Fatalf("unexpected shape: weights=%d thresholds=%d", len(got.Weights), len(got.Thresholds))
	}
	for i := range want.Weights {
		for j := range want.Weights[i] {
			if got.Weights[i][j] != want.Weights[i][j] {
				t.Fatalf("weight (%d,%d) mismatch: got=%v want=%v", i, j, got.Weights[i][j], want.Weights[i][j])
			}
		}
	}
	for i := range want.Thresholds {
		if got.Thresholds[i] != want.Thresholds[i] {
			t.Fatalf("threshold %d mismatch: got=%v want=%v", i, got.Thresholds[i], want.Thresholds[i])
		}
	}
}
