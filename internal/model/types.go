package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// NetworkSnapshot is the persisted state of a trained network. Weights are
// stored as the full node-by-node matrix, row-major, one row per node.
type NetworkSnapshot struct {
	VersionedRecord
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	InputNodes     int         `json:"input_nodes"`
	HiddenNodes    int         `json:"hidden_nodes"`
	OutputNodes    int         `json:"output_nodes"`
	LearningRate   float64     `json:"learning_rate"`
	Weights        [][]float64 `json:"weights"`
	Thresholds     []float64   `json:"thresholds"`
	PercentCorrect float64     `json:"percent_correct"`
	CreatedAt      time.Time   `json:"created_at"`
}

// TotalNodes reports the node count implied by the layer sizes.
func (s NetworkSnapshot) TotalNodes() int {
	return s.InputNodes + s.HiddenNodes + s.OutputNodes
}

// SnapshotSummary is the listing view of a stored snapshot.
type SnapshotSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	InputNodes     int       `json:"input_nodes"`
	HiddenNodes    int       `json:"hidden_nodes"`
	OutputNodes    int       `json:"output_nodes"`
	PercentCorrect float64   `json:"percent_correct"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s NetworkSnapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:             s.ID,
		Name:           s.Name,
		InputNodes:     s.InputNodes,
		HiddenNodes:    s.HiddenNodes,
		OutputNodes:    s.OutputNodes,
		PercentCorrect: s.PercentCorrect,
		CreatedAt:      s.CreatedAt,
	}
}
