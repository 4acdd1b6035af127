package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const sweepsDir = "sweeps"

// SweepSummary aggregates the final accuracy of several independently
// seeded runs of the same configuration.
type SweepSummary struct {
	ID             string    `json:"id"`
	StartedAtUTC   string    `json:"started_at_utc,omitempty"`
	CompletedAtUTC string    `json:"completed_at_utc,omitempty"`
	Seeds          []int64   `json:"seeds"`
	RunIDs         []string  `json:"run_ids"`
	Percents       []float64 `json:"percents"`
	MeanPercent    float64   `json:"mean_percent"`
	StdPercent     float64   `json:"std_percent"`
	BestPercent    float64   `json:"best_percent"`
	WorstPercent   float64   `json:"worst_percent"`
	BestRunID      string    `json:"best_run_id,omitempty"`
	AboveBaseline  int       `json:"above_baseline"`
}

// Summarize fills the aggregate fields from Percents. Runs at or below
// baseline percent do not count toward AboveBaseline.
func (s *SweepSummary) Summarize(baseline float64) {
	s.MeanPercent, s.StdPercent = 0, 0
	s.BestPercent, s.WorstPercent = 0, 0
	s.BestRunID = ""
	s.AboveBaseline = 0
	if len(s.Percents) == 0 {
		return
	}

	if len(s.Percents) == 1 {
		s.MeanPercent = s.Percents[0]
	} else {
		s.MeanPercent, s.StdPercent = stat.MeanStdDev(s.Percents, nil)
	}
	best := floats.MaxIdx(s.Percents)
	s.BestPercent = s.Percents[best]
	s.WorstPercent = floats.Min(s.Percents)
	if best < len(s.RunIDs) {
		s.BestRunID = s.RunIDs[best]
	}
	for _, pct := range s.Percents {
		if pct > baseline {
			s.AboveBaseline++
		}
	}
}

func WriteSweepSummary(baseDir string, summary SweepSummary) error {
	if summary.ID == "" {
		return fmt.Errorf("sweep id is required")
	}
	path := sweepSummaryPath(baseDir, summary.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, summary)
}

func ReadSweepSummary(baseDir, id string) (SweepSummary, bool, error) {
	if id == "" {
		return SweepSummary{}, false, fmt.Errorf("sweep id is required")
	}
	var summary SweepSummary
	ok, err := readJSON(sweepSummaryPath(baseDir, id), &summary)
	if err != nil || !ok {
		return SweepSummary{}, ok, err
	}
	return summary, true, nil
}

// ListSweepSummaries returns stored sweeps, newest first.
func ListSweepSummaries(baseDir string) ([]SweepSummary, error) {
	root := filepath.Join(baseDir, sweepsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepSummary{}, nil
		}
		return nil, err
	}

	sweeps := make([]SweepSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary, ok, err := ReadSweepSummary(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		sweeps = append(sweeps, summary)
	}
	sort.Slice(sweeps, func(i, j int) bool {
		switch {
		case sweeps[i].StartedAtUTC == sweeps[j].StartedAtUTC:
			return sweeps[i].ID < sweeps[j].ID
		case sweeps[i].StartedAtUTC == "":
			return false
		case sweeps[j].StartedAtUTC == "":
			return true
		default:
			return sweeps[i].StartedAtUTC > sweeps[j].StartedAtUTC
		}
	})
	return sweeps, nil
}

func sweepSummaryPath(baseDir, id string) string {
	return filepath.Join(baseDir, sweepsDir, id, "summary.json")
}
