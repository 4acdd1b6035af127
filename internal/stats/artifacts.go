package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	runIndexFile    = "run_index.json"
	configFile      = "config.json"
	checkpointsFile = "checkpoints.csv"
	finalFile       = "final.json"
)

var checkpointHeader = []string{"iterations", "percent_correct", "error_percent"}

type RunConfig struct {
	RunID             string  `json:"run_id"`
	SweepID           string  `json:"sweep_id,omitempty"`
	InputNodes        int     `json:"input_nodes"`
	HiddenNodes       int     `json:"hidden_nodes"`
	OutputNodes       int     `json:"output_nodes"`
	LearningRate      float64 `json:"learning_rate"`
	MaxIterations     int     `json:"max_iterations"`
	ResetRate         int     `json:"reset_rate"`
	Verbose           bool    `json:"verbose"`
	Seed              int64   `json:"seed"`
	SnapshotThreshold float64 `json:"snapshot_threshold"`
	MinMelodyLength   int     `json:"min_melody_length"`
	MaxMelodyLength   int     `json:"max_melody_length"`
	Store             string  `json:"store,omitempty"`
}

// CheckpointEntry is one progress sample taken at the reset cadence.
type CheckpointEntry struct {
	Iterations     int     `json:"iterations"`
	PercentCorrect float64 `json:"percent_correct"`
	ErrorPercent   float64 `json:"error_percent"`
}

// FinalEntry is the outcome for one key of the closing evaluation pass.
type FinalEntry struct {
	Key     int     `json:"key"`
	Guess   int     `json:"guess"`
	Error   float64 `json:"error"`
	Correct bool    `json:"correct"`
}

type FinalReport struct {
	PercentCorrect float64      `json:"percent_correct"`
	Accumulative   int          `json:"accumulative_iterations"`
	SnapshotID     string       `json:"snapshot_id,omitempty"`
	Keys           []FinalEntry `json:"keys"`
}

type RunArtifacts struct {
	Config      RunConfig         `json:"config"`
	Checkpoints []CheckpointEntry `json:"checkpoints"`
	Final       FinalReport       `json:"final"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	SweepID        string  `json:"sweep_id,omitempty"`
	Seed           int64   `json:"seed"`
	HiddenNodes    int     `json:"hidden_nodes"`
	LearningRate   float64 `json:"learning_rate"`
	Iterations     int     `json:"iterations"`
	PercentCorrect float64 `json:"percent_correct"`
	SnapshotID     string  `json:"snapshot_id,omitempty"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeCheckpoints(filepath.Join(runDir, checkpointsFile), artifacts.Checkpoints); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, finalFile), artifacts.Final); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunArtifacts loads a run written by WriteRunArtifacts. ok is false when
// the run directory has no config.
func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	if strings.TrimSpace(runID) == "" {
		return RunArtifacts{}, false, fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, runID)

	var artifacts RunArtifacts
	ok, err := readJSON(filepath.Join(runDir, configFile), &artifacts.Config)
	if err != nil || !ok {
		return RunArtifacts{}, ok, err
	}
	checkpoints, _, err := readCheckpoints(filepath.Join(runDir, checkpointsFile))
	if err != nil {
		return RunArtifacts{}, false, err
	}
	artifacts.Checkpoints = checkpoints
	if _, err := readJSON(filepath.Join(runDir, finalFile), &artifacts.Final); err != nil {
		return RunArtifacts{}, false, err
	}
	return artifacts, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns indexed runs, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func writeCheckpoints(path string, checkpoints []CheckpointEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(checkpointHeader); err != nil {
		return err
	}
	for _, cp := range checkpoints {
		if err := writer.Write([]string{
			strconv.Itoa(cp.Iterations),
			strconv.FormatFloat(cp.PercentCorrect, 'f', -1, 64),
			strconv.FormatFloat(cp.ErrorPercent, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func readCheckpoints(path string) ([]CheckpointEntry, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []CheckpointEntry{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < len(checkpointHeader) {
		return nil, false, fmt.Errorf("checkpoint header must have %d columns", len(checkpointHeader))
	}

	checkpoints := make([]CheckpointEntry, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		iterations, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, fmt.Errorf("checkpoint iterations: %w", err)
		}
		percent, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("checkpoint percent correct: %w", err)
		}
		errorPercent, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, false, fmt.Errorf("checkpoint error percent: %w", err)
		}
		checkpoints = append(checkpoints, CheckpointEntry{
			Iterations:     iterations,
			PercentCorrect: percent,
			ErrorPercent:   errorPercent,
		})
	}
	return checkpoints, true, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
