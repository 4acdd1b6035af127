package ksinn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
	"golang.org/x/sync/errgroup"

	"ksinn/internal/melody"
	"ksinn/internal/model"
	"ksinn/internal/nn"
	"ksinn/internal/report"
	"ksinn/internal/stats"
	"ksinn/internal/storage"
	"ksinn/internal/train"
)

const (
	defaultRunsDir     = "runs"
	defaultRunsLimit   = 20
	defaultSweepSeeds  = 4
	runTimestampLayout = "%Y%m%d%H%M%S"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrRunNotFound      = errors.New("run not found")
)

type Options struct {
	StoreKind string
	// StorePath is the snapshot directory for the file store and the
	// database path for sqlite.
	StorePath string
	RunsDir   string
	Logger    *log.Logger
}

type Client struct {
	store     storage.Store
	storeKind string
	runsDir   string
	logger    *log.Logger

	initMu      sync.Mutex
	initialized bool
	indexMu     sync.Mutex
}

// TrainRequest zero values select the defaults; negative counts are
// rejected by validation.
type TrainRequest struct {
	InputNodes  int
	HiddenNodes int
	OutputNodes int
	// LearningRate nil uses the default of 0.18.
	LearningRate    *float64
	MaxIterations   int
	ResetRate       int
	MinMelodyLength int
	MaxMelodyLength int
	Verbose         bool
	Seed            int64
	// SnapshotThreshold is the final percent correct at or above which the
	// network is saved. Nil uses the default of 90.
	SnapshotThreshold *float64
	// Progress receives console output when set. Terminals get in-place
	// progress lines.
	Progress io.Writer

	sweepID string
}

type KeyResult struct {
	Key       int
	Guess     int
	KeyName   string
	GuessName string
	Error     float64
	Correct   bool
}

type TrainSummary struct {
	RunID          string
	ArtifactsDir   string
	Seed           int64
	Checkpoints    []stats.CheckpointEntry
	Final          []KeyResult
	PercentCorrect float64
	Accumulative   int
	SnapshotID     string
}

type SweepRequest struct {
	Base    TrainRequest
	Seeds   []int64
	Workers int
}

type SweepSummary struct {
	ID            string
	Runs          []TrainSummary
	MeanPercent   float64
	StdPercent    float64
	BestPercent   float64
	BestRunID     string
	AboveBaseline int
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	SweepID        string
	CreatedAtUTC   string
	Seed           int64
	HiddenNodes    int
	LearningRate   float64
	Iterations     int
	PercentCorrect float64
	SnapshotID     string
}

type Classification struct {
	SnapshotID string
	Key        int
	KeyName    string
	Outputs    []float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	store, err := storage.NewStore(storeKind, opts.StorePath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:     store,
		storeKind: storeKind,
		runsDir:   runsDir,
		logger:  logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the snapshot store. It runs at most once per client and is
// called implicitly by the other methods.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Train(ctx context.Context, req TrainRequest) (TrainSummary, error) {
	if err := c.Init(ctx); err != nil {
		return TrainSummary{}, err
	}

	cfg := trainConfig(req)
	opts := []train.Option{
		train.WithSnapshotter(c.store),
		train.WithLogger(c.logger),
	}
	var console *report.Console
	if req.Progress != nil {
		console = newConsole(req.Progress)
		opts = append(opts, train.WithReporter(console))
	}

	trainer, err := train.New(cfg, opts...)
	if err != nil {
		return TrainSummary{}, err
	}
	cfg = trainer.Config()

	now := time.Now().UTC()
	runID := fmt.Sprintf("%s-%d-%s", strftime.Format(runTimestampLayout, now), cfg.Seed, uuid.NewString()[:8])

	res, err := trainer.Run(ctx)
	if err != nil {
		return TrainSummary{}, err
	}
	if console != nil {
		if err := console.Summary(res); err != nil {
			return TrainSummary{}, err
		}
	}

	checkpoints := make([]stats.CheckpointEntry, 0, len(res.Checkpoints))
	for _, cp := range res.Checkpoints {
		checkpoints = append(checkpoints, stats.CheckpointEntry{
			Iterations:     cp.Accumulative,
			PercentCorrect: cp.PercentCorrect,
			ErrorPercent:   cp.ErrorPercent,
		})
	}
	finalEntries := make([]stats.FinalEntry, 0, len(res.Final))
	final := make([]KeyResult, 0, len(res.Final))
	for _, outcome := range res.Final {
		finalEntries = append(finalEntries, stats.FinalEntry{
			Key:     outcome.Key,
			Guess:   outcome.Guess,
			Error:   outcome.Error,
			Correct: outcome.Correct,
		})
		keyName, err := melody.NoteName(outcome.Key)
		if err != nil {
			return TrainSummary{}, err
		}
		guessName, err := melody.NoteName(outcome.Guess)
		if err != nil {
			return TrainSummary{}, err
		}
		final = append(final, KeyResult{
			Key:       outcome.Key,
			Guess:     outcome.Guess,
			KeyName:   keyName,
			GuessName: guessName,
			Error:     outcome.Error,
			Correct:   outcome.Correct,
		})
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:             runID,
			SweepID:           req.sweepID,
			InputNodes:        cfg.Network.Inputs,
			HiddenNodes:       cfg.Network.Hidden,
			OutputNodes:       cfg.Network.Outputs,
			LearningRate:      cfg.Network.LearningRate,
			MaxIterations:     cfg.MaxIterations,
			ResetRate:         cfg.ResetRate,
			Verbose:           cfg.Verbose,
			Seed:              cfg.Seed,
			SnapshotThreshold: cfg.SnapshotThreshold,
			MinMelodyLength:   cfg.MinLength,
			MaxMelodyLength:   cfg.MaxLength,
			Store:             c.storeKind,
		},
		Checkpoints: checkpoints,
		Final: stats.FinalReport{
			PercentCorrect: res.PercentCorrect,
			Accumulative:   res.Accumulative,
			SnapshotID:     res.SnapshotID,
			Keys:           finalEntries,
		},
	})
	if err != nil {
		return TrainSummary{}, err
	}

	c.indexMu.Lock()
	err = stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:          runID,
		SweepID:        req.sweepID,
		Seed:           cfg.Seed,
		HiddenNodes:    cfg.Network.Hidden,
		LearningRate:   cfg.Network.LearningRate,
		Iterations:     res.Accumulative,
		PercentCorrect: res.PercentCorrect,
		SnapshotID:     res.SnapshotID,
		CreatedAtUTC:   now.Format(time.RFC3339Nano),
	})
	c.indexMu.Unlock()
	if err != nil {
		return TrainSummary{}, err
	}

	return TrainSummary{
		RunID:          runID,
		ArtifactsDir:   filepath.Clean(runDir),
		Seed:           cfg.Seed,
		Checkpoints:    checkpoints,
		Final:          final,
		PercentCorrect: res.PercentCorrect,
		Accumulative:   res.Accumulative,
		SnapshotID:     res.SnapshotID,
	}, nil
}

// Sweep trains one independent network per seed, at most Workers at a time,
// and records an aggregate summary. Progress output and verbose mode are
// disabled for sweep runs.
func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	seeds := req.Seeds
	if len(seeds) == 0 {
		seeds = make([]int64, defaultSweepSeeds)
		for i := range seeds {
			seeds[i] = int64(i + 1)
		}
	}
	seen := make(map[int64]struct{}, len(seeds))
	for _, seed := range seeds {
		if seed == 0 {
			return SweepSummary{}, errors.New("sweep seeds must be non-zero")
		}
		if _, dup := seen[seed]; dup {
			return SweepSummary{}, fmt.Errorf("duplicate sweep seed: %d", seed)
		}
		seen[seed] = struct{}{}
	}
	workers := req.Workers
	if workers <= 0 {
		workers = len(seeds)
	}
	if err := c.Init(ctx); err != nil {
		return SweepSummary{}, err
	}

	started := time.Now().UTC()
	sweepID := "sweep-" + strftime.Format(runTimestampLayout, started)
	c.logger.Printf("sweep %s: %d seeds, %d workers", sweepID, len(seeds), workers)

	runs := make([]TrainSummary, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seed := range seeds {
		i := i
		runReq := req.Base
		runReq.Seed = seed
		runReq.Verbose = false
		runReq.Progress = nil
		runReq.sweepID = sweepID
		g.Go(func() error {
			summary, err := c.Train(gctx, runReq)
			if err != nil {
				return fmt.Errorf("seed %d: %w", runReq.Seed, err)
			}
			runs[i] = summary
			c.logger.Printf("sweep %s: seed %d finished at %.2f%%", sweepID, runReq.Seed, summary.PercentCorrect)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepSummary{}, err
	}

	record := stats.SweepSummary{
		ID:             sweepID,
		StartedAtUTC:   started.Format(time.RFC3339Nano),
		CompletedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Seeds:          append([]int64(nil), seeds...),
		RunIDs:         make([]string, 0, len(runs)),
		Percents:       make([]float64, 0, len(runs)),
	}
	for _, run := range runs {
		record.RunIDs = append(record.RunIDs, run.RunID)
		record.Percents = append(record.Percents, run.PercentCorrect)
	}
	record.Summarize(100.0 / melody.PitchClasses)
	if err := stats.WriteSweepSummary(c.runsDir, record); err != nil {
		return SweepSummary{}, err
	}

	return SweepSummary{
		ID:            sweepID,
		Runs:          runs,
		MeanPercent:   record.MeanPercent,
		StdPercent:    record.StdPercent,
		BestPercent:   record.BestPercent,
		BestRunID:     record.BestRunID,
		AboveBaseline: record.AboveBaseline,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			SweepID:        e.SweepID,
			CreatedAtUTC:   e.CreatedAtUTC,
			Seed:           e.Seed,
			HiddenNodes:    e.HiddenNodes,
			LearningRate:   e.LearningRate,
			Iterations:     e.Iterations,
			PercentCorrect: e.PercentCorrect,
			SnapshotID:     e.SnapshotID,
		})
	}
	return out, nil
}

// Run loads the artifacts recorded for one run.
func (c *Client) Run(_ context.Context, runID string) (stats.RunArtifacts, error) {
	if runID == "" {
		return stats.RunArtifacts{}, errors.New("run id is required")
	}
	artifacts, ok, err := stats.ReadRunArtifacts(c.runsDir, runID)
	if err != nil {
		return stats.RunArtifacts{}, err
	}
	if !ok {
		return stats.RunArtifacts{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return artifacts, nil
}

// Sweeps lists stored sweep summaries, newest first.
func (c *Client) Sweeps(_ context.Context, limit int) ([]stats.SweepSummary, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	sweeps, err := stats.ListSweepSummaries(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(sweeps) > limit {
		sweeps = sweeps[:limit]
	}
	return sweeps, nil
}

func (c *Client) Snapshots(ctx context.Context) ([]model.SnapshotSummary, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListSnapshots(ctx)
}

func (c *Client) Snapshot(ctx context.Context, id string) (model.NetworkSnapshot, error) {
	if id == "" {
		return model.NetworkSnapshot{}, errors.New("snapshot id is required")
	}
	if err := c.Init(ctx); err != nil {
		return model.NetworkSnapshot{}, err
	}
	snapshot, ok, err := c.store.GetSnapshot(ctx, id)
	if err != nil {
		return model.NetworkSnapshot{}, err
	}
	if !ok {
		return model.NetworkSnapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return snapshot, nil
}

// Classify guesses the major key of a melody given as note names, using a
// stored network. The network is not updated.
func (c *Client) Classify(ctx context.Context, id string, notes []string) (Classification, error) {
	if len(notes) == 0 {
		return Classification{}, errors.New("at least one note is required")
	}
	pitches := make([]melody.PitchClass, 0, len(notes))
	for _, note := range notes {
		pc, err := melody.ParsePitchClass(note)
		if err != nil {
			return Classification{}, err
		}
		pitches = append(pitches, pc)
	}

	snapshot, err := c.Snapshot(ctx, id)
	if err != nil {
		return Classification{}, err
	}
	net, err := nn.FromSnapshot(snapshot)
	if err != nil {
		return Classification{}, err
	}

	histogram := melody.Histogram(pitches)
	key := net.Predict(histogram[:])
	name, err := melody.NoteName(key)
	if err != nil {
		return Classification{}, err
	}
	return Classification{
		SnapshotID: snapshot.ID,
		Key:        key,
		KeyName:    name,
		Outputs:    append([]float64(nil), net.Outputs()...),
	}, nil
}

func trainConfig(req TrainRequest) train.Config {
	cfg := train.DefaultConfig()
	if req.InputNodes != 0 {
		cfg.Network.Inputs = req.InputNodes
	}
	if req.HiddenNodes != 0 {
		cfg.Network.Hidden = req.HiddenNodes
	}
	if req.OutputNodes != 0 {
		cfg.Network.Outputs = req.OutputNodes
	}
	if req.LearningRate != nil {
		cfg.Network.LearningRate = *req.LearningRate
	}
	if req.MaxIterations != 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	if req.ResetRate != 0 {
		cfg.ResetRate = req.ResetRate
	}
	if req.MinMelodyLength != 0 {
		cfg.MinLength = req.MinMelodyLength
	}
	if req.MaxMelodyLength != 0 {
		cfg.MaxLength = req.MaxMelodyLength
	}
	if req.SnapshotThreshold != nil {
		cfg.SnapshotThreshold = *req.SnapshotThreshold
	}
	cfg.Verbose = req.Verbose
	cfg.Seed = req.Seed
	return cfg
}

func newConsole(w io.Writer) *report.Console {
	if f, ok := w.(*os.File); ok {
		return report.NewConsole(f)
	}
	return &report.Console{Out: w}
}
