package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ksinn/internal/melody"
	"ksinn/internal/storage"
	"ksinn/internal/train"
	"ksinn/pkg/ksinn"
)

const commands = "train|sweep|classify|snapshots|show|runs|sweeps"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "classify":
		return runClassify(ctx, args[1:])
	case "snapshots":
		return runSnapshots(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "sweeps":
		return runSweeps(ctx, args[1:])
	case "-h", "-help", "--help", "help":
		fmt.Printf("usage: ksinn <%s> [flags]\n", commands)
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type storeFlags struct {
	kind        *string
	dbPath      *string
	snapshotDir *string
	runsDir     *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:        fs.String("store", storage.DefaultStoreKind(), "snapshot store backend: file|memory|sqlite"),
		dbPath:      fs.String("db-path", storage.DefaultSQLitePath, "sqlite database path"),
		snapshotDir: fs.String("snapshot-dir", storage.DefaultSnapshotDir, "snapshot directory for the file store"),
		runsDir:     fs.String("runs-dir", "runs", "run artifact directory"),
	}
}

func (f storeFlags) client() (*ksinn.Client, error) {
	path := *f.snapshotDir
	if *f.kind == storage.KindSQLite {
		path = *f.dbPath
	}
	return ksinn.New(ksinn.Options{
		StoreKind: *f.kind,
		StorePath: path,
		RunsDir:   *f.runsDir,
		Logger:    log.New(os.Stderr, "ksinn: ", log.LstdFlags),
	})
}

type trainFlags struct {
	configPath    *string
	verbose       *bool
	resetRate     *int
	maxIterations *int
	layers        *string
	learningRate  *float64
	melodyLength  *string
	seed          *int64
	threshold     *float64
}

func addTrainFlags(fs *flag.FlagSet) trainFlags {
	f := trainFlags{
		configPath:    fs.String("config", "", "optional training config JSON path"),
		verbose:       new(bool),
		resetRate:     fs.Int("reset-rate", train.DefaultResetRate, "iterations between progress checkpoints"),
		maxIterations: fs.Int("max-iterations", train.DefaultMaxIterations, "training iterations before the final test"),
		layers:        fs.String("layers", "12,12,12", "input,hidden,output node counts"),
		learningRate:  fs.Float64("learning-rate", 0.18, "backpropagation learning rate"),
		melodyLength:  fs.String("melody-length", fmt.Sprintf("%d,%d", melody.DefaultMinLength, melody.DefaultMaxLength), "inclusive min,max notes per generated melody"),
		seed:          fs.Int64("seed", 0, "rng seed (0 picks a time-based seed)"),
		threshold:     fs.Float64("threshold", train.DefaultSnapshotThreshold, "final percent correct required to save a snapshot"),
	}
	fs.BoolVar(f.verbose, "v", false, "report every iteration instead of checkpoints")
	fs.BoolVar(f.verbose, "verbose", false, "report every iteration instead of checkpoints")
	return f
}

// request builds a training request from the config file, if any, with
// explicitly set flags taking precedence.
func (f trainFlags) request(fs *flag.FlagSet) (ksinn.TrainRequest, error) {
	setFlags := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		setFlags[fl.Name] = true
	})

	req, err := loadOrDefaultTrainRequest(*f.configPath)
	if err != nil {
		return ksinn.TrainRequest{}, err
	}
	if *f.configPath == "" {
		layers, err := parseLayers(*f.layers)
		if err != nil {
			return ksinn.TrainRequest{}, err
		}
		if err := requirePositive("max-iterations", *f.maxIterations); err != nil {
			return ksinn.TrainRequest{}, err
		}
		if err := requirePositive("reset-rate", *f.resetRate); err != nil {
			return ksinn.TrainRequest{}, err
		}
		learningRate := *f.learningRate
		if err := requirePositiveRate("learning-rate", learningRate); err != nil {
			return ksinn.TrainRequest{}, err
		}
		minLength, maxLength, err := parseLengthRange(*f.melodyLength)
		if err != nil {
			return ksinn.TrainRequest{}, err
		}
		threshold := *f.threshold
		return ksinn.TrainRequest{
			InputNodes:        layers[0],
			HiddenNodes:       layers[1],
			OutputNodes:       layers[2],
			LearningRate:      &learningRate,
			MaxIterations:     *f.maxIterations,
			ResetRate:         *f.resetRate,
			MinMelodyLength:   minLength,
			MaxMelodyLength:   maxLength,
			Verbose:           *f.verbose,
			Seed:              *f.seed,
			SnapshotThreshold: &threshold,
		}, nil
	}

	err = overrideFromFlags(&req, setFlags, map[string]any{
		"v":              *f.verbose,
		"verbose":        *f.verbose,
		"reset-rate":     *f.resetRate,
		"max-iterations": *f.maxIterations,
		"layers":         *f.layers,
		"learning-rate":  *f.learningRate,
		"melody-length":  *f.melodyLength,
		"seed":           *f.seed,
		"threshold":      *f.threshold,
	})
	if err != nil {
		return ksinn.TrainRequest{}, err
	}
	return req, nil
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	tf := addTrainFlags(fs)
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	req, err := tf.request(fs)
	if err != nil {
		return err
	}
	req.Progress = os.Stdout

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Train(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run_id=%s artifacts=%s\n", summary.RunID, summary.ArtifactsDir)
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	tf := addTrainFlags(fs)
	sf := addStoreFlags(fs)
	seedsFlag := fs.String("seeds", "1,2,3,4", "comma-separated seeds, one run per seed")
	workers := fs.Int("workers", 0, "concurrent runs (0 runs every seed at once)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", *workers)
	}
	seeds, err := parseSeeds(*seedsFlag)
	if err != nil {
		return err
	}
	base, err := tf.request(fs)
	if err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	sweep, err := client.Sweep(ctx, ksinn.SweepRequest{
		Base:    base,
		Seeds:   seeds,
		Workers: *workers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("sweep_id=%s runs=%d\n", sweep.ID, len(sweep.Runs))
	for _, r := range sweep.Runs {
		snapshot := "-"
		if r.SnapshotID != "" {
			snapshot = r.SnapshotID
		}
		fmt.Printf("seed=%d run_id=%s iterations=%s correct=%.2f%% snapshot=%s\n",
			r.Seed, r.RunID, humanize.Comma(int64(r.Accumulative)), r.PercentCorrect, snapshot)
	}
	fmt.Printf("mean=%.2f%% std=%.2f best=%.2f%% (%s) above_baseline=%d/%d\n",
		sweep.MeanPercent, sweep.StdPercent, sweep.BestPercent, sweep.BestRunID, sweep.AboveBaseline, len(sweep.Runs))
	return nil
}

func runClassify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("classify requires -id")
	}
	if fs.NArg() == 0 {
		return errors.New("classify requires at least one note")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	c, err := client.Classify(ctx, *id, fs.Args())
	if err != nil {
		return err
	}
	fmt.Printf("key=%s index=%d\n", c.KeyName, c.Key)
	for i, out := range c.Outputs {
		fmt.Printf("  %2d %.6f\n", i, out)
	}
	return nil
}

func runSnapshots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	jsonOut := fs.Bool("json", false, "emit snapshot list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	items, err := client.Snapshots(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no snapshots found")
		return nil
	}
	if *jsonOut {
		return writeJSON(items)
	}
	for _, s := range items {
		fmt.Printf("id=%s name=%s layers=%d,%d,%d correct=%.2f%% created=%s\n",
			s.ID, s.Name, s.InputNodes, s.HiddenNodes, s.OutputNodes, s.PercentCorrect, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("show requires -id")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	snapshot, err := client.Snapshot(ctx, *id)
	if err != nil {
		return err
	}
	return writeJSON(snapshot)
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	runID := fs.String("id", "", "print the recorded artifacts of one run as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	if *runID != "" {
		artifacts, err := client.Run(ctx, *runID)
		if err != nil {
			return err
		}
		return writeJSON(artifacts)
	}

	items, err := client.Runs(ctx, ksinn.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		type runsItem struct {
			RunID          string  `json:"run_id"`
			SweepID        string  `json:"sweep_id,omitempty"`
			CreatedAtUTC   string  `json:"created_at_utc"`
			Seed           int64   `json:"seed"`
			HiddenNodes    int     `json:"hidden_nodes"`
			LearningRate   float64 `json:"learning_rate"`
			Iterations     int     `json:"iterations"`
			PercentCorrect float64 `json:"percent_correct"`
			SnapshotID     string  `json:"snapshot_id,omitempty"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem(item))
		}
		return writeJSON(out)
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s seed=%d hidden=%d lr=%.3f iterations=%s correct=%.2f%%\n",
			item.RunID, item.CreatedAtUTC, item.Seed, item.HiddenNodes, item.LearningRate,
			humanize.Comma(int64(item.Iterations)), item.PercentCorrect)
	}
	return nil
}

func runSweeps(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweeps", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max sweeps to list")
	jsonOut := fs.Bool("json", false, "emit sweep summaries as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.client()
	if err != nil {
		return err
	}
	defer client.Close()

	sweeps, err := client.Sweeps(ctx, *limit)
	if err != nil {
		return err
	}
	if len(sweeps) == 0 {
		fmt.Println("no sweeps found")
		return nil
	}
	if *jsonOut {
		return writeJSON(sweeps)
	}
	for _, s := range sweeps {
		fmt.Printf("sweep_id=%s started_at=%s runs=%d mean=%.2f%% std=%.2f best=%.2f%% above_baseline=%d\n",
			s.ID, s.StartedAtUTC, len(s.RunIDs), s.MeanPercent, s.StdPercent, s.BestPercent, s.AboveBaseline)
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: ksinn <%s> [flags]", msg, commands)
}
