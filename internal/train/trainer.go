package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"ksinn/internal/melody"
	"ksinn/internal/model"
	"ksinn/internal/nn"
	"ksinn/internal/result"
	"ksinn/internal/stats"
	"ksinn/internal/storage"
)

const (
	DefaultMaxIterations     = 10_000_000
	DefaultResetRate         = 10_000
	DefaultSnapshotThreshold = 90.0
)

var (
	ErrInvalidConfig = errors.New("invalid training config")
	ErrAlreadyRun    = errors.New("trainer already run")
)

type State int

const (
	StateIdle State = iota
	StateTraining
	StateFinalEvaluation
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTraining:
		return "training"
	case StateFinalEvaluation:
		return "final-evaluation"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Config struct {
	Network           nn.Config
	MaxIterations     int
	ResetRate         int
	Verbose           bool
	Seed              int64
	SnapshotThreshold float64
	// MinLength and MaxLength bound the generated melody length, inclusive.
	MinLength int
	MaxLength int
}

func DefaultConfig() Config {
	return Config{
		Network:           nn.DefaultConfig(),
		MaxIterations:     DefaultMaxIterations,
		ResetRate:         DefaultResetRate,
		SnapshotThreshold: DefaultSnapshotThreshold,
		MinLength:         melody.DefaultMinLength,
		MaxLength:         melody.DefaultMaxLength,
	}
}

func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be > 0, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.ResetRate <= 0 {
		return fmt.Errorf("%w: reset rate must be > 0, got %d", ErrInvalidConfig, c.ResetRate)
	}
	if c.MinLength < 1 || c.MinLength > c.MaxLength {
		return fmt.Errorf("%w: melody length range must satisfy 1 <= min <= max, got %d..%d", ErrInvalidConfig, c.MinLength, c.MaxLength)
	}
	if c.Network.Outputs != melody.PitchClasses {
		return fmt.Errorf("%w: output layer must have %d nodes, got %d", ErrInvalidConfig, melody.PitchClasses, c.Network.Outputs)
	}
	return nil
}

// Checkpoint is a progress sample taken at the reset cadence.
type Checkpoint struct {
	Accumulative   int
	PercentCorrect float64
	ErrorPercent   float64
}

// Reporter receives progress as the trainer moves through its states.
type Reporter interface {
	Checkpoint(cp Checkpoint) error
	Iteration(outcome result.Outcome) error
	BeginFinal() error
	Final(outcome result.Outcome) error
}

// Snapshotter persists networks that pass the snapshot threshold.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, snapshot model.NetworkSnapshot) error
}

type Result struct {
	Seed           int64
	Checkpoints    []Checkpoint
	Final          []result.Outcome
	PercentCorrect float64
	Accumulative   int
	SnapshotID     string
}

type Option func(*Trainer)

func WithReporter(r Reporter) Option {
	return func(t *Trainer) {
		t.reporter = r
	}
}

func WithSnapshotter(s Snapshotter) Option {
	return func(t *Trainer) {
		t.snapshotter = s
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(t *Trainer) {
		if now != nil {
			t.now = now
		}
	}
}

// Trainer drives one network from random initialization through training
// and the closing per-key evaluation. It owns its rng, generator and
// network and is not safe for concurrent use.
type Trainer struct {
	cfg   Config
	state State

	gen      *melody.Generator
	net      *nn.Network
	counters stats.Counters
	example  melody.Example

	reporter    Reporter
	snapshotter Snapshotter
	logger      *log.Logger
	now         func() time.Time
}

// New validates cfg and builds the trainer. A zero Seed is replaced with a
// time-based seed; Result.Seed reports the seed actually used.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	net, err := nn.New(cfg.Network, rng)
	if err != nil {
		return nil, err
	}
	gen, err := melody.NewGenerator(rng).WithLengthRange(cfg.MinLength, cfg.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	t := &Trainer{
		cfg:    cfg,
		state:  StateIdle,
		gen:    gen,
		net:    net,
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Trainer) Config() Config {
	return t.cfg
}

func (t *Trainer) State() State {
	return t.state
}

// Run trains for MaxIterations and then evaluates one melody per key. The
// context is polled at the reset cadence.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	if t.state != StateIdle {
		return Result{}, ErrAlreadyRun
	}
	res := Result{Seed: t.cfg.Seed}

	t.state = StateTraining
	checkpoints, err := t.train(ctx)
	res.Checkpoints = checkpoints
	if err != nil {
		return res, err
	}

	t.state = StateFinalEvaluation
	final, err := t.evaluate()
	if err != nil {
		return res, err
	}
	res.Final = final
	res.PercentCorrect = t.counters.PercentCorrect()
	res.Accumulative = t.counters.Accumulative

	t.state = StateDone
	res.SnapshotID = t.snapshot(ctx, res.PercentCorrect)
	return res, nil
}

func (t *Trainer) train(ctx context.Context) ([]Checkpoint, error) {
	var checkpoints []Checkpoint
	if !t.cfg.Verbose {
		checkpoints = make([]Checkpoint, 0, t.cfg.MaxIterations/t.cfg.ResetRate+1)
	}

	for i := 0; i < t.cfg.MaxIterations; i++ {
		if err := t.gen.Next(&t.example); err != nil {
			return checkpoints, fmt.Errorf("iteration %d: %w", i, err)
		}
		outcome := t.learn()

		if t.cfg.Verbose {
			if err := t.report(func(r Reporter) error { return r.Iteration(outcome) }); err != nil {
				return checkpoints, err
			}
		}

		if i%t.cfg.ResetRate != 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return checkpoints, err
		}
		if t.cfg.Verbose {
			continue
		}
		cp := Checkpoint{
			Accumulative:   t.counters.Accumulative,
			PercentCorrect: t.counters.PercentCorrect(),
			ErrorPercent:   outcome.ErrorPercent(),
		}
		checkpoints = append(checkpoints, cp)
		if err := t.report(func(r Reporter) error { return r.Checkpoint(cp) }); err != nil {
			return checkpoints, err
		}
		t.counters.Reset()
	}
	return checkpoints, nil
}

// evaluate runs one melody per key with learning still enabled. The
// resettable counters are cleared first so the score covers exactly this
// pass.
func (t *Trainer) evaluate() ([]result.Outcome, error) {
	if err := t.report(func(r Reporter) error { return r.BeginFinal() }); err != nil {
		return nil, err
	}
	t.counters.Reset()

	outcomes := make([]result.Outcome, 0, melody.PitchClasses)
	for key := melody.Key(0); key < melody.PitchClasses; key++ {
		if err := t.gen.NextInKey(&t.example, key); err != nil {
			return outcomes, fmt.Errorf("final evaluation key %d: %w", key, err)
		}
		outcome := t.learn()
		outcomes = append(outcomes, outcome)
		if err := t.report(func(r Reporter) error { return r.Final(outcome) }); err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// learn trains on the current example and records the outcome.
func (t *Trainer) learn() result.Outcome {
	guess, errSum := t.net.TrainOne(t.example.Histogram[:], t.example.Target[:])
	outcome := result.NewOutcome(guess, int(t.example.Key), errSum)
	t.counters.Record(outcome.Correct)
	return outcome
}

func (t *Trainer) report(fn func(Reporter) error) error {
	if t.reporter == nil {
		return nil
	}
	if err := fn(t.reporter); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return nil
}

// snapshot saves the network when percent reaches the threshold. Failures
// are logged and leave the run successful.
func (t *Trainer) snapshot(ctx context.Context, percent float64) string {
	if t.snapshotter == nil || percent < t.cfg.SnapshotThreshold {
		return ""
	}
	record := storage.NewSnapshotRecord(t.net.Snapshot(), percent, t.now())
	if err := t.snapshotter.SaveSnapshot(ctx, record); err != nil {
		t.logger.Printf("save snapshot %s failed, network will not be saved: %v", record.Name, err)
		return ""
	}
	t.logger.Printf("saved snapshot %s (%s)", record.Name, record.ID)
	return record.ID
}
