package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"ksinn/internal/model"
	"ksinn/internal/result"
)

const (
	DefaultInputNodes   = 12
	DefaultHiddenNodes  = 12
	DefaultOutputNodes  = 12
	DefaultLearningRate = 0.18
)

var (
	ErrInvalidConfig   = errors.New("invalid network config")
	ErrInvalidSnapshot = errors.New("invalid network snapshot")
)

type Config struct {
	Inputs       int     `json:"input_nodes"`
	Hidden       int     `json:"hidden_nodes"`
	Outputs      int     `json:"output_nodes"`
	LearningRate float64 `json:"learning_rate"`
}

func DefaultConfig() Config {
	return Config{
		Inputs:       DefaultInputNodes,
		Hidden:       DefaultHiddenNodes,
		Outputs:      DefaultOutputNodes,
		LearningRate: DefaultLearningRate,
	}
}

func (c Config) Total() int {
	return c.Inputs + c.Hidden + c.Outputs
}

func (c Config) Validate() error {
	if c.Inputs <= 0 || c.Hidden <= 0 || c.Outputs <= 0 {
		return fmt.Errorf("%w: layer sizes must be > 0, got %d/%d/%d", ErrInvalidConfig, c.Inputs, c.Hidden, c.Outputs)
	}
	if math.IsNaN(c.LearningRate) || math.IsInf(c.LearningRate, 0) || c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be finite and > 0, got %v", ErrInvalidConfig, c.LearningRate)
	}
	return nil
}

// Network is a fully connected input-hidden-output network. Weights live in
// one dense matrix indexed by global node id (inputs first, then hidden, then
// outputs), so weight(i,h) is the connection from node i to node h. Only the
// input->hidden and hidden->output blocks are ever read.
//
// A Network is owned by a single trainer and is not safe for concurrent use.
type Network struct {
	cfg   Config
	total int

	weights    *mat.Dense
	w          []float64
	stride     int
	thresholds []float64
	values     []float64
}

// New builds a network with randomly connected nodes drawn from rng.
func New(cfg Config, rng *rand.Rand) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := newNetwork(cfg)
	n.connect(rng)
	return n, nil
}

func newNetwork(cfg Config) *Network {
	total := cfg.Total()
	weights := mat.NewDense(total, total, nil)
	raw := weights.RawMatrix()
	return &Network{
		cfg:        cfg,
		total:      total,
		weights:    weights,
		w:          raw.Data,
		stride:     raw.Stride,
		thresholds: make([]float64, total),
		values:     make([]float64, total),
	}
}

// connect draws every weight in [0.00, 1.99] and every threshold as the ratio
// of two non-negative random integers. A zero denominator yields +Inf.
func (n *Network) connect(rng *rand.Rand) {
	for x := 0; x < n.total; x++ {
		n.thresholds[x] = float64(randInt(rng)) / float64(randInt(rng))
		row := n.w[x*n.stride : x*n.stride+n.total]
		for y := range row {
			row[y] = float64(randInt(rng)%200) / 100.0
		}
	}
}

func randInt(rng *rand.Rand) int32 {
	return rng.Int31n(math.MaxInt32)
}

func (n *Network) Config() Config {
	return n.cfg
}

func (n *Network) Weight(from, to int) float64 {
	return n.weights.At(from, to)
}

func (n *Network) Threshold(node int) float64 {
	return n.thresholds[node]
}

// Outputs returns a view of the output-node activations from the last pass.
func (n *Network) Outputs() []float64 {
	return n.values[n.cfg.Inputs+n.cfg.Hidden:]
}

// Activate runs the forward pass. input is copied into the input nodes and
// zero-padded when shorter than the input layer.
func (n *Network) Activate(input []float64) {
	in := n.cfg.Inputs
	hiddenEnd := in + n.cfg.Hidden

	copied := copy(n.values[:in], input)
	for i := copied; i < in; i++ {
		n.values[i] = 0
	}

	for h := in; h < hiddenEnd; h++ {
		weighted := 0.0
		for i := 0; i < in; i++ {
			weighted += n.w[i*n.stride+h] * n.values[i]
		}
		n.values[h] = Sigmoid(weighted - n.thresholds[h])
	}

	for o := hiddenEnd; o < n.total; o++ {
		weighted := 0.0
		for h := in; h < hiddenEnd; h++ {
			weighted += n.w[h*n.stride+o] * n.values[h]
		}
		n.values[o] = Sigmoid(weighted - n.thresholds[o])
	}
}

// Backpropagate updates weights and thresholds toward target using the
// activations of the last forward pass and returns the squared error summed
// over output nodes and divided by the input layer size. Target entries past
// len(target) are treated as 0.
//
// The hidden gradient is computed from the hidden->output weight after it
// has been updated in the same step.
func (n *Network) Backpropagate(target []float64) float64 {
	in := n.cfg.Inputs
	hiddenEnd := in + n.cfg.Hidden
	rate := n.cfg.LearningRate

	errSum := 0.0
	for o := hiddenEnd; o < n.total; o++ {
		want := 0.0
		if k := o - hiddenEnd; k < len(target) {
			want = target[k]
		}
		out := n.values[o]
		absoluteError := want - out
		errSum += (absoluteError * absoluteError) / float64(in)
		outputGradient := SigmoidSlope(out) * absoluteError

		for h := in; h < hiddenEnd; h++ {
			hidden := n.values[h]
			n.w[h*n.stride+o] += rate * hidden * outputGradient
			hiddenGradient := SigmoidSlope(hidden) * outputGradient * n.w[h*n.stride+o]
			for i := 0; i < in; i++ {
				n.w[i*n.stride+h] += rate * n.values[i] * hiddenGradient
			}
			n.thresholds[h] -= rate * hiddenGradient
		}
		n.thresholds[o] -= rate * outputGradient
	}
	return errSum
}

// TrainOne runs one online training step and returns the network's guess
// and the error of the step.
func (n *Network) TrainOne(input, target []float64) (int, float64) {
	n.Activate(input)
	errSum := n.Backpropagate(target)
	return result.Interpret(n.Outputs()), errSum
}

// Predict runs the forward pass only and returns the guess.
func (n *Network) Predict(input []float64) int {
	n.Activate(input)
	return result.Interpret(n.Outputs())
}

// Snapshot copies the network state into a persistable record. Identity,
// naming and score fields are left for the caller.
func (n *Network) Snapshot() model.NetworkSnapshot {
	weights := make([][]float64, n.total)
	for x := range weights {
		weights[x] = append([]float64(nil), n.weights.RawRowView(x)...)
	}
	return model.NetworkSnapshot{
		InputNodes:   n.cfg.Inputs,
		HiddenNodes:  n.cfg.Hidden,
		OutputNodes:  n.cfg.Outputs,
		LearningRate: n.cfg.LearningRate,
		Weights:      weights,
		Thresholds:   append([]float64(nil), n.thresholds...),
	}
}

// FromSnapshot rebuilds a network from a persisted record.
func FromSnapshot(snapshot model.NetworkSnapshot) (*Network, error) {
	cfg := Config{
		Inputs:       snapshot.InputNodes,
		Hidden:       snapshot.HiddenNodes,
		Outputs:      snapshot.OutputNodes,
		LearningRate: snapshot.LearningRate,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	total := cfg.Total()
	if len(snapshot.Weights) != total {
		return nil, fmt.Errorf("%w: weights have %d rows, want %d", ErrInvalidSnapshot, len(snapshot.Weights), total)
	}
	if len(snapshot.Thresholds) != total {
		return nil, fmt.Errorf("%w: thresholds have %d entries, want %d", ErrInvalidSnapshot, len(snapshot.Thresholds), total)
	}

	n := newNetwork(cfg)
	for x, row := range snapshot.Weights {
		if len(row) != total {
			return nil, fmt.Errorf("%w: weight row %d has %d entries, want %d", ErrInvalidSnapshot, x, len(row), total)
		}
		n.weights.SetRow(x, row)
	}
	copy(n.thresholds, snapshot.Thresholds)
	return n, nil
}
