package melody

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// PitchClasses is the number of chromatic note identities in an octave.
	PitchClasses = 12
	// Degrees is the number of diatonic steps in a major scale.
	Degrees = 7

	DefaultMinLength = 10
	DefaultMaxLength = 999
)

var (
	ErrInvalidDegree = errors.New("invalid scale degree")
	ErrInvalidKey    = errors.New("invalid key signature")
	ErrInvalidLength = errors.New("invalid melody length range")
)

// Key is the major tonal center of a melody, 0=C .. 11=B.
type Key int

// ScaleDegree is a diatonic step before transposition, 0=do .. 6=ti.
type ScaleDegree int

// PitchClass is an absolute chromatic note identity in [0,11].
type PitchClass int

// majorOffsets maps each scale degree to its semitone distance from the tonic.
var majorOffsets = [Degrees]int{0, 2, 4, 5, 7, 9, 11}

// Example is one labeled training sample. Its slices are reused by the
// generator that filled it and are only valid until the next call.
type Example struct {
	Key       Key
	Degrees   []ScaleDegree
	Pitches   []PitchClass
	Histogram [PitchClasses]float64
	Target    [PitchClasses]float64
}

// Len reports the number of notes in the melody.
func (e *Example) Len() int {
	return len(e.Degrees)
}

// Transpose maps a scale degree into the given major key.
func Transpose(degree ScaleDegree, key Key) (PitchClass, error) {
	if degree < 0 || int(degree) >= Degrees {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDegree, degree)
	}
	pc := (majorOffsets[degree] + int(key)) % PitchClasses
	if pc < 0 {
		pc += PitchClasses
	}
	return PitchClass(pc), nil
}

// Histogram counts how many times each pitch class occurs. Every pitch must
// already be in [0,11].
func Histogram(pitches []PitchClass) [PitchClasses]float64 {
	var counts [PitchClasses]float64
	for _, p := range pitches {
		counts[p]++
	}
	return counts
}

// Target returns the one-hot vector for key.
func Target(key Key) [PitchClasses]float64 {
	var target [PitchClasses]float64
	target[key] = 1.0
	return target
}

// Build constructs an example from an explicit degree sequence.
func Build(key Key, degrees []ScaleDegree) (Example, error) {
	if err := checkKey(key); err != nil {
		return Example{}, err
	}
	ex := Example{
		Key:     key,
		Degrees: append([]ScaleDegree(nil), degrees...),
		Pitches: make([]PitchClass, len(degrees)),
	}
	if err := ex.fill(); err != nil {
		return Example{}, err
	}
	return ex, nil
}

func (e *Example) fill() error {
	for i := range e.Histogram {
		e.Histogram[i] = 0
		e.Target[i] = 0
	}
	for i, degree := range e.Degrees {
		pitch, err := Transpose(degree, e.Key)
		if err != nil {
			return err
		}
		e.Pitches[i] = pitch
		e.Histogram[pitch]++
	}
	e.Target[e.Key] = 1.0
	return nil
}

func checkKey(key Key) error {
	if key < 0 || int(key) >= PitchClasses {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	return nil
}

// Generator draws random melodies with known keys. It is not safe for
// concurrent use; each trainer owns its own.
type Generator struct {
	rng       *rand.Rand
	minLength int
	maxLength int
}

func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{
		rng:       rng,
		minLength: DefaultMinLength,
		maxLength: DefaultMaxLength,
	}
}

// WithLengthRange sets the inclusive bounds for melody length.
func (g *Generator) WithLengthRange(lo, hi int) (*Generator, error) {
	if lo < 1 || lo > hi {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidLength, lo, hi)
	}
	g.minLength = lo
	g.maxLength = hi
	return g, nil
}

// Next fills ex with a melody in a uniformly random key.
func (g *Generator) Next(ex *Example) error {
	return g.NextInKey(ex, Key(g.rng.Intn(PitchClasses)))
}

// NextInKey fills ex with a random melody in the given key.
func (g *Generator) NextInKey(ex *Example, key Key) error {
	if err := checkKey(key); err != nil {
		return err
	}
	length := g.minLength + g.rng.Intn(g.maxLength-g.minLength+1)
	ex.Key = key
	ex.Degrees = resize(ex.Degrees, length)
	ex.Pitches = resizePitches(ex.Pitches, length)
	for i := range ex.Degrees {
		ex.Degrees[i] = ScaleDegree(g.rng.Intn(Degrees))
	}
	return ex.fill()
}

func resize(buf []ScaleDegree, n int) []ScaleDegree {
	if cap(buf) < n {
		return make([]ScaleDegree, n, max(n, DefaultMaxLength))
	}
	return buf[:n]
}

func resizePitches(buf []PitchClass, n int) []PitchClass {
	if cap(buf) < n {
		return make([]PitchClass, n, max(n, DefaultMaxLength))
	}
	return buf[:n]
}
