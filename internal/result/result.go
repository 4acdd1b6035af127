package result

import "gonum.org/v1/gonum/floats"

// Outcome is the interpreted result of one training or evaluation step.
type Outcome struct {
	Guess   int
	Key     int
	Error   float64
	Correct bool
}

func NewOutcome(guess, key int, err float64) Outcome {
	return Outcome{
		Guess:   guess,
		Key:     key,
		Error:   err,
		Correct: guess == key,
	}
}

// ErrorPercent returns the error scaled for display.
func (o Outcome) ErrorPercent() float64 {
	return ErrorPercent(o.Error)
}

// Interpret decodes output activations into the index of the strongest
// output node. Ties resolve to the lowest index. outputs must not be empty.
func Interpret(outputs []float64) int {
	return floats.MaxIdx(outputs)
}

// ErrorPercent scales a raw error by 100 in single precision, matching the
// precision of the console output.
func ErrorPercent(err float64) float64 {
	return float64(float32(err) * float32(100.0))
}
