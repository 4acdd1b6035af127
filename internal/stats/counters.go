package stats

// Counters tracks training accuracy. Accumulative counts every recorded
// iteration for the lifetime of the counters; Iterations and Correct cover
// the window since the last Reset.
type Counters struct {
	Accumulative int
	Iterations   int
	Correct      int
}

func (c *Counters) Record(correct bool) {
	c.Accumulative++
	c.Iterations++
	if correct {
		c.Correct++
	}
}

// Reset clears the resettable window. Accumulative is left untouched.
func (c *Counters) Reset() {
	c.Iterations = 0
	c.Correct = 0
}

// PercentCorrect is the share of correct guesses in the current window, or
// 0 when the window is empty.
func (c Counters) PercentCorrect() float64 {
	if c.Iterations == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Iterations) * 100.0
}
