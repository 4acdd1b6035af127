package result

import (
	"math"
	"testing"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name    string
		outputs []float64
		want    int
	}{
		{
			name:    "argmax",
			outputs: []float64{0.1, 0.9, 0.2, 0.05, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.3},
			want:    1,
		},
		{
			name:    "tie-breaks-to-lowest-index",
			outputs: []float64{0.2, 0.7, 0.7, 0.7},
			want:    1,
		},
		{
			name:    "all-equal",
			outputs: []float64{0.5, 0.5, 0.5},
			want:    0,
		},
		{
			name:    "last",
			outputs: []float64{0.1, 0.2, 0.3},
			want:    2,
		},
		{
			name:    "single",
			outputs: []float64{0.4},
			want:    0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Interpret(tc.outputs)
			if got != tc.want {
				t.Fatalf("unexpected guess: got=%d want=%d", got, tc.want)
			}
			if got < 0 || got >= len(tc.outputs) {
				t.Fatalf("guess out of range: %d", got)
			}
		})
	}
}

func TestNewOutcome(t *testing.T) {
	hit := NewOutcome(3, 3, 0.25)
	if !hit.Correct {
		t.Fatalf("expected correct outcome: %+v", hit)
	}
	miss := NewOutcome(2, 3, 0.25)
	if miss.Correct {
		t.Fatalf("expected incorrect outcome: %+v", miss)
	}
}

func TestErrorPercent(t *testing.T) {
	got := ErrorPercent(0.0123)
	if math.Abs(got-1.23) > 1e-5 {
		t.Fatalf("unexpected error percent: got=%f want=1.23", got)
	}
	if ErrorPercent(0) != 0 {
		t.Fatalf("expected zero error percent")
	}
	o := Outcome{Error: 0.5}
	if o.ErrorPercent() != 50 {
		t.Fatalf("unexpected outcome error percent: %f", o.ErrorPercent())
	}
}
