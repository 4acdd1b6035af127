package nn

import (
	"math"
	"testing"
)

func TestSigmoid(t *testing.T) {
	tests := []struct {
		name  string
		x     float64
		want  float64
		delta float64
	}{
		{name: "zero", x: 0, want: 0.5, delta: 1e-12},
		{name: "one", x: 1, want: 1 / (1 + math.Pow(math.E, -1)), delta: 1e-12},
		{name: "negative", x: -2, want: 1 / (1 + math.Pow(math.E, 2)), delta: 1e-12},
		{name: "large-positive", x: 800, want: 1, delta: 0},
		{name: "large-negative", x: -800, want: 0, delta: 0},
		{name: "positive-infinity", x: math.Inf(1), want: 1, delta: 0},
		{name: "negative-infinity", x: math.Inf(-1), want: 0, delta: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sigmoid(tc.x)
			if math.IsNaN(got) || math.Abs(got-tc.want) > tc.delta {
				t.Fatalf("unexpected value: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestSigmoidSlope(t *testing.T) {
	if got := SigmoidSlope(Sigmoid(0)); got != 0.25 {
		t.Fatalf("unexpected slope at zero: got=%f want=0.25", got)
	}
	if got := SigmoidSlope(1); got != 0 {
		t.Fatalf("expected flat slope at saturation, got=%f", got)
	}
}
