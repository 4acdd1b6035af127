package nn

import "math"

// Sigmoid is the logistic function 1/(1+e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// SigmoidSlope returns the derivative of the logistic function expressed in
// terms of its output y = Sigmoid(x).
func SigmoidSlope(y float64) float64 {
	return y * (1 - y)
}
