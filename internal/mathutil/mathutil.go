// Package mathutil provides small numeric helpers shared by the model
// adapters. All functions are allocation-light and numerically stable.
package mathutil

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax computes a numerically stable softmax over x and returns a new
// slice. An empty input is returned unchanged.
func Softmax(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}

	maxVal := floats.Max(x)

	result := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		result[i] = math.Exp(v - maxVal)
		sum += result[i]
	}

	if sum > 0 {
		floats.Scale(1/sum, result)
	}

	return result
}

// Sigmoid computes the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ArgMax returns the index of the largest value in x. Ties resolve to the
// lowest index so that repeated calls over equal scores stay deterministic.
// Returns -1 for an empty slice.
func ArgMax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}
