// Package kernelfn provides reference KernelFn implementations. The cache
// itself is deliberately agnostic to the concrete similarity function used;
// these exist only as deterministic fixtures for tests and the benchmark
// CLI, not as a supported kernel taxonomy.
package kernelfn

import "math"

// Dot returns a KernelFn computing the dot product of rows i and j in a
// dense, row-major feature matrix with the given width.
func Dot(features []float64, width int) func(i, j int32) (float64, error) {
	return func(i, j int32) (float64, error) {
		a := features[int(i)*width : int(i)*width+width]
		b := features[int(j)*width : int(j)*width+width]
		var sum float64
		for k := range a {
			sum += a[k] * b[k]
		}
		return sum, nil
	}
}

// RBF returns a KernelFn computing exp(-gamma * ||x_i - x_j||^2) over a
// dense, row-major feature matrix with the given width.
func RBF(features []float64, width int, gamma float64) func(i, j int32) (float64, error) {
	return func(i, j int32) (float64, error) {
		a := features[int(i)*width : int(i)*width+width]
		b := features[int(j)*width : int(j)*width+width]
		var sqDist float64
		for k := range a {
			d := a[k] - b[k]
			sqDist += d * d
		}
		return math.Exp(-gamma * sqDist), nil
	}
}

// Poly returns a KernelFn computing (gamma*<x_i,x_j> + coef0)^degree over a
// dense, row-major feature matrix with the given width.
func Poly(features []float64, width int, degree int, gamma, coef0 float64) func(i, j int32) (float64, error) {
	return func(i, j int32) (float64, error) {
		a := features[int(i)*width : int(i)*width+width]
		b := features[int(j)*width : int(j)*width+width]
		var dot float64
		for k := range a {
			dot += a[k] * b[k]
		}
		return math.Pow(gamma*dot+coef0, float64(degree)), nil
	}
}

// Linear returns a deterministic synthetic kernel used by tests and
// benchmarks that don't need real feature data: kappa(i, j) = 10*min(i,j) +
// max(i,j). It is symmetric by construction, as KernelFn requires, while
// still giving every (i, j) pair a distinct, easy-to-hand-check value.
func Linear() func(i, j int32) (float64, error) {
	return func(i, j int32) (float64, error) {
		lo, hi := i, j
		if lo > hi {
			lo, hi = hi, lo
		}
		return float64(10*lo + hi), nil
	}
}
