package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// MachineEpsilon is the relative spacing of float64 values.
	MachineEpsilon = 2.22e-16
	// FunctionEpsilon is the relative precision assumed for evaluated functions.
	FunctionEpsilon = 1.19e-07
)

// jacobianStep is the relative perturbation used by the forward-difference estimate.
var jacobianStep = math.Sqrt(math.Max(FunctionEpsilon, MachineEpsilon))

// VectorFunc evaluates a vector-valued function at x. It must not retain or modify x.
type VectorFunc func(x []float64) ([]float64, error)

// JacobianFunc returns the Jacobian of a VectorFunc at x, one row per output.
type JacobianFunc func(x []float64) (*mat.Dense, error)

// ForwardDifference returns a JacobianFunc estimating the Jacobian of f by forward differences.
func ForwardDifference(f VectorFunc) JacobianFunc {
	return func(x []float64) (*mat.Dense, error) {
		y, err := f(x)
		if err != nil {
			return nil, err
		}
		return EstimateJacobian(x, y, f)
	}
}

// EstimateJacobian estimates the Jacobian of f at x by forward differences, given y = f(x).
// Column j is (f(x + h_j·e_j) - y) / h_j with h_j = sqrt(max(εf, εm))·|x_j|,
// falling back to the unscaled step when x_j is zero.
func EstimateJacobian(x, y []float64, f VectorFunc) (*mat.Dense, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, fmt.Errorf("%w: empty point or value", ErrDimensionMismatch)
	}
	jac := mat.NewDense(len(y), len(x), nil)
	x2 := make([]float64, len(x))
	copy(x2, x)
	for j := range x {
		temp := x[j]
		h := jacobianStep * math.Abs(temp)
		if h == 0 {
			h = jacobianStep
		}
		x2[j] = temp + h
		y2, err := f(x2)
		x2[j] = temp
		if err != nil {
			return nil, fmt.Errorf("evaluating column %d: %w", j, err)
		}
		if len(y2) != len(y) {
			return nil, fmt.Errorf("%w: column %d has %d values, want %d", ErrDimensionMismatch, j, len(y2), len(y))
		}
		for i := range y {
			jac.Set(i, j, (y2[i]-y[i])/h)
		}
	}
	return jac, nil
}
