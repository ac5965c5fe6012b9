package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyEvaluations is returned when the solver exceeds Problem.MaxEvaluations.
	ErrTooManyEvaluations = errors.New("maximum evaluation count exceeded")
	// ErrTooManyIterations is returned when the solver exceeds Problem.MaxIterations.
	ErrTooManyIterations = errors.New("maximum iteration count exceeded")
	// ErrDimensionMismatch is returned when the start, target, weights and function value disagree in length.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNotFinite is returned when the function produces NaN or infinite values.
	ErrNotFinite = errors.New("function value is not finite")
)

// Status records why a minimization stopped.
type Status int

const (
	// Running means no stopping criterion has been met yet.
	Running Status = iota
	// ExactFit means the residual vanished.
	ExactFit
	// CostConverged means the actual and predicted relative cost reductions fell under tolerance.
	CostConverged
	// StepConverged means the parameter step became negligible relative to the point.
	StepConverged
	// OrthogonalityConverged means the residual is orthogonal to every Jacobian column.
	OrthogonalityConverged
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case ExactFit:
		return "ExactFit"
	case CostConverged:
		return "CostConverged"
	case StepConverged:
		return "StepConverged"
	case OrthogonalityConverged:
		return "OrthogonalityConverged"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Problem describes one "drive Func(x) to Target" least-squares problem.
type Problem struct {
	// Func is the model function. Required.
	Func VectorFunc
	// Jacobian is the derivative of Func. Defaults to ForwardDifference(Func).
	Jacobian JacobianFunc
	// Target is the vector Func should reproduce.
	Target []float64
	// Start is the initial point. It is not modified.
	Start []float64
	// Weights is the diagonal of the weight matrix. Defaults to all ones.
	Weights []float64
	// MaxEvaluations bounds the number of points at which Func is evaluated.
	MaxEvaluations int
	// MaxIterations bounds the number of Jacobian updates.
	MaxIterations int
}

// UniformWeights returns a weight diagonal of length n with every entry set to w.
func UniformWeights(n int, w float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = w
	}
	return out
}

// Result is a converged solution.
type Result struct {
	// X is the solution point.
	X []float64
	// Value is Func(X).
	Value []float64
	// Cost is the weighted residual norm at X.
	Cost        float64
	Iterations  int
	Evaluations int
	Status      Status
}

// ConvergenceError reports a minimization that stopped without converging.
type ConvergenceError struct {
	// Reason is ErrTooManyEvaluations, ErrTooManyIterations or the function's own error.
	Reason      error
	Iterations  int
	Evaluations int
	// Cost is the best weighted residual norm reached.
	Cost float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("solver did not converge after %d iterations and %d evaluations (cost %g): %v",
		e.Iterations, e.Evaluations, e.Cost, e.Reason)
}

func (e *ConvergenceError) Unwrap() error {
	return e.Reason
}

// Minimizer drives a model function toward a target vector.
// Implementations return either a converged Result or an error, never both.
type Minimizer interface {
	Minimize(p Problem) (*Result, error)
}
