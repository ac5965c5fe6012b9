// Package solver implements the numerical root finding used to allocate a layer among species.
//
// The solver package contains a small nonlinear least-squares toolkit:
//
// Key Components:
//
//   - Minimizer: narrow interface for "drive f(x) to a target vector" solvers
//   - LevenbergMarquardt: damped Gauss-Newton implementation of Minimizer
//   - EstimateJacobian: forward-difference Jacobian for functions without a
//     closed-form derivative
//
// Optimization Strategy:
//
// Each iteration:
//  1. Evaluate the residual target - f(x) and its Jacobian at the current point
//  2. Solve the damped normal equations (JᵀWJ + μ·diag(JᵀWJ))·δ = JᵀW·r
//  3. Accept the step when it reduces the weighted cost, relaxing μ;
//     otherwise reject it and increase μ
//  4. Stop on relative cost reduction, negligible step, or orthogonality of
//     the residual to the Jacobian columns
//
// Example usage:
//
//	lm := solver.NewLevenbergMarquardt(solver.Settings{CostRelativeTolerance: 2e-3})
//	result, err := lm.Minimize(solver.Problem{
//	    Func:           f,
//	    Target:         goal,
//	    Start:          x0,
//	    Weights:        solver.UniformWeights(len(x0), float64(len(x0))),
//	    MaxEvaluations: 200,
//	    MaxIterations:  1000,
//	})
//	if err != nil {
//	    return err // no partial result is ever returned
//	}
//	use(result.X)
//
// The solver is designed to be:
//   - Deterministic: same inputs produce same outputs
//   - Stateless: a Minimizer may be shared, a Problem may not
//   - Strict: exceeding the evaluation or iteration budget is an error
package solver
