package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultTolerance      = 1e-10
	defaultInitialDamping = 1e-3
	// acceptRatio is the smallest actual/predicted reduction ratio that accepts a step.
	acceptRatio = 1e-4
)

// Settings tunes the stopping criteria of a LevenbergMarquardt minimizer.
// Zero values select the defaults.
type Settings struct {
	// CostRelativeTolerance stops when both the actual and predicted relative
	// reductions of the squared cost fall under it.
	CostRelativeTolerance float64
	// ParameterRelativeTolerance stops when an accepted step is this small relative to the point.
	ParameterRelativeTolerance float64
	// OrthoTolerance stops when the cosine between the residual and every Jacobian column falls under it.
	OrthoTolerance float64
	// InitialDamping scales the first damping factor against the largest diagonal entry of JᵀWJ.
	InitialDamping float64
}

// LevenbergMarquardt is a Minimizer using the damped Gauss-Newton method with
// Marquardt diagonal scaling and Nielsen's damping update.
type LevenbergMarquardt struct {
	settings Settings
}

var _ Minimizer = (*LevenbergMarquardt)(nil)

// NewLevenbergMarquardt returns a minimizer with the given settings, defaulting unset fields.
func NewLevenbergMarquardt(settings Settings) *LevenbergMarquardt {
	if settings.CostRelativeTolerance <= 0 {
		settings.CostRelativeTolerance = defaultTolerance
	}
	if settings.ParameterRelativeTolerance <= 0 {
		settings.ParameterRelativeTolerance = defaultTolerance
	}
	if settings.OrthoTolerance <= 0 {
		settings.OrthoTolerance = defaultTolerance
	}
	if settings.InitialDamping <= 0 {
		settings.InitialDamping = defaultInitialDamping
	}
	return &LevenbergMarquardt{settings: settings}
}

// Settings returns the effective settings.
func (lm *LevenbergMarquardt) Settings() Settings {
	return lm.settings
}

// lmState is the bookkeeping of one Minimize call.
type lmState struct {
	p           Problem
	sqrtW       []float64
	evaluations int
	iterations  int
	bestCost    float64
}

// evaluate computes Func at x and the weighted residual sqrt(W)·(target - f(x)).
func (s *lmState) evaluate(x []float64) (value, residual []float64, cost float64, err error) {
	s.evaluations++
	if s.p.MaxEvaluations > 0 && s.evaluations > s.p.MaxEvaluations {
		return nil, nil, 0, ErrTooManyEvaluations
	}
	value, err = s.p.Func(x)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(value) != len(s.p.Target) {
		return nil, nil, 0, fmt.Errorf("%w: function returned %d values, want %d", ErrDimensionMismatch, len(value), len(s.p.Target))
	}
	residual = make([]float64, len(value))
	for i, v := range value {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, 0, fmt.Errorf("%w: component %d is %g", ErrNotFinite, i, v)
		}
		residual[i] = s.sqrtW[i] * (s.p.Target[i] - v)
	}
	return value, residual, floats.Norm(residual, 2), nil
}

func (s *lmState) fail(reason error) error {
	return &ConvergenceError{
		Reason:      reason,
		Iterations:  s.iterations,
		Evaluations: s.evaluations,
		Cost:        s.bestCost,
	}
}

func validateProblem(p Problem) error {
	if p.Func == nil {
		return errors.New("problem has no function")
	}
	if len(p.Start) == 0 || len(p.Target) == 0 {
		return fmt.Errorf("%w: empty start or target", ErrDimensionMismatch)
	}
	if p.Weights != nil && len(p.Weights) != len(p.Target) {
		return fmt.Errorf("%w: %d weights for %d targets", ErrDimensionMismatch, len(p.Weights), len(p.Target))
	}
	for i, w := range p.Weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("weight %d is %g, must be non-negative", i, w)
		}
	}
	return nil
}

// Minimize finds x minimizing ‖sqrt(W)·(Target - Func(x))‖.
func (lm *LevenbergMarquardt) Minimize(p Problem) (*Result, error) {
	if err := validateProblem(p); err != nil {
		return nil, err
	}
	jacobian := p.Jacobian
	if jacobian == nil {
		jacobian = ForwardDifference(p.Func)
	}

	n, m := len(p.Start), len(p.Target)
	s := &lmState{p: p, sqrtW: make([]float64, m)}
	for i := range s.sqrtW {
		s.sqrtW[i] = 1
		if p.Weights != nil {
			s.sqrtW[i] = math.Sqrt(p.Weights[i])
		}
	}

	x := make([]float64, n)
	copy(x, p.Start)
	value, r, cost, err := s.evaluate(x)
	if err != nil {
		return nil, s.fail(err)
	}
	s.bestCost = cost

	done := func(status Status) (*Result, error) {
		return &Result{
			X:           x,
			Value:       value,
			Cost:        cost,
			Iterations:  s.iterations,
			Evaluations: s.evaluations,
			Status:      status,
		}, nil
	}

	var (
		mu     float64
		nu     = 2.0
		jw     = mat.NewDense(m, n, nil)
		jtj    mat.Dense
		grad   mat.VecDense
		delta  mat.VecDense
		jdelta mat.VecDense
		scale  = make([]float64, n)
		xNew   = make([]float64, n)
	)
	for {
		s.iterations++
		if p.MaxIterations > 0 && s.iterations > p.MaxIterations {
			return nil, s.fail(ErrTooManyIterations)
		}
		if cost == 0 {
			return done(ExactFit)
		}

		jac, err := jacobian(x)
		if err != nil {
			return nil, s.fail(err)
		}
		if rows, cols := jac.Dims(); rows != m || cols != n {
			return nil, s.fail(fmt.Errorf("%w: jacobian is %dx%d, want %dx%d", ErrDimensionMismatch, rows, cols, m, n))
		}
		jw.Apply(func(i, _ int, v float64) float64 { return s.sqrtW[i] * v }, jac)
		jtj.Mul(jw.T(), jw)
		rv := mat.NewVecDense(m, r)
		grad.MulVec(jw.T(), rv)

		if orthogonality(jw, &grad, cost) <= lm.settings.OrthoTolerance {
			return done(OrthogonalityConverged)
		}

		for j := range scale {
			scale[j] = math.Max(jtj.At(j, j), MachineEpsilon)
		}
		if mu == 0 {
			mu = lm.settings.InitialDamping * floats.Max(scale)
		}

		cost2 := cost * cost
		for {
			damped := mat.DenseCopyOf(&jtj)
			for j := range scale {
				damped.Set(j, j, jtj.At(j, j)+mu*scale[j])
			}
			if err := delta.SolveVec(damped, &grad); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return nil, s.fail(fmt.Errorf("solving damped normal equations: %w", err))
				}
			}
			step := delta.RawVector().Data
			floats.AddTo(xNew, x, step)

			jdelta.MulVec(jw, &delta)
			predicted := make([]float64, m)
			floats.SubTo(predicted, r, jdelta.RawVector().Data)
			predRel := (cost2 - floats.Dot(predicted, predicted)) / cost2

			valueNew, rNew, costNew, err := s.evaluate(xNew)
			if err != nil {
				return nil, s.fail(err)
			}
			actRel := 1 - (costNew*costNew)/cost2
			ratio := 0.0
			if predRel > 0 {
				ratio = actRel / predRel
			}

			accepted := ratio > acceptRatio
			if accepted {
				copy(x, xNew)
				value, r, cost = valueNew, rNew, costNew
				s.bestCost = cost
				mu *= math.Max(1.0/3, 1-math.Pow(2*ratio-1, 3))
				nu = 2
			} else {
				mu *= nu
				nu *= 2
			}

			if math.Abs(actRel) <= lm.settings.CostRelativeTolerance &&
				predRel <= lm.settings.CostRelativeTolerance && ratio <= 2 {
				return done(CostConverged)
			}
			if accepted {
				tol := lm.settings.ParameterRelativeTolerance
				if floats.Norm(step, 2) <= tol*(floats.Norm(x, 2)+tol) {
					return done(StepConverged)
				}
				break
			}
			if math.IsInf(mu, 0) {
				return nil, s.fail(errors.New("damping factor overflowed"))
			}
		}
	}
}

// orthogonality returns the largest cosine between the weighted residual and a Jacobian column.
func orthogonality(jw *mat.Dense, grad *mat.VecDense, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	var worst float64
	_, n := jw.Dims()
	for j := 0; j < n; j++ {
		norm := floats.Norm(mat.Col(nil, j, jw), 2)
		if norm == 0 {
			continue
		}
		worst = math.Max(worst, math.Abs(grad.AtVec(j))/(norm*cost))
	}
	return worst
}
