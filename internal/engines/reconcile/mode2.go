package reconcile

import (
	"context"
	"math"

	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/pkg/core"
)

// violation is a trial diameter outside its class bounds.
type violation struct {
	class     core.UtilizationClass
	magnitude float64
	low       bool
}

// bound returns the bound the violating diameter is clamped to.
func (v violation) bound() float64 {
	if v.low {
		return v.class.LowBound()
	}
	return v.class.HighBound()
}

// worstViolation returns the largest relative bound violation among the trial
// diameters. Earlier classes win ties. Low violations only count for populated classes.
func worstViolation(ba, trial *core.UtilizationVector) (violation, bool) {
	var worst violation
	found := false
	for _, uc := range core.UtilClasses {
		d := trial.Get(uc)
		if ba.Get(uc) > 0 && d < uc.LowBound() {
			if vi := 1 - d/uc.LowBound(); vi > worst.magnitude {
				worst = violation{class: uc, magnitude: vi, low: true}
				found = true
			}
		}
		if d > uc.HighBound() {
			if vi := d/uc.HighBound() - 1; vi > worst.magnitude {
				worst = violation{class: uc, magnitude: vi, low: false}
				found = true
			}
		}
	}
	return worst, found
}

// reconcileMode2 scales the unclamped class diameters by a common factor that
// reproduces the remaining stand diameter, clamping the worst offender each iteration.
func reconcileMode2(ctx context.Context, ba, tph, dq *core.UtilizationVector) (Outcome, error) {
	logger := logging.FromContext(ctx)

	var (
		baFixed, tphFixed float64
		limited           = map[core.UtilizationClass]bool{}
		trial             core.UtilizationVector
	)

	n := 0
	for {
		n++
		if n > MaxMode2Iterations {
			return Outcome{Mode: Mode2, Iterations: n - 1}, core.NewProcessingError(core.ErrIterationsExceeded,
				"mode 2 component reconciliation iterations exceeded %d", MaxMode2Iterations)
		}

		var sum float64
		for _, uc := range core.UtilClasses {
			if b := ba.Get(uc); b != 0 && !limited[uc] {
				d := dq.Get(uc)
				sum += b / (d * d)
			}
		}

		baAll := ba.Get(core.UtilAll) - baFixed
		tphAll := tph.Get(core.UtilAll) - tphFixed
		if baAll <= 0 || tphAll <= 0 {
			logger.V(logging.DEBUG).Info("Remaining stand exhausted, collapsing into one class",
				"mode", Mode3,
				"iteration", n,
				"baRemaining", baAll,
				"tphRemaining", tphAll)
			if err := reconcileMode3(ba, tph, dq); err != nil {
				return Outcome{Mode: Mode3, Iterations: n}, err
			}
			return Outcome{Mode: Mode3, Iterations: n}, nil
		}

		dqAll := core.QuadMeanDiameter(baAll, tphAll)
		sqrtK := math.Sqrt(dqAll * dqAll / baAll * sum)

		for _, uc := range core.UtilClasses {
			if !limited[uc] && ba.Get(uc) > 0 {
				trial.Set(uc, dq.Get(uc)*sqrtK)
			}
		}

		worst, found := worstViolation(ba, &trial)
		logger.V(logging.TRACE).Info("Mode 2 iteration",
			"iteration", n,
			"scale", sqrtK,
			"trial", trial,
			"violation", found)
		if !found {
			break
		}

		trial.Set(worst.class, worst.bound())
		limited[worst.class] = true
		baFixed += ba.Get(worst.class)
		tphFixed += core.TreesPerHectare(ba.Get(worst.class), trial.Get(worst.class))
	}

	for _, uc := range core.UtilClasses {
		dq.Set(uc, trial.Get(uc))
		tph.Set(uc, core.TreesPerHectare(ba.Get(uc), dq.Get(uc)))
	}

	if baSum := ba.ClassSum(); relativeDifference(baSum, ba.Get(core.UtilAll)) > ResultTolerance {
		return Outcome{Mode: Mode2, Iterations: n}, core.NewProcessingError(core.ErrBaseAreaNotReconciled,
			"failed to reconcile base area: classes sum to %g, expected %g", baSum, ba.Get(core.UtilAll))
	}
	if tphSum := tph.ClassSum(); relativeDifference(tphSum, tph.Get(core.UtilAll)) > ResultTolerance {
		return Outcome{Mode: Mode2, Iterations: n}, core.NewProcessingError(core.ErrTreesPerHectareNotReconciled,
			"failed to reconcile trees per hectare: classes sum to %g, expected %g", tphSum, tph.Get(core.UtilAll))
	}

	logger.V(logging.DEBUG).Info("Reconciled utilization classes", "mode", Mode2, "iterations", n)
	return Outcome{Mode: Mode2, Iterations: n}, nil
}

// reconcileMode3 assigns the whole stand to the first class whose high bound
// exceeds the stand diameter. Every other class is emptied with its diameter
// reset to the class low bound plus Mode3DiameterOffset.
func reconcileMode3(ba, tph, dq *core.UtilizationVector) error {
	for _, uc := range core.UtilClasses {
		ba.Set(uc, 0)
		tph.Set(uc, 0)
		dq.Set(uc, uc.LowBound()+Mode3DiameterOffset)
	}

	dqAll := dq.Get(core.UtilAll)
	for _, uc := range core.UtilClasses {
		if dqAll < uc.HighBound() {
			ba.Set(uc, ba.Get(core.UtilAll))
			tph.Set(uc, tph.Get(core.UtilAll))
			dq.Set(uc, dqAll)
			return nil
		}
	}
	return core.NewProcessingError(core.ErrNoUtilizationClass,
		"no utilization class holds a stand diameter of %g cm", dqAll)
}
