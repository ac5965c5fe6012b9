/*
Copyright 2026 The standyield Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package reconcile forces independently estimated utilization-class breakdowns of
// basal area, trees per hectare and quadratic mean diameter back into agreement
// with their ALL totals.
package reconcile

import (
	"context"
	"fmt"
	"math"

	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/pkg/core"
)

const (
	// BaseAreaSumTolerance bounds the relative difference between the class and ALL basal areas on entry.
	BaseAreaSumTolerance = 3e-5
	// UnchangedTolerance bounds the relative TPH difference, and the absolute diameter
	// difference, under which the breakdown is left as is.
	UnchangedTolerance = 1e-5
	// ResultTolerance bounds the relative BA and TPH differences after Mode 2.
	ResultTolerance = 2e-4
	// MaxMode2Iterations is the Mode 2 iteration budget.
	MaxMode2Iterations = 4
	// Mode3DiameterOffset is added to each class low bound when Mode 3 resets diameters.
	Mode3DiameterOffset = 2.5
)

// mode1Classes is the Mode 1 transfer scan, in descending diameter order.
var mode1Classes = []core.UtilizationClass{core.Over225, core.U175To225, core.U125To175}

// Mode identifies the reconciliation path taken.
type Mode int

// enumeration of Mode
const (
	// ModeZero means the layer had no basal area; class values were zeroed.
	ModeZero Mode = iota
	// ModeUnchanged means the breakdown already agreed with its totals.
	ModeUnchanged
	// Mode1 pins diameters to their low bounds and moves basal area down.
	Mode1
	// Mode2 scales diameters uniformly, clamping the worst bound violation each iteration.
	Mode2
	// Mode3 collapses the whole stand into a single class.
	Mode3
)

func (m Mode) String() string {
	switch m {
	case ModeZero:
		return "zero"
	case ModeUnchanged:
		return "unchanged"
	case Mode1:
		return "mode1"
	case Mode2:
		return "mode2"
	case Mode3:
		return "mode3"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Outcome describes a completed reconciliation.
type Outcome struct {
	Mode Mode
	// Iterations is the number of Mode 2 iterations run, including one that fell back to Mode 3.
	Iterations int
}

// Engine reconciles the utilization vectors of one layer or species.
// It holds no state between calls; each polygon should still use its own Engine.
type Engine struct{}

// NewEngine returns a reconciliation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Reconcile corrects the per-class basal area, trees per hectare and quadratic mean
// diameter in place so that the classes sum to the ALL totals and every populated
// class diameter lies within its class bounds. Fatal conditions are returned as
// *core.ProcessingError; the vectors may then be partially updated.
func (e *Engine) Reconcile(ctx context.Context, ba, tph, dq *core.UtilizationVector) (Outcome, error) {
	logger := logging.FromContext(ctx)

	if ba.Get(core.UtilAll) == 0 {
		for _, uc := range core.UtilClasses {
			tph.Set(uc, 0)
			ba.Set(uc, 0)
		}
		logger.V(logging.DEBUG).Info("No basal area, zeroed utilization classes")
		return Outcome{Mode: ModeZero}, nil
	}

	baSum := ba.ClassSum()
	if relativeDifference(baSum, ba.Get(core.UtilAll)) > BaseAreaSumTolerance {
		return Outcome{}, core.NewProcessingError(core.ErrBaseAreaMismatch,
			"computed base areas for 7.5+ components sum to %g, expected %g", baSum, ba.Get(core.UtilAll))
	}

	dqAll := core.QuadMeanDiameter(ba.Get(core.UtilAll), tph.Get(core.UtilAll))
	if dqAll < core.MinimumDiameter {
		return Outcome{}, core.NewProcessingError(core.ErrQuadMeanDiameterTooSmall,
			"quadratic mean diameter %g computed from total base area and trees per hectare is less than %g cm",
			dqAll, core.MinimumDiameter)
	}

	var tphSumHigh float64
	for _, uc := range core.UtilClasses {
		tphSumHigh += core.TreesPerHectare(ba.Get(uc), uc.LowBound())
	}

	if tphSumHigh < tph.Get(core.UtilAll) {
		logger.V(logging.DEBUG).Info("Reconciling utilization classes",
			"mode", Mode1,
			"tphSumHigh", tphSumHigh,
			"tphAll", tph.Get(core.UtilAll))
		reconcileMode1(ba, tph, dq, tphSumHigh)
		return Outcome{Mode: Mode1}, nil
	}

	if isReconciled(ba, tph, dq) {
		logger.V(logging.DEBUG).Info("Utilization classes already reconciled")
		return Outcome{Mode: ModeUnchanged}, nil
	}

	return reconcileMode2(ctx, ba, tph, dq)
}

// relativeDifference returns |sum - total| / sum. A zero sum against a nonzero total is +Inf.
func relativeDifference(sum, total float64) float64 {
	return math.Abs(sum-total) / sum
}

// reconcileMode1 pins every class diameter to its low bound and moves basal area
// down from the upper classes until the classes can hold TPH_ALL stems.
func reconcileMode1(ba, tph, dq *core.UtilizationVector, tphSumHigh float64) {
	tphNeed := tph.Get(core.UtilAll) - tphSumHigh

	for _, uc := range core.UtilClasses {
		dq.Set(uc, uc.LowBound())
	}

	for _, uc := range mode1Classes {
		prev, _ := uc.Previous()
		area := ba.Get(uc)
		tphAvail := core.TreesPerHectare(area, prev.LowBound()) - core.TreesPerHectare(area, uc.LowBound())

		if tphAvail < tphNeed {
			ba.ScalarInPlace(prev, func(x float64) float64 { return x + area })
			ba.Set(uc, 0)
			tphNeed -= tphAvail
			continue
		}
		move := area * tphNeed / tphAvail
		ba.ScalarInPlace(prev, func(x float64) float64 { return x + move })
		ba.ScalarInPlace(uc, func(x float64) float64 { return x - move })
		break
	}

	for _, uc := range core.UtilClasses {
		tph.Set(uc, core.TreesPerHectare(ba.Get(uc), dq.Get(uc)))
	}
}

// isReconciled reports whether the class TPH already sums to TPH_ALL and every
// populated class carries a positive TPH and an in-bounds diameter consistent with its BA and TPH.
func isReconciled(ba, tph, dq *core.UtilizationVector) bool {
	if relativeDifference(tph.ClassSum(), tph.Get(core.UtilAll)) > UnchangedTolerance {
		return false
	}
	for _, uc := range core.UtilClasses {
		if ba.Get(uc) <= 0 {
			continue
		}
		if tph.Get(uc) <= 0 {
			return false
		}
		want := core.QuadMeanDiameter(ba.Get(uc), tph.Get(uc))
		got := dq.Get(uc)
		if got < uc.LowBound() || got > uc.HighBound() || math.Abs(want-got) >= UnchangedTolerance {
			return false
		}
	}
	return true
}
