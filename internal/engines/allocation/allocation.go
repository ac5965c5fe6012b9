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

// Package allocation distributes the basal area and diameter of a primary layer
// across its species. For mixed layers a least-squares solve finds each species'
// percent of basal area and a shared diameter-scaling exponent so that species
// volume shares match their target percentages and the species densities add up
// to the layer density.
package allocation

import (
	"context"
	"fmt"
	"math"

	"github.com/standyield/standyield/internal/estimation"
	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/pkg/core"
	"github.com/standyield/standyield/pkg/solver"
)

const (
	// PrimaryHeightMultiplier relaxes the maximum lorey height of the primary genus.
	PrimaryHeightMultiplier = 1.5
	// DensityTolerance bounds the relative change of the layer TPH across the allocation.
	DensityTolerance = 0.002
	// VolumePercentTolerance bounds the gap between a species' volume percent and its goal.
	VolumePercentTolerance = 0.1
)

// Default solver budget.
const (
	DefaultTolerance      = 2e-3
	DefaultMaxEvaluations = 200
	DefaultMaxIterations  = 1000
)

// Estimator supplies the empirical relationships the allocation depends on.
type Estimator interface {
	MeanVolume(volumeGroup int, hl, dq float64) (float64, error)
	Limits(genus string, region core.Region) (estimation.Limits, error)
	QuadMeanDiameterForSpecies(genus string, region core.Region, hl float64, stand estimation.StandSummary) (float64, error)
}

// Settings bounds the solver.
type Settings struct {
	// Tolerance is the relative cost tolerance of the optimizer.
	Tolerance      float64
	MaxEvaluations int
	MaxIterations  int
}

// Report describes one allocation.
type Report struct {
	// Solved is false for single-species layers, which skip the optimizer.
	Solved      bool
	Iterations  int
	Evaluations int
	Status      solver.Status
}

// Allocator runs the species allocation for one polygon at a time.
// It holds no per-polygon state.
type Allocator struct {
	estimator Estimator
	settings  Settings
	minimizer solver.Minimizer
}

// NewAllocator creates an Allocator. Zero settings take their defaults.
func NewAllocator(estimator Estimator, settings Settings) *Allocator {
	if settings.Tolerance <= 0 {
		settings.Tolerance = DefaultTolerance
	}
	if settings.MaxEvaluations <= 0 {
		settings.MaxEvaluations = DefaultMaxEvaluations
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = DefaultMaxIterations
	}
	return &Allocator{
		estimator: estimator,
		settings:  settings,
		minimizer: solver.NewLevenbergMarquardt(solver.Settings{CostRelativeTolerance: settings.Tolerance}),
	}
}

// Solve finds the point whose residual reproduces goal, starting from x0. The
// first n-1 entries of the result are species percentages, the last is the
// diameter-scaling exponent. Any optimizer failure is returned wrapped in a
// ProcessingError of kind ErrSolverFailed; there is no retry.
func (a *Allocator) Solve(ctx context.Context, diameterBase, goal, x0 []float64, layer *core.Layer) ([]float64, *solver.Result, error) {
	n := len(x0)
	if n == 0 || len(goal) != n || len(diameterBase) != len(layer.Species) || len(layer.Species) != n {
		return nil, nil, core.NewProcessingError(core.ErrInvalidLayer,
			"allocation of %d species given %d goals, %d starting values and %d base diameters",
			len(layer.Species), len(goal), n, len(diameterBase))
	}

	result, err := a.minimizer.Minimize(solver.Problem{
		Func:   a.residualFunc(layer, diameterBase),
		Target: goal,
		Start:  x0,
		// n·I seeds the scaling of the damping term.
		Weights:        solver.UniformWeights(n, float64(n)),
		MaxEvaluations: a.settings.MaxEvaluations,
		MaxIterations:  a.settings.MaxIterations,
	})
	if err != nil {
		return nil, nil, core.WrapProcessingError(core.ErrSolverFailed, err, "allocating %d species", n)
	}
	logging.FromContext(ctx).V(logging.TRACE).Info("Species allocation solved",
		"point", result.X,
		"cost", result.Cost,
		"iterations", result.Iterations,
		"evaluations", result.Evaluations,
		"status", result.Status)
	return result.X, result, nil
}

// FindRootsForDiameterAndBaseArea assigns each species of a primary layer its
// percent, basal area, diameter, density and whole-stem volume from the layer
// totals, then updates the layer density, diameter, lorey height and volume.
// The layer's ALL basal area, TPH and diameter must already be set.
func (a *Allocator) FindRootsForDiameterAndBaseArea(ctx context.Context, layer *core.Layer, region core.Region, source FractionSource) (Report, error) {
	logger := logging.FromContext(ctx)
	if len(layer.Species) == 0 {
		return Report{}, core.NewProcessingError(core.ErrInvalidLayer, "layer has no species")
	}

	var (
		report  Report
		tphSum  float64
		percent []float64
	)

	if len(layer.Species) == 1 {
		sp := layer.Species[0]
		core.CopyUtilization(&sp.UtilizationHolder, &layer.UtilizationHolder, core.UtilAll, layerTotals())
		layer.LoreyHeight.Set(core.UtilAll, sp.LoreyHeight.Get(core.UtilAll))
		sp.PercentGenus = 100
		sp.FractionGenus = 1
		tphSum = layer.TreesPerHectare.Get(core.UtilAll)
	} else {
		goal, result, err := a.allocateMixed(ctx, layer, region, source)
		if err != nil {
			return report, err
		}
		report = Report{Solved: true, Iterations: result.Iterations, Evaluations: result.Evaluations, Status: result.Status}
		percent = goal
		for _, sp := range layer.Species {
			tphSum += sp.TreesPerHectare.Get(core.UtilAll)
		}
	}

	var volumeSum float64
	for _, sp := range layer.Species {
		mv, err := a.estimator.MeanVolume(sp.VolumeGroup, sp.LoreyHeight.Get(core.UtilAll), sp.QuadMeanDiameter.Get(core.UtilAll))
		if err != nil {
			return report, fmt.Errorf("estimating volume of species %s: %w", sp.Genus, err)
		}
		v := sp.TreesPerHectare.Get(core.UtilAll) * mv
		sp.WholeStemVolume.Set(core.UtilAll, v)
		volumeSum += v
	}
	layer.WholeStemVolume.Set(core.UtilAll, volumeSum)

	tphStart := layer.TreesPerHectare.Get(core.UtilAll)
	layer.TreesPerHectare.Set(core.UtilAll, tphSum)
	layer.QuadMeanDiameter.Set(core.UtilAll, core.QuadMeanDiameter(layer.BaseArea.Get(core.UtilAll), tphSum))

	if tphSum <= 0 || math.Abs(tphStart/tphSum-1) > DensityTolerance {
		return report, core.NewProcessingError(core.ErrAllocationMismatch,
			"species densities sum to %g, layer density was %g", tphSum, tphStart)
	}
	for i := 0; i < len(percent)-1; i++ {
		sp := layer.Species[i]
		got := 100 * sp.WholeStemVolume.Get(core.UtilAll) / volumeSum
		if math.Abs(got-percent[i]) > VolumePercentTolerance {
			return report, core.NewProcessingError(core.ErrAllocationMismatch,
				"species %s holds %.3f%% of the volume, expected %.3f%%", sp.Genus, got, percent[i])
		}
	}

	logger.V(logging.DEBUG).Info("Allocated layer across species",
		"species", len(layer.Species),
		"source", source,
		"loreyHeight", layer.LoreyHeight.Get(core.UtilAll),
		"treesPerHectare", tphSum,
		"wholeStemVolume", volumeSum)
	return report, nil
}

// layerTotals are the attributes a single species inherits from its layer.
// The species keeps its own lorey height and the layer takes it over.
func layerTotals() []core.UtilizationAttribute {
	attrs := core.NonVolumeAttributes()
	out := attrs[:0]
	for _, a := range attrs {
		if a.Name != core.AttrLoreyHeight.Name {
			out = append(out, a)
		}
	}
	return out
}

// allocateMixed runs the optimizer for a layer of two or more species and writes
// the solution back. It returns the goal vector it solved for.
func (a *Allocator) allocateMixed(ctx context.Context, layer *core.Layer, region core.Region, source FractionSource) ([]float64, *solver.Result, error) {
	n := len(layer.Species)
	limits := make([]estimation.Limits, n)
	for i, sp := range layer.Species {
		l, err := a.estimator.Limits(sp.Genus, region)
		if err != nil {
			return nil, nil, err
		}
		limits[i] = l
		maxHeight := l.MaxLoreyHeight
		if sp.Genus == layer.PrimaryGenus {
			maxHeight *= PrimaryHeightMultiplier
		}
		sp.LoreyHeight.ScalarInPlace(core.UtilAll, func(hl float64) float64 { return math.Min(hl, maxHeight) })
	}

	fractions, err := source.Fractions(layer.Species)
	if err != nil {
		return nil, nil, err
	}
	stand := estimation.StandSummary{
		QuadMeanDiameter: layer.QuadMeanDiameter.Get(core.UtilAll),
		BaseArea:         layer.BaseArea.Get(core.UtilAll),
		TreesPerHectare:  layer.TreesPerHectare.Get(core.UtilAll),
	}
	for i, sp := range layer.Species {
		sp.FractionGenus = fractions[i]
		stand.LoreyHeight += fractions[i] * sp.LoreyHeight.Get(core.UtilAll)
	}

	diameterBase := make([]float64, n)
	for i, sp := range layer.Species {
		hl := sp.LoreyHeight.Get(core.UtilAll)
		dqMin := limits[i].MinDiameterHeight * hl
		dqMax := math.Max(limits[i].MaxQuadMeanDiameter, limits[i].MaxDiameterHeight*hl)
		dq, err := a.estimator.QuadMeanDiameterForSpecies(sp.Genus, region, hl, stand)
		if err != nil {
			return nil, nil, err
		}
		diameterBase[i] = math.Max(dqMin, math.Min(dq, dqMax))
	}

	goal := make([]float64, n)
	x0 := make([]float64, n)
	for i := 0; i < n-1; i++ {
		goal[i] = layer.Species[i].PercentGenus
		x0[i] = layer.Species[i].PercentGenus
	}
	goal[n-1] = stand.QuadMeanDiameter

	root, result, err := a.Solve(ctx, diameterBase, goal, x0, layer)
	if err != nil {
		return nil, nil, err
	}

	states, err := a.evaluate(layer, diameterBase, root)
	if err != nil {
		return nil, nil, err
	}
	var loreyHeightSum float64
	for i, sp := range layer.Species {
		s := states[i]
		if s.percent < 0 || s.percent > 100 || math.IsNaN(s.percent) {
			return nil, nil, core.NewProcessingError(core.ErrAllocationInvalid,
				"species %s allocated %g%% of the basal area", sp.Genus, s.percent)
		}
		sp.PercentGenus = s.percent
		sp.QuadMeanDiameter.Set(core.UtilAll, s.quadMeanDiameter)
		sp.BaseArea.Set(core.UtilAll, s.baseArea)
		sp.TreesPerHectare.Set(core.UtilAll, s.treesPerHectare)
		loreyHeightSum += sp.LoreyHeight.Get(core.UtilAll) * s.baseArea
	}
	layer.LoreyHeight.Set(core.UtilAll, loreyHeightSum/stand.BaseArea)
	return goal, result, nil
}
