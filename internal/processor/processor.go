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

// Package processor runs the stand engines over inventory polygons.
//
// A primary layer is reconciled across its utilization classes, allocated
// across its species, split into per-species class breakdowns and reconciled
// again per species. A veteran layer is estimated from its height and crown
// closure. Every polygon gets its own engines, so polygons can run concurrently.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standyield/standyield/internal/config"
	"github.com/standyield/standyield/internal/engines/allocation"
	"github.com/standyield/standyield/internal/engines/reconcile"
	"github.com/standyield/standyield/internal/engines/veteran"
	"github.com/standyield/standyield/internal/estimation"
	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/internal/metrics"
	"github.com/standyield/standyield/pkg/core"
)

// Processing stages, used to label errors.
const (
	StageReconcile        = "reconcile"
	StageAllocation       = "allocation"
	StageSpeciesReconcile = "species-reconcile"
	StageVeteran          = "veteran"
)

// StageError attributes a polygon failure to the stage that produced it.
type StageError struct {
	Polygon string
	Stage   string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("polygon %s: %s: %v", e.Polygon, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage a polygon failure is attributed to, or "" when err
// carries no stage.
func StageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// Processor processes polygons with a fixed configuration.
type Processor struct {
	estimator *estimation.Estimator
	recorder  *metrics.Recorder
	settings  allocation.Settings
	source    allocation.FractionSource
	workers   int
	failFast  bool
}

// New creates a Processor. recorder may be nil.
func New(cfg *config.Config, estimator *estimation.Estimator, recorder *metrics.Recorder) (*Processor, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if estimator == nil {
		return nil, errors.New("estimator cannot be nil")
	}
	source, err := allocation.ParseFractionSource(cfg.Processing.FractionSource)
	if err != nil {
		return nil, err
	}
	workers := cfg.Processing.Workers
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		estimator: estimator,
		recorder:  recorder,
		settings: allocation.Settings{
			Tolerance:      cfg.Solver.Tolerance,
			MaxEvaluations: cfg.Solver.MaxEvaluations,
			MaxIterations:  cfg.Solver.MaxIterations,
		},
		source:   source,
		workers:  workers,
		failFast: cfg.Processing.FailFast,
	}, nil
}

// ProcessPolygon processes every layer of poly in place. A stand-scoped failure
// is returned and also recorded on the result; the polygon's layers are then
// partially updated.
func (p *Processor) ProcessPolygon(ctx context.Context, poly *core.Polygon) (*core.PolygonResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).WithValues("polygon", poly.ID)
	ctx = logging.IntoContext(ctx, logger)

	result := &core.PolygonResult{Polygon: poly}
	err := p.processLayers(ctx, poly, result)
	if err != nil {
		result.Err = err
		p.recorder.RecordPolygon(metrics.ResultFailure, time.Since(start))
		if stage := StageOf(err); stage != "" {
			p.recorder.RecordError(stage)
		}
		logger.Error(err, "Polygon failed")
		return result, err
	}
	p.recorder.RecordPolygon(metrics.ResultSuccess, time.Since(start))
	logger.V(logging.DEBUG).Info("Polygon processed", "mode", result.Mode, "duration", time.Since(start))
	return result, nil
}

func (p *Processor) processLayers(ctx context.Context, poly *core.Polygon, result *core.PolygonResult) error {
	if poly.Primary == nil && poly.Veteran == nil {
		return &StageError{Polygon: poly.ID, Stage: StageReconcile,
			Err: core.NewProcessingError(core.ErrInvalidLayer, "polygon has no layers")}
	}
	if poly.Primary != nil {
		mode, err := p.processPrimary(ctx, poly.ID, poly.Primary, poly.Region)
		result.Mode = mode
		if err != nil {
			return err
		}
	}
	if poly.Veteran != nil {
		if err := veteran.NewEngine(p.estimator).Estimate(ctx, poly.Veteran, poly.Region); err != nil {
			return &StageError{Polygon: poly.ID, Stage: StageVeteran, Err: err}
		}
	}
	return nil
}

// processPrimary runs the primary layer pipeline and returns the layer reconciliation mode.
func (p *Processor) processPrimary(ctx context.Context, id string, layer *core.Layer, region core.Region) (string, error) {
	engine := reconcile.NewEngine()
	outcome, err := engine.Reconcile(ctx, &layer.BaseArea, &layer.TreesPerHectare, &layer.QuadMeanDiameter)
	if err != nil {
		return "", &StageError{Polygon: id, Stage: StageReconcile, Err: err}
	}
	p.recorder.RecordReconcile(outcome.Mode.String())

	allocator := allocation.NewAllocator(p.estimator, p.settings)
	report, err := allocator.FindRootsForDiameterAndBaseArea(ctx, layer, region, p.source)
	if report.Solved {
		p.recorder.RecordAllocation(report.Iterations, report.Evaluations)
	}
	if err != nil {
		return outcome.Mode.String(), &StageError{Polygon: id, Stage: StageAllocation, Err: err}
	}

	splitUtilization(layer)
	for _, sp := range layer.Species {
		spOutcome, err := engine.Reconcile(ctx, &sp.BaseArea, &sp.TreesPerHectare, &sp.QuadMeanDiameter)
		if err != nil {
			return outcome.Mode.String(), &StageError{Polygon: id, Stage: StageSpeciesReconcile,
				Err: fmt.Errorf("species %s: %w", sp.Genus, err)}
		}
		p.recorder.RecordReconcile(spOutcome.Mode.String())
	}
	layer.AggregateSpecies()
	return outcome.Mode.String(), nil
}

// ProcessAll processes polygons with at most the configured number in flight.
// Results are returned in input order. A polygon failure only stops the batch
// when fail-fast is set; the returned error is then the first failure.
func (p *Processor) ProcessAll(ctx context.Context, polygons []*core.Polygon) ([]*core.PolygonResult, error) {
	results := make([]*core.PolygonResult, len(polygons))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, poly := range polygons {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				results[i] = &core.PolygonResult{Polygon: poly, Err: err}
				return err
			}
			result, err := p.ProcessPolygon(gCtx, poly)
			results[i] = result
			if err != nil && p.failFast {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
