// Package veteran estimates the residual overstory of a polygon. Veteran trees
// all fall in the largest utilization class, so the layer is filled in directly
// from its height and crown closure without any reconciliation.
package veteran

import (
	"context"
	"fmt"

	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/pkg/core"
)

// Estimator supplies the veteran relationships.
type Estimator interface {
	VeteranBaseArea(genus string, region core.Region, height, crownClosure float64) (float64, error)
	VeteranDiameter(genus string, region core.Region, hl float64) (float64, error)
	MeanVolume(volumeGroup int, hl, dq float64) (float64, error)
}

// Engine estimates veteran layers.
type Engine struct {
	estimator Estimator
}

// NewEngine creates an Engine over estimator.
func NewEngine(estimator Estimator) *Engine {
	return &Engine{estimator: estimator}
}

// Estimate fills in the ALL and LARGEST slots of a veteran layer and its species.
// Species lorey heights are the layer height and species basal areas split the
// estimated layer basal area by percent.
func (e *Engine) Estimate(ctx context.Context, layer *core.Layer, region core.Region) error {
	if len(layer.Species) == 0 {
		return core.NewProcessingError(core.ErrInvalidLayer, "veteran layer has no species")
	}
	if layer.Height <= 0 {
		return core.NewProcessingError(core.ErrInvalidLayer, "veteran layer height is %g", layer.Height)
	}

	primary := layer.Species[0]
	for _, sp := range layer.Species[1:] {
		if sp.PercentGenus > primary.PercentGenus {
			primary = sp
		}
	}
	layer.PrimaryGenus = primary.Genus

	ba, err := e.estimator.VeteranBaseArea(primary.Genus, region, layer.Height, layer.CrownClosure)
	if err != nil {
		return err
	}

	for _, sp := range layer.Species {
		hl := layer.Height
		dq, err := e.estimator.VeteranDiameter(sp.Genus, region, hl)
		if err != nil {
			return err
		}
		spBA := ba * sp.PercentGenus / 100
		tph := core.TreesPerHectare(spBA, dq)
		mv, err := e.estimator.MeanVolume(sp.VolumeGroup, hl, dq)
		if err != nil {
			return fmt.Errorf("estimating volume of veteran species %s: %w", sp.Genus, err)
		}

		sp.FractionGenus = sp.PercentGenus / 100
		for _, uc := range []core.UtilizationClass{core.UtilAll, core.UtilLargest} {
			sp.LoreyHeight.Set(uc, hl)
			sp.BaseArea.Set(uc, spBA)
			sp.QuadMeanDiameter.Set(uc, dq)
			sp.TreesPerHectare.Set(uc, tph)
			sp.WholeStemVolume.Set(uc, tph*mv)
		}
	}

	layer.AggregateSpecies()
	layer.LoreyHeight.Set(core.UtilAll, layer.Height)
	layer.LoreyHeight.Set(core.UtilLargest, layer.Height)

	logging.FromContext(ctx).V(logging.DEBUG).Info("Estimated veteran layer",
		"primaryGenus", layer.PrimaryGenus,
		"baseArea", layer.BaseArea.Get(core.UtilAll),
		"treesPerHectare", layer.TreesPerHectare.Get(core.UtilAll))
	return nil
}
