package allocation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/standyield/standyield/pkg/core"
	"github.com/standyield/standyield/pkg/solver"
)

// DiameterScaleDivisor divides the shared exponent t in dq = 7.5 + (base - 7.5)·exp(t/DiameterScaleDivisor).
const DiameterScaleDivisor = 20

// speciesState is the per-species result of evaluating a candidate point.
type speciesState struct {
	percent          float64
	quadMeanDiameter float64
	baseArea         float64
	treesPerHectare  float64
	wholeStemVolume  float64
}

// scaledDiameter applies the shared exponent t to a baseline diameter.
func scaledDiameter(base, t float64) float64 {
	return core.MinimumDiameter + (base-core.MinimumDiameter)*math.Exp(t/DiameterScaleDivisor)
}

// percentages expands the first n-1 entries of point into n species percentages;
// the last species takes the remainder of 100.
func percentages(point []float64) []float64 {
	out := make([]float64, len(point))
	copy(out, point[:len(point)-1])
	out[len(point)-1] = 100 - floats.Sum(out[:len(point)-1])
	return out
}

// evaluate computes every species' diameter, basal area, density and whole-stem
// volume at point. It reads the layer but never writes it.
func (a *Allocator) evaluate(layer *core.Layer, diameterBase, point []float64) ([]speciesState, error) {
	layerBA := layer.BaseArea.Get(core.UtilAll)
	t := point[len(point)-1]
	pct := percentages(point)

	out := make([]speciesState, len(layer.Species))
	for j, sp := range layer.Species {
		dq := scaledDiameter(diameterBase[j], t)
		ba := layerBA * pct[j] / 100
		tph := core.TreesPerHectare(ba, dq)
		mv, err := a.estimator.MeanVolume(sp.VolumeGroup, sp.LoreyHeight.Get(core.UtilAll), dq)
		if err != nil {
			return nil, err
		}
		out[j] = speciesState{
			percent:          pct[j],
			quadMeanDiameter: dq,
			baseArea:         ba,
			treesPerHectare:  tph,
			wholeStemVolume:  tph * mv,
		}
	}
	return out, nil
}

// residualFunc returns the function the optimizer drives to the goal vector:
// the percent of volume of every species but the last, followed by the layer
// diameter implied by the species densities. A single species yields only the diameter.
func (a *Allocator) residualFunc(layer *core.Layer, diameterBase []float64) solver.VectorFunc {
	return func(point []float64) ([]float64, error) {
		states, err := a.evaluate(layer, diameterBase, point)
		if err != nil {
			return nil, err
		}
		volumes := make([]float64, len(states))
		densities := make([]float64, len(states))
		for i, s := range states {
			volumes[i] = s.wholeStemVolume
			densities[i] = s.treesPerHectare
		}
		volumeSum := floats.Sum(volumes)

		y := make([]float64, len(point))
		if len(states) > 1 {
			for i := 0; i < len(states)-1; i++ {
				y[i] = 100 * states[i].wholeStemVolume / volumeSum
			}
		}
		y[len(y)-1] = core.QuadMeanDiameter(layer.BaseArea.Get(core.UtilAll), floats.Sum(densities))
		return y, nil
	}
}
