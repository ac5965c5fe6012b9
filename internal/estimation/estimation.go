// Package estimation implements the empirical relationships the engines consume:
// mean volume per tree, species size limits, species baseline diameters and the
// veteran layer basal area and diameter curves. Every relationship is backed by
// a coefficient table from the control configuration.
package estimation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/standyield/standyield/internal/config"
	"github.com/standyield/standyield/pkg/core"
)

// ErrCoefficientsNotFound is returned when a relationship has no coefficients
// for the requested key. It is a configuration error, not a stand failure.
var ErrCoefficientsNotFound = errors.New("coefficients not found")

const (
	// MinimumVeteranBaseArea is the floor of an estimated veteran basal area (m²/ha).
	MinimumVeteranBaseArea = 0.01
	// MinimumVeteranDiameter is the floor of a veteran species diameter (cm).
	MinimumVeteranDiameter = 22.5
)

// Limits bounds the size of a species.
type Limits struct {
	MaxLoreyHeight      float64
	MaxQuadMeanDiameter float64
	MinDiameterHeight   float64
	MaxDiameterHeight   float64
}

// StandSummary carries the layer totals a species baseline diameter is derived from.
type StandSummary struct {
	QuadMeanDiameter float64
	BaseArea         float64
	TreesPerHectare  float64
	LoreyHeight      float64
}

// Estimator evaluates the empirical relationships over indexed coefficient tables.
// It is read-only after construction and safe for concurrent use.
type Estimator struct {
	tables *config.CoefficientTables
}

// New returns an Estimator over tables.
func New(tables *config.CoefficientTables) *Estimator {
	return &Estimator{tables: tables}
}

// NewFromConfig indexes cfg and returns an Estimator over it.
func NewFromConfig(cfg *config.CoefficientsConfig, logger logr.Logger) *Estimator {
	return New(cfg.Index(logger))
}

// MeanVolume returns the whole-stem volume of a mean tree (m³) of the given
// volume group with lorey height hl (m) and quadratic mean diameter dq (cm).
func (e *Estimator) MeanVolume(volumeGroup int, hl, dq float64) (float64, error) {
	coe, ok := e.tables.VolumeGroups[volumeGroup]
	if !ok {
		return 0, fmt.Errorf("%w: volume group %d", ErrCoefficientsNotFound, volumeGroup)
	}
	c := coe.Coefficients
	lv := c[0] +
		c[1]*math.Log(dq) +
		c[2]*math.Log(hl) +
		c[3]*dq +
		c[4]/dq +
		c[5]*hl +
		c[6]*dq*dq +
		c[7]*dq*hl +
		c[8]*hl/dq
	return math.Exp(lv), nil
}

// Limits returns the size limits of genus in region.
func (e *Estimator) Limits(genus string, region core.Region) (Limits, error) {
	l, ok := config.Lookup(e.tables.ComponentSizeLimits, genus, string(region))
	if !ok {
		return Limits{}, fmt.Errorf("%w: size limits for genus %s in region %s", ErrCoefficientsNotFound, genus, region)
	}
	return Limits{
		MaxLoreyHeight:      l.MaxLoreyHeight,
		MaxQuadMeanDiameter: l.MaxQuadMeanDiameter,
		MinDiameterHeight:   l.MinDiameterHeight,
		MaxDiameterHeight:   l.MaxDiameterHeight,
	}, nil
}

// QuadMeanDiameterForSpecies returns the unclamped baseline diameter (cm) of a
// species with lorey height hl in a stand: the stand diameter above 7.5 cm is
// scaled by exp(a0)·(hl/standHL)^a1.
func (e *Estimator) QuadMeanDiameterForSpecies(genus string, region core.Region, hl float64, stand StandSummary) (float64, error) {
	coe, ok := config.Lookup(e.tables.SpeciesDiameter, genus, string(region))
	if !ok {
		return 0, fmt.Errorf("%w: species diameter for genus %s in region %s", ErrCoefficientsNotFound, genus, region)
	}
	if stand.LoreyHeight <= 0 || hl <= 0 {
		return stand.QuadMeanDiameter, nil
	}
	ratio := math.Exp(coe.A0) * math.Pow(hl/stand.LoreyHeight, coe.A1)
	return core.MinimumDiameter + (stand.QuadMeanDiameter-core.MinimumDiameter)*ratio, nil
}

// VeteranBaseArea returns the basal area (m²/ha) of a veteran layer whose leading
// genus is genus, from its height (m) and crown closure (percent).
func (e *Estimator) VeteranBaseArea(genus string, region core.Region, height, crownClosure float64) (float64, error) {
	coe, ok := config.Lookup(e.tables.VeteranBaseArea, genus, string(region))
	if !ok {
		return 0, fmt.Errorf("%w: veteran basal area for genus %s in region %s", ErrCoefficientsNotFound, genus, region)
	}
	ba := coe.A0 * math.Pow(math.Max(height-coe.A1, 0), coe.A2)
	ba *= crownClosure / 4
	return math.Max(ba, MinimumVeteranBaseArea), nil
}

// VeteranDiameter returns the quadratic mean diameter (cm) of a veteran species
// with lorey height hl.
func (e *Estimator) VeteranDiameter(genus string, region core.Region, hl float64) (float64, error) {
	coe, ok := config.Lookup(e.tables.VeteranDiameter, genus, string(region))
	if !ok {
		return 0, fmt.Errorf("%w: veteran diameter for genus %s in region %s", ErrCoefficientsNotFound, genus, region)
	}
	return math.Max(coe.A0+coe.A1*math.Pow(hl, coe.A2), MinimumVeteranDiameter), nil
}
