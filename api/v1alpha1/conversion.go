package v1alpha1

import (
	"github.com/standyield/standyield/pkg/core"
)

// ToVector converts c into a core.UtilizationVector. A nil receiver yields zeros.
func (c *ClassValues) ToVector() core.UtilizationVector {
	v := core.NewUtilizationVector()
	if c == nil {
		return v
	}
	v.Set(core.UtilSmall, c.Small)
	v.Set(core.UtilAll, c.All)
	v.Set(core.U75To125, c.U75To125)
	v.Set(core.U125To175, c.U125To175)
	v.Set(core.U175To225, c.U175To225)
	v.Set(core.Over225, c.Over225)
	return v
}

// FromVector converts a core.UtilizationVector into ClassValues.
func FromVector(v core.UtilizationVector) ClassValues {
	return ClassValues{
		Small:     v.Get(core.UtilSmall),
		All:       v.Get(core.UtilAll),
		U75To125:  v.Get(core.U75To125),
		U125To175: v.Get(core.U125To175),
		U175To225: v.Get(core.U175To225),
		Over225:   v.Get(core.Over225),
	}
}

// ToCore validates s and converts it into a core.Polygon.
func (s *Stand) ToCore() (*core.Polygon, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	region, err := core.ParseRegion(s.Spec.Region)
	if err != nil {
		return nil, err
	}
	poly := &core.Polygon{ID: s.Metadata.Name, Region: region}
	if s.Spec.Primary != nil {
		poly.Primary = s.Spec.Primary.toCore(core.LayerPrimary)
	}
	if s.Spec.Veteran != nil {
		poly.Veteran = s.Spec.Veteran.toCore(core.LayerVeteran)
	}
	return poly, nil
}

func (l *LayerSpec) toCore(layerType core.LayerType) *core.Layer {
	layer := &core.Layer{
		LayerType:    layerType,
		PrimaryGenus: l.PrimaryGenus,
		Height:       l.Height,
		CrownClosure: l.CrownClosure,
		Species:      make([]*core.Species, 0, len(l.Species)),
	}
	layer.BaseArea = l.BaseArea.ToVector()
	layer.TreesPerHectare = l.TreesPerHectare.ToVector()
	layer.QuadMeanDiameter = l.QuadMeanDiameter.ToVector()
	if layer.QuadMeanDiameter.Get(core.UtilAll) <= 0 {
		layer.QuadMeanDiameter.Set(core.UtilAll,
			core.QuadMeanDiameter(layer.BaseArea.Get(core.UtilAll), layer.TreesPerHectare.Get(core.UtilAll)))
	}

	var leading float64
	for _, spec := range l.Species {
		sp := &core.Species{
			Genus:        spec.Genus,
			PercentGenus: spec.Percent,
			VolumeGroup:  spec.VolumeGroup,
		}
		sp.BaseArea = spec.BaseArea.ToVector()
		sp.QuadMeanDiameter = spec.QuadMeanDiameter.ToVector()
		sp.LoreyHeight.Set(core.UtilAll, spec.LoreyHeight)
		layer.Species = append(layer.Species, sp)

		if l.PrimaryGenus == "" && spec.Percent > leading {
			leading = spec.Percent
			layer.PrimaryGenus = spec.Genus
		}
	}
	return layer
}

// SetStatus records the outcome of processing the polygon converted from s.
// result may be nil when the record never reached processing.
func (s *Stand) SetStatus(result *core.PolygonResult, reason string, err error) {
	status := &StandStatus{Reason: reason}
	if err != nil {
		status.Message = err.Error()
	}
	if result != nil {
		status.Mode = result.Mode
		if poly := result.Polygon; poly != nil {
			status.Primary = layerStatus(poly.Primary)
			status.Veteran = layerStatus(poly.Veteran)
		}
	}
	s.Status = status
}

func layerStatus(layer *core.Layer) *LayerStatus {
	if layer == nil {
		return nil
	}
	out := &LayerStatus{
		PrimaryGenus:     layer.PrimaryGenus,
		LoreyHeight:      layer.LoreyHeight.Get(core.UtilAll),
		BaseArea:         FromVector(layer.BaseArea),
		TreesPerHectare:  FromVector(layer.TreesPerHectare),
		QuadMeanDiameter: FromVector(layer.QuadMeanDiameter),
		WholeStemVolume:  FromVector(layer.WholeStemVolume),
		Species:          make([]SpeciesStatus, 0, len(layer.Species)),
	}
	for _, sp := range layer.Species {
		out.Species = append(out.Species, SpeciesStatus{
			Genus:            sp.Genus,
			Percent:          sp.PercentGenus,
			Fraction:         sp.FractionGenus,
			LoreyHeight:      sp.LoreyHeight.Get(core.UtilAll),
			BaseArea:         FromVector(sp.BaseArea),
			TreesPerHectare:  FromVector(sp.TreesPerHectare),
			QuadMeanDiameter: FromVector(sp.QuadMeanDiameter),
			WholeStemVolume:  FromVector(sp.WholeStemVolume),
		})
	}
	return out
}

// Vectors returns the basal area, trees per hectare and diameter vectors of u.
func (u *UtilizationVectors) Vectors() (ba, tph, dq core.UtilizationVector) {
	return u.BaseArea.ToVector(), u.TreesPerHectare.ToVector(), u.QuadMeanDiameter.ToVector()
}

// SetResult replaces the vectors of u with reconciled values and records the outcome.
func (u *UtilizationVectors) SetResult(ba, tph, dq core.UtilizationVector, mode string, iterations int, err error) {
	u.BaseArea = FromVector(ba)
	u.TreesPerHectare = FromVector(tph)
	u.QuadMeanDiameter = FromVector(dq)
	u.Status = &VectorsStatus{Mode: mode, Iterations: iterations}
	if err != nil {
		u.Status.Message = err.Error()
	}
}
