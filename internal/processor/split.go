package processor

import (
	"github.com/standyield/standyield/pkg/core"
)

// splitUtilization gives every species of layer a utilization-class breakdown
// of its ALL basal area. A species that already carries class basal areas keeps
// their proportions; otherwise it takes the layer's. Class diameters come from
// the species where set and from the layer otherwise, and class densities follow
// from basal area and diameter. The below-utilization slot is shared out by
// species percent.
func splitUtilization(layer *core.Layer) {
	for _, sp := range layer.Species {
		share := sp.PercentGenus / 100
		sp.BaseArea.Set(core.UtilSmall, layer.BaseArea.Get(core.UtilSmall)*share)
		sp.TreesPerHectare.Set(core.UtilSmall, layer.TreesPerHectare.Get(core.UtilSmall)*share)
		sp.QuadMeanDiameter.Set(core.UtilSmall, layer.QuadMeanDiameter.Get(core.UtilSmall))

		ba := sp.BaseArea.Get(core.UtilAll)
		shares := &layer.BaseArea
		if sp.BaseArea.ClassSum() > 0 {
			shares = &sp.BaseArea
		}
		total := shares.ClassSum()

		for _, uc := range core.UtilClasses {
			var classBA float64
			if total > 0 {
				classBA = ba * shares.Get(uc) / total
			}
			dq := sp.QuadMeanDiameter.Get(uc)
			if dq <= 0 {
				dq = layer.QuadMeanDiameter.Get(uc)
			}
			if dq <= 0 {
				dq = uc.LowBound()
			}
			sp.BaseArea.Set(uc, classBA)
			sp.QuadMeanDiameter.Set(uc, dq)
			sp.TreesPerHectare.Set(uc, core.TreesPerHectare(classBA, dq))
		}
	}
}
