// Package core provides the fundamental data structures for stand structure estimation.
//
// This package contains the domain model shared by the engines:
//
//   - UtilizationClass: the fixed diameter bins (SMALL, ALL, four bounded classes)
//     with their lower and upper diameter bounds
//   - UtilizationVector: an owned, fixed-size vector indexed by UtilizationClass
//   - Species, Layer, Polygon: the per-polygon inventory hierarchy holding one
//     UtilizationVector per attribute (basal area, trees per hectare, ...)
//   - UtilizationAttribute: an explicit list of vector-valued attributes used to
//     copy or sum vectors between a layer and its species
//   - QuadMeanDiameter / TreesPerHectare: the closed-form conversions between
//     basal area (m²/ha), stem density (stems/ha) and quadratic mean diameter (cm)
//   - ProcessingError: stand-scoped failures raised by the engines
//
// Example usage:
//
//	// Build a utilization vector for basal area
//	ba := core.NewUtilizationVector()
//	ba.Set(core.UtilAll, 20.0)
//	ba.Set(core.U75To125, 5.0)
//
//	// Convert between basal area, density and diameter
//	tph := core.TreesPerHectare(ba.Get(core.UtilAll), 22.5)
//	dq := core.QuadMeanDiameter(ba.Get(core.UtilAll), tph)
//
// All values are owned by the caller for the duration of one polygon's
// computation; nothing in this package holds shared mutable state.
package core
