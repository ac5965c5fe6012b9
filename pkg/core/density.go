package core

import "math"

// piOver40K converts a squared diameter in cm² to a basal area in m².
const piOver40K = math.Pi / 40000

// densityUpperLimit guards QuadMeanDiameter against runaway inputs.
const densityUpperLimit = 1e6

// QuadMeanDiameter returns the quadratic mean diameter (cm) of a stand with the
// given basal area (m²/ha) and stem density (stems/ha).
// It returns 0 when either input is non-positive, NaN, or implausibly large.
func QuadMeanDiameter(basalArea, treesPerHectare float64) float64 {
	if math.IsNaN(basalArea) || math.IsNaN(treesPerHectare) {
		return 0
	}
	if basalArea > densityUpperLimit || treesPerHectare > densityUpperLimit {
		return 0
	}
	if basalArea <= 0 || treesPerHectare <= 0 {
		return 0
	}
	return math.Sqrt(basalArea / treesPerHectare / piOver40K)
}

// TreesPerHectare returns the stem density (stems/ha) of a stand with the given
// basal area (m²/ha) and quadratic mean diameter (cm). It is the inverse of QuadMeanDiameter.
// It returns 0 when basal area is zero or either input is NaN.
func TreesPerHectare(basalArea, quadMeanDiameter float64) float64 {
	if basalArea == 0 || math.IsNaN(basalArea) || math.IsNaN(quadMeanDiameter) {
		return 0
	}
	return basalArea / piOver40K / (quadMeanDiameter * quadMeanDiameter)
}

// BasalArea returns the basal area (m²/ha) of a stand with the given stem density and diameter.
func BasalArea(treesPerHectare, quadMeanDiameter float64) float64 {
	return treesPerHectare * piOver40K * quadMeanDiameter * quadMeanDiameter
}
