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

package core

import (
	"fmt"
	"strings"
)

// Region is the biogeoclimatic region a polygon belongs to.
type Region string

const (
	RegionCoastal  Region = "coastal"
	RegionInterior Region = "interior"
)

// ParseRegion converts a region name (case-insensitive, "C"/"I" accepted) into a Region.
func ParseRegion(s string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coastal", "coast", "c":
		return RegionCoastal, nil
	case "interior", "i":
		return RegionInterior, nil
	default:
		return "", fmt.Errorf("unknown region %q", s)
	}
}

// LayerType is the vertical stratum of a stand.
type LayerType string

const (
	LayerPrimary LayerType = "primary"
	LayerVeteran LayerType = "veteran"
)

// UtilizationHolder carries one UtilizationVector per estimated attribute.
// Layers and species both embed it; each holder owns its vectors.
type UtilizationHolder struct {
	BaseArea         UtilizationVector `json:"baseArea" yaml:"baseArea"`
	TreesPerHectare  UtilizationVector `json:"treesPerHectare" yaml:"treesPerHectare"`
	QuadMeanDiameter UtilizationVector `json:"quadMeanDiameter" yaml:"quadMeanDiameter"`
	LoreyHeight      UtilizationVector `json:"loreyHeight" yaml:"loreyHeight"`
	WholeStemVolume  UtilizationVector `json:"wholeStemVolume" yaml:"wholeStemVolume"`
}

// Species is one genus within a layer.
type Species struct {
	UtilizationHolder

	// Genus is the species group code (e.g. "PL", "FD").
	Genus string
	// PercentGenus is the species' share of the layer basal area (0-100).
	PercentGenus float64
	// FractionGenus is the species' weight used to average layer height.
	FractionGenus float64
	// VolumeGroup keys the mean-volume coefficients of the species.
	VolumeGroup int
}

// Layer is a vertical stratum of a polygon with its species in a fixed order.
type Layer struct {
	UtilizationHolder

	LayerType LayerType
	// PrimaryGenus is the genus with the largest share; used to relax its height limit.
	PrimaryGenus string
	// Height is the layer's leading height (m), used by veteran estimation.
	Height float64
	// CrownClosure is the layer's crown closure (percent), used by veteran estimation.
	CrownClosure float64
	Species      []*Species
}

// SpeciesByGenus returns the species with the given genus, or nil.
func (l *Layer) SpeciesByGenus(genus string) *Species {
	for _, s := range l.Species {
		if s.Genus == genus {
			return s
		}
	}
	return nil
}

// Polygon is one inventory polygon with its layers.
type Polygon struct {
	ID     string
	Region Region
	// Primary is the main canopy layer; nil if absent.
	Primary *Layer
	// Veteran is the residual overstory layer; nil if absent.
	Veteran *Layer
}

// PolygonResult is the outcome of processing one polygon.
type PolygonResult struct {
	Polygon *Polygon
	// Mode is the reconciliation mode applied to the primary layer.
	Mode string
	// Err is set when the polygon failed; the polygon's layers are then partially updated.
	Err error
}

// UtilizationAttribute names one vector-valued attribute of a UtilizationHolder
// together with its accessor.
type UtilizationAttribute struct {
	Name string
	// Summable attributes add up from species to layer.
	Summable bool
	// Volume attributes are excluded from the non-volume copy.
	Volume bool
	Vector func(h *UtilizationHolder) *UtilizationVector
}

// Attribute accessors, one per UtilizationHolder field.
var (
	AttrBaseArea = UtilizationAttribute{
		Name: "baseArea", Summable: true,
		Vector: func(h *UtilizationHolder) *UtilizationVector { return &h.BaseArea },
	}
	AttrTreesPerHectare = UtilizationAttribute{
		Name: "treesPerHectare", Summable: true,
		Vector: func(h *UtilizationHolder) *UtilizationVector { return &h.TreesPerHectare },
	}
	AttrQuadMeanDiameter = UtilizationAttribute{
		Name:   "quadMeanDiameter",
		Vector: func(h *UtilizationHolder) *UtilizationVector { return &h.QuadMeanDiameter },
	}
	AttrLoreyHeight = UtilizationAttribute{
		Name:   "loreyHeight",
		Vector: func(h *UtilizationHolder) *UtilizationVector { return &h.LoreyHeight },
	}
	AttrWholeStemVolume = UtilizationAttribute{
		Name: "wholeStemVolume", Summable: true, Volume: true,
		Vector: func(h *UtilizationHolder) *UtilizationVector { return &h.WholeStemVolume },
	}
)

// UtilizationAttributes lists every attribute of a UtilizationHolder.
var UtilizationAttributes = []UtilizationAttribute{
	AttrBaseArea, AttrTreesPerHectare, AttrQuadMeanDiameter, AttrLoreyHeight, AttrWholeStemVolume,
}

// NonVolumeAttributes returns the attributes that are not volumes.
func NonVolumeAttributes() []UtilizationAttribute {
	return filterAttributes(func(a UtilizationAttribute) bool { return !a.Volume })
}

// SummableAttributes returns the attributes that add up from species to layer.
func SummableAttributes() []UtilizationAttribute {
	return filterAttributes(func(a UtilizationAttribute) bool { return a.Summable })
}

func filterAttributes(keep func(UtilizationAttribute) bool) []UtilizationAttribute {
	out := make([]UtilizationAttribute, 0, len(UtilizationAttributes))
	for _, a := range UtilizationAttributes {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// CopyUtilization copies slot uc of each listed attribute from src into dst.
func CopyUtilization(dst, src *UtilizationHolder, uc UtilizationClass, attrs []UtilizationAttribute) {
	for _, a := range attrs {
		a.Vector(dst).Set(uc, a.Vector(src).Get(uc))
	}
}

// SumUtilization sets every slot of the listed attributes in dst to the sum over srcs.
func SumUtilization(dst *UtilizationHolder, srcs []*UtilizationHolder, attrs []UtilizationAttribute) {
	for _, a := range attrs {
		var sum UtilizationVector
		for _, src := range srcs {
			v := a.Vector(src)
			for i := range sum {
				sum[i] += v[i]
			}
		}
		*a.Vector(dst) = sum
	}
}

// Holders returns the UtilizationHolder of every species in layer order.
func (l *Layer) Holders() []*UtilizationHolder {
	out := make([]*UtilizationHolder, len(l.Species))
	for i, s := range l.Species {
		out[i] = &s.UtilizationHolder
	}
	return out
}

// AggregateSpecies sums the summable attributes of every species into the layer
// and recomputes the layer diameters from the sums.
func (l *Layer) AggregateSpecies() {
	SumUtilization(&l.UtilizationHolder, l.Holders(), SummableAttributes())
	for _, uc := range AllUtilizationClasses {
		l.QuadMeanDiameter.Set(uc, QuadMeanDiameter(l.BaseArea.Get(uc), l.TreesPerHectare.Get(uc)))
	}
}
