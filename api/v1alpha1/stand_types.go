package v1alpha1

// ClassValues holds one attribute across the utilization classes.
type ClassValues struct {
	// Small is the below-utilization slot (diameters under 7.5 cm).
	// +optional
	Small float64 `json:"small,omitempty" yaml:"small,omitempty" validate:"gte=0,finite"`
	// All is the stand total over every class at or above 7.5 cm.
	All float64 `json:"all" yaml:"all" validate:"gte=0,finite"`
	// U75To125 covers diameters in [7.5, 12.5) cm.
	U75To125 float64 `json:"u75to125" yaml:"u75to125" validate:"gte=0,finite"`
	// U125To175 covers diameters in [12.5, 17.5) cm.
	U125To175 float64 `json:"u125to175" yaml:"u125to175" validate:"gte=0,finite"`
	// U175To225 covers diameters in [17.5, 22.5) cm.
	U175To225 float64 `json:"u175to225" yaml:"u175to225" validate:"gte=0,finite"`
	// Over225 covers diameters of 22.5 cm and more.
	Over225 float64 `json:"over225" yaml:"over225" validate:"gte=0,finite"`
}

// StandSpec is the inventory record of one polygon.
type StandSpec struct {
	// Region is the polygon's biogeoclimatic region: "coastal" or "interior".
	// +kubebuilder:validation:Enum=coastal;interior
	Region string `json:"region" yaml:"region" validate:"required,region"`

	// Primary is the main canopy layer.
	// +optional
	Primary *LayerSpec `json:"primary,omitempty" yaml:"primary,omitempty"`

	// Veteran is the residual overstory layer.
	// +optional
	Veteran *LayerSpec `json:"veteran,omitempty" yaml:"veteran,omitempty"`
}

// LayerSpec describes one layer of a polygon.
//
// A primary layer carries its utilization breakdown: basal area and trees per
// hectare by class, with class diameters. A veteran layer only needs its height
// and crown closure; its utilization is estimated.
type LayerSpec struct {
	// Height is the leading height of the layer (m). Required for a veteran layer.
	// +optional
	Height float64 `json:"height,omitempty" yaml:"height,omitempty"`

	// CrownClosure is the layer crown closure (percent). Used by a veteran layer.
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=100
	// +optional
	CrownClosure float64 `json:"crownClosure,omitempty" yaml:"crownClosure,omitempty" validate:"gte=0,lte=100"`

	// PrimaryGenus is the leading genus. Defaults to the species with the largest percent.
	// +optional
	PrimaryGenus string `json:"primaryGenus,omitempty" yaml:"primaryGenus,omitempty"`

	// +optional
	BaseArea *ClassValues `json:"baseArea,omitempty" yaml:"baseArea,omitempty"`
	// +optional
	TreesPerHectare *ClassValues `json:"treesPerHectare,omitempty" yaml:"treesPerHectare,omitempty"`
	// QuadMeanDiameter defaults, for the ALL slot only, to the diameter implied
	// by basal area and trees per hectare.
	// +optional
	QuadMeanDiameter *ClassValues `json:"quadMeanDiameter,omitempty" yaml:"quadMeanDiameter,omitempty"`

	// Species lists the layer's species in processing order. Percents sum to 100.
	// +kubebuilder:validation:MinItems=1
	Species []SpeciesSpec `json:"species" yaml:"species" validate:"min=1,unique=Genus,dive"`
}

// SpeciesSpec is one genus of a layer.
type SpeciesSpec struct {
	// Genus is the species group code, e.g. "PL".
	// +kubebuilder:validation:MinLength=1
	Genus string `json:"genus" yaml:"genus" validate:"required"`

	// Percent is the species share of the layer basal area.
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=100
	Percent float64 `json:"percent" yaml:"percent" validate:"gte=0,lte=100"`

	// LoreyHeight is the species lorey height (m). Required in a primary layer.
	// +optional
	LoreyHeight float64 `json:"loreyHeight,omitempty" yaml:"loreyHeight,omitempty"`

	// VolumeGroup selects the species' mean volume coefficients.
	// +kubebuilder:validation:Minimum=1
	VolumeGroup int `json:"volumeGroup" yaml:"volumeGroup" validate:"gt=0"`

	// BaseArea optionally gives the species' own class proportions.
	// +optional
	BaseArea *ClassValues `json:"baseArea,omitempty" yaml:"baseArea,omitempty"`

	// QuadMeanDiameter optionally gives the species' own class diameters.
	// +optional
	QuadMeanDiameter *ClassValues `json:"quadMeanDiameter,omitempty" yaml:"quadMeanDiameter,omitempty"`
}

// StandStatus is the outcome of processing a polygon.
type StandStatus struct {
	// Reason summarizes the outcome; see the Reason constants.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Mode is the reconciliation mode applied to the primary layer.
	// +optional
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Message describes a failure.
	// +optional
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// +optional
	Primary *LayerStatus `json:"primary,omitempty" yaml:"primary,omitempty"`
	// +optional
	Veteran *LayerStatus `json:"veteran,omitempty" yaml:"veteran,omitempty"`
}

// LayerStatus holds the estimated utilization of a layer and its species.
type LayerStatus struct {
	PrimaryGenus     string          `json:"primaryGenus,omitempty" yaml:"primaryGenus,omitempty"`
	LoreyHeight      float64         `json:"loreyHeight" yaml:"loreyHeight"`
	BaseArea         ClassValues     `json:"baseArea" yaml:"baseArea"`
	TreesPerHectare  ClassValues     `json:"treesPerHectare" yaml:"treesPerHectare"`
	QuadMeanDiameter ClassValues     `json:"quadMeanDiameter" yaml:"quadMeanDiameter"`
	WholeStemVolume  ClassValues     `json:"wholeStemVolume" yaml:"wholeStemVolume"`
	Species          []SpeciesStatus `json:"species" yaml:"species"`
}

// SpeciesStatus holds the estimated utilization of one species.
type SpeciesStatus struct {
	Genus string `json:"genus" yaml:"genus"`
	// Percent is the allocated share of the layer basal area.
	Percent float64 `json:"percent" yaml:"percent"`
	// Fraction is the species weight in the layer lorey height.
	Fraction         float64     `json:"fraction" yaml:"fraction"`
	LoreyHeight      float64     `json:"loreyHeight" yaml:"loreyHeight"`
	BaseArea         ClassValues `json:"baseArea" yaml:"baseArea"`
	TreesPerHectare  ClassValues `json:"treesPerHectare" yaml:"treesPerHectare"`
	QuadMeanDiameter ClassValues `json:"quadMeanDiameter" yaml:"quadMeanDiameter"`
	WholeStemVolume  ClassValues `json:"wholeStemVolume" yaml:"wholeStemVolume"`
}

// Stand is one polygon record: its inventory and, once processed, its status.
type Stand struct {
	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`

	// Spec is the polygon inventory.
	Spec StandSpec `json:"spec" yaml:"spec"`

	// Status is filled in by processing.
	// +optional
	Status *StandStatus `json:"status,omitempty" yaml:"status,omitempty" validate:"-"`
}

// StandList is a document of polygon records.
type StandList struct {
	TypeMeta `json:",inline" yaml:",inline"`

	// Items is the list of polygons, processed in order.
	Items []Stand `json:"items" yaml:"items"`
}

// Status reasons
const (
	// ReasonProcessed indicates every layer of the polygon was processed.
	ReasonProcessed = "Processed"
	// ReasonInvalidInput indicates the record failed schema validation.
	ReasonInvalidInput = "InvalidInput"
	// ReasonReconcileFailed indicates the layer utilization could not be reconciled.
	ReasonReconcileFailed = "ReconcileFailed"
	// ReasonAllocationFailed indicates the species allocation failed or did not verify.
	ReasonAllocationFailed = "AllocationFailed"
	// ReasonVeteranFailed indicates the veteran layer could not be estimated.
	ReasonVeteranFailed = "VeteranFailed"
	// ReasonSkipped indicates the polygon was not processed because the batch stopped.
	ReasonSkipped = "Skipped"
)
