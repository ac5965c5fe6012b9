package v1alpha1

// UtilizationVectors is one basal area / density / diameter breakdown to reconcile.
type UtilizationVectors struct {
	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`

	BaseArea         ClassValues `json:"baseArea" yaml:"baseArea"`
	TreesPerHectare  ClassValues `json:"treesPerHectare" yaml:"treesPerHectare"`
	QuadMeanDiameter ClassValues `json:"quadMeanDiameter" yaml:"quadMeanDiameter"`

	// Status is filled in by reconciliation.
	// +optional
	Status *VectorsStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// VectorsStatus is the outcome of reconciling one breakdown. The reconciled
// values replace the input vectors.
type VectorsStatus struct {
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Iterations counts the uniform scaling passes.
	Iterations int    `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

// UtilizationVectorList is a document of breakdowns to reconcile.
type UtilizationVectorList struct {
	TypeMeta `json:",inline" yaml:",inline"`

	Items []UtilizationVectors `json:"items" yaml:"items"`
}
