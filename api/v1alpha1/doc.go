// Package v1alpha1 contains the standyield v1alpha1 document schema: stand
// input records with their processing status, and standalone utilization
// vector sets for reconciliation.
package v1alpha1

const (
	// GroupVersion is the apiVersion of every v1alpha1 document.
	GroupVersion = "standyield.io/v1alpha1"

	KindStandList  = "StandList"
	KindVectorList = "UtilizationVectorList"
)

// TypeMeta identifies the schema of a document.
type TypeMeta struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
}

// ObjectMeta names a record within a document.
type ObjectMeta struct {
	// Name identifies the record, e.g. the polygon's map identifier.
	Name string `json:"name" yaml:"name" validate:"required"`
	// Labels are carried through to the output unchanged.
	// +optional
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}
