package core

import (
	"errors"
	"fmt"
)

// Sentinel kinds of stand-scoped processing failures. A ProcessingError wraps exactly one of them.
var (
	// ErrBaseAreaMismatch: class basal areas do not sum to the ALL basal area.
	ErrBaseAreaMismatch = errors.New("class basal areas do not sum to expected total")
	// ErrQuadMeanDiameterTooSmall: the stand diameter is under the 7.5 cm floor.
	ErrQuadMeanDiameterTooSmall = errors.New("quadratic mean diameter is less than 7.5 cm")
	// ErrIterationsExceeded: an iterative reconciliation ran out of its budget.
	ErrIterationsExceeded = errors.New("iterations exceeded")
	// ErrBaseAreaNotReconciled: reconciled class basal areas still disagree with the total.
	ErrBaseAreaNotReconciled = errors.New("failed to reconcile basal area")
	// ErrTreesPerHectareNotReconciled: reconciled class densities still disagree with the total.
	ErrTreesPerHectareNotReconciled = errors.New("failed to reconcile trees per hectare")
	// ErrNoUtilizationClass: no class can hold the stand diameter.
	ErrNoUtilizationClass = errors.New("no utilization class holds the stand diameter")
	// ErrAllocationInvalid: the species allocation produced out-of-range percentages.
	ErrAllocationInvalid = errors.New("species allocation out of range")
	// ErrAllocationMismatch: the species allocation does not reproduce the layer totals.
	ErrAllocationMismatch = errors.New("species allocation does not match layer totals")
	// ErrSolverFailed: the allocation optimizer did not converge.
	ErrSolverFailed = errors.New("allocation solver failed")
	// ErrInvalidLayer: the layer is missing data the engines need.
	ErrInvalidLayer = errors.New("invalid layer")
)

// ProcessingError is a failure confined to the stand being processed.
// Callers decide whether to skip the stand or halt the batch.
type ProcessingError struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Message describes the specific condition.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// NewProcessingError builds a ProcessingError of the given kind.
func NewProcessingError(kind error, format string, args ...any) *ProcessingError {
	return &ProcessingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapProcessingError builds a ProcessingError of the given kind caused by err.
func WrapProcessingError(kind, err error, format string, args ...any) *ProcessingError {
	return &ProcessingError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

func (e *ProcessingError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("processing error: %s: %v", msg, e.Cause)
	}
	return "processing error: " + msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ProcessingError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// IsProcessingError reports whether err is or wraps a ProcessingError.
func IsProcessingError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}
