package v1alpha1

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/standyield/standyield/pkg/core"
)

// PercentSumTolerance is how far the species percents of a layer may stray from 100.
const PercentSumTolerance = 0.01

// ErrInvalid is returned for documents and records that fail validation.
var ErrInvalid = errors.New("invalid document")

// standValidate validates stand records. Field paths in its errors use the
// yaml names, so they match the document the user wrote.
var standValidate *validator.Validate

func init() {
	standValidate = validator.New(validator.WithRequiredStructEnabled())
	standValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	_ = standValidate.RegisterValidation("region", func(fl validator.FieldLevel) bool {
		_, err := core.ParseRegion(fl.Field().String())
		return err == nil
	})
	_ = standValidate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		x := fl.Field().Float()
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	})
	standValidate.RegisterStructValidation(validateStandSpec, StandSpec{})
	standValidate.RegisterStructValidation(validateLayerSpec, LayerSpec{})
}

func checkTypeMeta(tm TypeMeta, kind string) error {
	if tm.APIVersion != GroupVersion {
		return fmt.Errorf("%w: apiVersion %q, expected %q", ErrInvalid, tm.APIVersion, GroupVersion)
	}
	if tm.Kind != kind {
		return fmt.Errorf("%w: kind %q, expected %q", ErrInvalid, tm.Kind, kind)
	}
	return nil
}

// Validate checks the document header and record names. Records are validated
// individually with Stand.Validate so one bad polygon does not reject the batch.
func (l *StandList) Validate() error {
	if err := checkTypeMeta(l.TypeMeta, KindStandList); err != nil {
		return err
	}
	return checkNames(len(l.Items), func(i int) string { return l.Items[i].Metadata.Name })
}

// Validate checks the document header and record names.
func (l *UtilizationVectorList) Validate() error {
	if err := checkTypeMeta(l.TypeMeta, KindVectorList); err != nil {
		return err
	}
	return checkNames(len(l.Items), func(i int) string { return l.Items[i].Metadata.Name })
}

func checkNames(n int, name func(int) string) error {
	seen := make(map[string]int, n)
	var errs []error
	for i := range n {
		switch prev, dup := seen[name(i)]; {
		case name(i) == "":
			errs = append(errs, fmt.Errorf("items[%d].metadata.name: required", i))
		case dup:
			errs = append(errs, fmt.Errorf("items[%d].metadata.name: %q duplicates items[%d]", i, name(i), prev))
		default:
			seen[name(i)] = i
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Validate checks one polygon record.
func (s *Stand) Validate() error {
	err := standValidate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fieldError(fe))
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// validateStandSpec checks the rules that depend on which layer a LayerSpec is.
func validateStandSpec(sl validator.StructLevel) {
	spec := sl.Current().Interface().(StandSpec)
	if spec.Primary == nil && spec.Veteran == nil {
		sl.ReportError(spec.Primary, "primary", "Primary", "layers", "")
	}
	if l := spec.Primary; l != nil {
		for i, sp := range l.Species {
			if !(sp.LoreyHeight > 0) {
				sl.ReportError(sp.LoreyHeight, fmt.Sprintf("primary.species[%d].loreyHeight", i), "LoreyHeight", "primaryheight", "")
			}
		}
		if l.BaseArea == nil {
			sl.ReportError(l.BaseArea, "primary.baseArea", "BaseArea", "required", "")
		}
		if l.TreesPerHectare == nil {
			sl.ReportError(l.TreesPerHectare, "primary.treesPerHectare", "TreesPerHectare", "required", "")
		}
	}
	if l := spec.Veteran; l != nil && !(l.Height > 0) {
		sl.ReportError(l.Height, "veteran.height", "Height", "veteranheight", "")
	}
}

// validateLayerSpec checks the species percent sum and the primary genus.
func validateLayerSpec(sl validator.StructLevel) {
	l := sl.Current().Interface().(LayerSpec)
	if len(l.Species) > 0 {
		var sum float64
		for _, sp := range l.Species {
			sum += sp.Percent
		}
		if !(math.Abs(sum-100) <= PercentSumTolerance) {
			sl.ReportError(l.Species, "species", "Species", "percentsum", fmt.Sprintf("%g", sum))
		}
	}
	if l.PrimaryGenus != "" && !hasGenus(l.Species, l.PrimaryGenus) {
		sl.ReportError(l.PrimaryGenus, "primaryGenus", "PrimaryGenus", "genus", "")
	}
}

func hasGenus(species []SpeciesSpec, genus string) bool {
	for _, sp := range species {
		if sp.Genus == genus {
			return true
		}
	}
	return false
}

// fieldError renders fe as "<path>: <reason>", the path relative to the record.
func fieldError(fe validator.FieldError) error {
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "required"
	case "region":
		reason = fmt.Sprintf("unknown region %q", fe.Value())
	case "layers":
		reason = "at least one of primary or veteran is required"
	case "min":
		reason = "at least one species is required"
	case "unique":
		reason = "a genus appears more than once"
	case "percentsum":
		reason = fmt.Sprintf("percents sum to %s, expected 100", fe.Param())
	case "genus":
		reason = fmt.Sprintf("%q is not a species of the layer", fe.Value())
	case "primaryheight":
		reason = "must be positive in a primary layer"
	case "veteranheight":
		reason = "must be positive in a veteran layer"
	case "gt":
		reason = fmt.Sprintf("%v must be greater than %s", fe.Value(), fe.Param())
	case "gte":
		reason = fmt.Sprintf("%v must be at least %s", fe.Value(), fe.Param())
	case "lte":
		reason = fmt.Sprintf("%v must be at most %s", fe.Value(), fe.Param())
	case "finite":
		reason = fmt.Sprintf("%v must be a finite number", fe.Value())
	default:
		reason = fmt.Sprintf("failed %q", fe.Tag())
	}
	return fmt.Errorf("%s: %s", path, reason)
}
