package allocation

import (
	"fmt"

	"github.com/standyield/standyield/pkg/core"
)

// FractionSource is an enumeration of the species weights used to average the
// species lorey heights into a layer lorey height.
type FractionSource int

// enumeration of FractionSource
const (
	// FractionByPercent weights species by their percent of basal area.
	FractionByPercent FractionSource = iota + 1
	// FractionByPercentPerHeight weights species by percent divided by lorey height.
	FractionByPercentPerHeight
	// FractionByBaseArea weights species by their basal area.
	FractionByBaseArea
)

var fractionSourceNames = map[FractionSource]string{
	FractionByPercent:          "percent",
	FractionByPercentPerHeight: "percent-per-height",
	FractionByBaseArea:         "basal-area",
}

func (s FractionSource) String() string {
	if name, ok := fractionSourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FractionSource(%d)", int(s))
}

// ParseFractionSource is a factory that returns the FractionSource with the given name.
func ParseFractionSource(name string) (FractionSource, error) {
	for s, n := range fractionSourceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unsupported fraction source: %q", name)
}

// weight returns the un-normalized weight of sp.
func (s FractionSource) weight(sp *core.Species) (float64, error) {
	switch s {
	case FractionByPercent:
		return sp.PercentGenus, nil
	case FractionByPercentPerHeight:
		hl := sp.LoreyHeight.Get(core.UtilAll)
		if hl <= 0 {
			return 0, core.NewProcessingError(core.ErrInvalidLayer, "species %s has no lorey height", sp.Genus)
		}
		return sp.PercentGenus / hl, nil
	case FractionByBaseArea:
		return sp.BaseArea.Get(core.UtilAll), nil
	default:
		return 0, fmt.Errorf("unsupported fraction source: %v", s)
	}
}

// Fractions returns the normalized weight of every species in layer order.
func (s FractionSource) Fractions(species []*core.Species) ([]float64, error) {
	out := make([]float64, len(species))
	var sum float64
	for i, sp := range species {
		w, err := s.weight(sp)
		if err != nil {
			return nil, err
		}
		out[i] = w
		sum += w
	}
	if sum <= 0 {
		return nil, core.NewProcessingError(core.ErrInvalidLayer, "species %s weights sum to %g", s, sum)
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}
