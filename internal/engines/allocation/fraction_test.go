package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standyield/standyield/pkg/core"
)

func newSpecies(genus string, percent, hl, ba float64) *core.Species {
	sp := &core.Species{Genus: genus, PercentGenus: percent}
	sp.LoreyHeight.Set(core.UtilAll, hl)
	sp.BaseArea.Set(core.UtilAll, ba)
	return sp
}

func TestFractionSource_Fractions(t *testing.T) {
	tests := []struct {
		name    string
		source  FractionSource
		species []*core.Species
		want    []float64
		wantErr error
	}{
		{
			name:    "percent",
			source:  FractionByPercent,
			species: []*core.Species{newSpecies("PL", 60, 20, 10), newSpecies("FD", 40, 10, 30)},
			want:    []float64{0.6, 0.4},
		},
		{
			name:    "percent per height",
			source:  FractionByPercentPerHeight,
			species: []*core.Species{newSpecies("PL", 60, 20, 10), newSpecies("FD", 40, 10, 30)},
			want:    []float64{3.0 / 7, 4.0 / 7},
		},
		{
			name:    "basal area",
			source:  FractionByBaseArea,
			species: []*core.Species{newSpecies("PL", 60, 20, 10), newSpecies("FD", 40, 10, 30)},
			want:    []float64{0.25, 0.75},
		},
		{
			name:    "missing height",
			source:  FractionByPercentPerHeight,
			species: []*core.Species{newSpecies("PL", 60, 0, 10), newSpecies("FD", 40, 10, 30)},
			wantErr: core.ErrInvalidLayer,
		},
		{
			name:    "no weight",
			source:  FractionByBaseArea,
			species: []*core.Species{newSpecies("PL", 60, 20, 0), newSpecies("FD", 40, 10, 0)},
			wantErr: core.ErrInvalidLayer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.source.Fractions(tt.species)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseFractionSource(t *testing.T) {
	tests := []struct {
		name    string
		want    FractionSource
		wantErr bool
	}{
		{name: "percent", want: FractionByPercent},
		{name: "percent-per-height", want: FractionByPercentPerHeight},
		{name: "basal-area", want: FractionByBaseArea},
		{name: "crown-closure", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFractionSource(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}
	assert.Equal(t, "FractionSource(7)", FractionSource(7).String())
}
