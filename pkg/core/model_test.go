package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{in: "Coastal", want: RegionCoastal},
		{in: "c", want: RegionCoastal},
		{in: " interior ", want: RegionInterior},
		{in: "I", want: RegionInterior},
		{in: "alpine", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCopyUtilizationNonVolume(t *testing.T) {
	layer := &Layer{}
	layer.BaseArea.Set(UtilAll, 20)
	layer.TreesPerHectare.Set(UtilAll, 500)
	layer.QuadMeanDiameter.Set(UtilAll, 22.57)
	layer.LoreyHeight.Set(UtilAll, 18)
	layer.WholeStemVolume.Set(UtilAll, 150)

	sp := &Species{Genus: "PL"}
	CopyUtilization(&sp.UtilizationHolder, &layer.UtilizationHolder, UtilAll, NonVolumeAttributes())

	assert.Equal(t, 20.0, sp.BaseArea.Get(UtilAll))
	assert.Equal(t, 500.0, sp.TreesPerHectare.Get(UtilAll))
	assert.Equal(t, 22.57, sp.QuadMeanDiameter.Get(UtilAll))
	assert.Equal(t, 18.0, sp.LoreyHeight.Get(UtilAll))
	assert.Equal(t, 0.0, sp.WholeStemVolume.Get(UtilAll), "volume is not a non-volume attribute")

	sp.BaseArea.Set(UtilAll, 1)
	assert.Equal(t, 20.0, layer.BaseArea.Get(UtilAll), "layer and species vectors must not alias")
}

func TestSumUtilization(t *testing.T) {
	a := &Species{Genus: "PL"}
	b := &Species{Genus: "SX"}
	a.BaseArea.Set(Over225, 3)
	b.BaseArea.Set(Over225, 4)
	a.TreesPerHectare.Set(UtilAll, 100)
	b.TreesPerHectare.Set(UtilAll, 50)
	a.QuadMeanDiameter.Set(UtilAll, 30)

	layer := &Layer{Species: []*Species{a, b}}
	SumUtilization(&layer.UtilizationHolder, layer.Holders(), SummableAttributes())

	assert.Equal(t, 7.0, layer.BaseArea.Get(Over225))
	assert.Equal(t, 150.0, layer.TreesPerHectare.Get(UtilAll))
	assert.Equal(t, 0.0, layer.QuadMeanDiameter.Get(UtilAll), "diameters are not summable")
	assert.Same(t, b, layer.SpeciesByGenus("SX"))
	assert.Nil(t, layer.SpeciesByGenus("FD"))
}

func TestProcessingError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("polygon 12: %w", WrapProcessingError(ErrSolverFailed, cause, "root finding failed"))

	assert.True(t, IsProcessingError(err))
	assert.ErrorIs(t, err, ErrSolverFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrBaseAreaMismatch)
	assert.Contains(t, err.Error(), "root finding failed")

	plain := NewProcessingError(ErrIterationsExceeded, "mode 2 iterations exceeded %d", 4)
	assert.Equal(t, "processing error: mode 2 iterations exceeded 4", plain.Error())
	assert.False(t, IsProcessingError(cause))
}

func TestLayerAggregateSpecies(t *testing.T) {
	a := &Species{Genus: "PL"}
	b := &Species{Genus: "SX"}
	a.BaseArea.Set(UtilAll, 10)
	a.TreesPerHectare.Set(UtilAll, 300)
	b.BaseArea.Set(UtilAll, 5)
	b.TreesPerHectare.Set(UtilAll, 200)
	layer := &Layer{Species: []*Species{a, b}}

	layer.AggregateSpecies()

	assert.Equal(t, 15.0, layer.BaseArea.Get(UtilAll))
	assert.Equal(t, 500.0, layer.TreesPerHectare.Get(UtilAll))
	assert.InDelta(t, QuadMeanDiameter(15, 500), layer.QuadMeanDiameter.Get(UtilAll), 1e-12)
	assert.Zero(t, layer.QuadMeanDiameter.Get(U75To125), "empty classes have no diameter")
}
