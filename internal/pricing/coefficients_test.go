package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRangesSplitsDomainEvenly(t *testing.T) {
	got := ToRanges([]float64{1, 1, 2}, Domain{Min: 0, Max: 90})
	require.Len(t, got, 3)

	assert.Equal(t, Range{Lo: 0, Hi: 30}, got[0].Range)
	assert.Equal(t, Range{Lo: 30, Hi: 60}, got[1].Range)
	assert.Equal(t, Range{Lo: 60, Hi: 90}, got[2].Range)
	assert.InDelta(t, 0.25, got[0].Weight, 1e-12)
	assert.InDelta(t, 0.25, got[1].Weight, 1e-12)
	assert.InDelta(t, 0.5, got[2].Weight, 1e-12)
}

func TestToRangesWeightsSumToOne(t *testing.T) {
	cases := [][]float64{
		{1},
		{0.2, 0.3, 0.5},
		{10, 20, 30, 40},
		{3, -1},
		{-2, -6},
	}
	for _, coeffs := range cases {
		var sum float64
		for _, wr := range ToRanges(coeffs, Domain{Min: 0, Max: 100}) {
			sum += wr.Weight
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "coefficients %v", coeffs)
	}
}

func TestToRangesZeroSumGivesZeroWeights(t *testing.T) {
	got := ToRanges([]float64{1, -1, 0}, Domain{Min: 0, Max: 100})
	require.Len(t, got, 3)
	for _, wr := range got {
		assert.Zero(t, wr.Weight)
	}
	assert.Empty(t, PositiveBuckets([]float64{1, -1, 0}, Domain{Min: 0, Max: 100}))
}

func TestToRangesEmpty(t *testing.T) {
	assert.Nil(t, ToRanges(nil, Domain{Min: 0, Max: 1}))
}

func TestPositiveBucketsKeepsOnlyPositiveWeights(t *testing.T) {
	got := PositiveBuckets([]float64{0, 2, 0, 1}, Domain{Min: 0, Max: 100})
	assert.Equal(t, []Range{{Lo: 25, Hi: 50}, {Lo: 75, Hi: 100}}, got)
}

func TestPositiveBucketsNegativeSumKeepsPositiveCoefficients(t *testing.T) {
	d := Domain{Min: 0, Max: 100}
	coeffs := []float64{-3, 1}

	// Normalized weights flip sign when the sum is negative.
	weights := ToRanges(coeffs, d)
	assert.InDelta(t, 1.5, weights[0].Weight, 1e-12)
	assert.InDelta(t, -0.5, weights[1].Weight, 1e-12)

	assert.Equal(t, []Range{{Lo: 50, Hi: 100}}, PositiveBuckets(coeffs, d))
	assert.Equal(t, []Range{{Lo: 0, Hi: 25}, {Lo: 75, Hi: 100}}, PositiveBuckets([]float64{2, -5, -4, 1}, d))
}
