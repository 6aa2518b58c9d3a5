package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateUniformIsFlat(t *testing.T) {
	d, err := Evaluate(Uniform{}, Domain{Min: 0, Max: 100}, 5)
	require.NoError(t, err)
	require.Len(t, d, 5)

	wantX := []float64{0, 25, 50, 75, 100}
	for i, p := range d {
		assert.InDelta(t, wantX[i], p.X, 1e-12)
		assert.InDelta(t, 0.01, p.Y, 1e-12)
	}
}

func TestEvaluateUniformArbitraryDomain(t *testing.T) {
	d, err := Evaluate(Uniform{}, Domain{Min: -3, Max: 5}, 0)
	require.NoError(t, err)
	require.Len(t, d, 200)
	assert.Equal(t, -3.0, d[0].X)
	assert.Equal(t, 5.0, d[len(d)-1].X)
	for _, p := range d {
		assert.InDelta(t, 0.125, p.Y, 1e-12)
	}
}

func TestEvaluateNormalIntegratesNearOne(t *testing.T) {
	d, err := Evaluate(Normal{Mean: 50, Variance: 100}, Domain{Min: 0, Max: 100}, 200)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, TotalMass(d), 1e-3)
	assert.InDelta(t, 50, FindMode(d), 0.5)

	peak := 1 / math.Sqrt(2*math.Pi*100)
	for _, p := range d {
		assert.LessOrEqual(t, p.Y, peak+1e-12)
		assert.GreaterOrEqual(t, p.Y, 0.0)
	}
}

func TestEvaluateNormalRejectsNonPositiveVariance(t *testing.T) {
	for _, v := range []float64{0, -1} {
		_, err := Evaluate(Normal{Mean: 0, Variance: v}, Domain{Min: 0, Max: 1}, 10)
		require.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestEvaluateLogNormalZeroOnNonPositiveSupport(t *testing.T) {
	d, err := Evaluate(LogNormal{Mu: 0, Sigma: 1}, Domain{Min: -10, Max: 10}, 21)
	require.NoError(t, err)

	for _, p := range d {
		if p.X <= 0 {
			assert.Zero(t, p.Y, "x=%v", p.X)
		}
	}
	// x = 1 sits at index 11; ln(1) = mu so the exponent vanishes.
	assert.InDelta(t, 1.0, d[11].X, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), d[11].Y, 1e-12)
}

func TestEvaluateBetaScaledToDomain(t *testing.T) {
	d, err := Evaluate(Beta{Alpha: 2, Beta: 2}, Domain{Min: 0, Max: 100}, 201)
	require.NoError(t, err)

	// Beta(2,2) peaks at 1.5 on [0,1]; stretched over a width of 100.
	assert.InDelta(t, 50, d[100].X, 1e-9)
	assert.InDelta(t, 0.015, d[100].Y, 1e-9)
	assert.Zero(t, d[0].Y)
	assert.Zero(t, d[200].Y)
	assert.InDelta(t, 1.0, TotalMass(d), 1e-3)
}

func TestEvaluateBetaMatchesClosedFormAtEveryPoint(t *testing.T) {
	dom := Domain{Min: 10, Max: 30}
	d, err := Evaluate(Beta{Alpha: 3, Beta: 5}, dom, 41)
	require.NoError(t, err)

	// 1/B(3,5) = 7!/(2!4!) = 105.
	for _, p := range d {
		u := (p.X - dom.Min) / dom.Width()
		want := 105 * u * u * math.Pow(1-u, 4) / dom.Width()
		assert.InDelta(t, want, p.Y, 1e-12, "x=%g", p.X)
	}
}

func TestEvaluateBetaEndpointSingularityIsZero(t *testing.T) {
	d, err := Evaluate(Beta{Alpha: 0.5, Beta: 0.5}, Domain{Min: 0, Max: 1}, 11)
	require.NoError(t, err)
	assert.Zero(t, d[0].Y)
	assert.Zero(t, d[10].Y)
	for _, p := range d {
		assert.False(t, math.IsInf(p.Y, 0) || math.IsNaN(p.Y))
	}
}

func TestEvaluateBetaRejectsNonPositiveShape(t *testing.T) {
	_, err := Evaluate(Beta{Alpha: 0, Beta: 2}, Domain{Min: 0, Max: 1}, 10)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Evaluate(Beta{Alpha: 2, Beta: -1}, Domain{Min: 0, Max: 1}, 10)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestEvaluateRejectsBadDomainAndNilPrior(t *testing.T) {
	_, err := Evaluate(Uniform{}, Domain{Min: 5, Max: 5}, 10)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Evaluate(nil, Domain{Min: 0, Max: 1}, 10)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPriorJSONRoundTripAndUnknownType(t *testing.T) {
	priors := []Prior{
		Normal{Mean: 1, Variance: 2},
		LogNormal{Mu: 0.5, Sigma: 0.2},
		Beta{Alpha: 3, Beta: 4},
		Uniform{},
	}
	for _, p := range priors {
		got, err := EncodePrior(p).Prior()
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	_, err := PriorJSON{Type: "cauchy"}.Prior()
	require.ErrorIs(t, err, ErrInvalidParameter)
}
