package pricing

import "fmt"

// Params holds the heuristic constants of the pricing model.
type Params struct {
	// Resolution is the number of points a prior is discretized into.
	Resolution int
	// MassScaleUSD converts notional into mass: deltaMass = notional / MassScaleUSD.
	MassScaleUSD float64
	// SlippageCoefficient scales |deltaMass| into the slippage factor.
	SlippageCoefficient float64
	// FeeRate is charged on the slippage-adjusted cost.
	FeeRate float64
	// SkewNudge is added to skew per unit of signed deltaMass.
	SkewNudge float64

	DepthTolerance float64
	ThinRatio      float64
	ThickRatio     float64

	// DefaultDomain is used for newly created markets.
	DefaultDomain Domain
}

func DefaultParams() Params {
	return Params{
		Resolution:          200,
		MassScaleUSD:        10000,
		SlippageCoefficient: 0.5,
		FeeRate:             0.003,
		SkewNudge:           0.1,
		DepthTolerance:      0.5,
		ThinRatio:           0.5,
		ThickRatio:          1.5,
		DefaultDomain:       Domain{Min: 0, Max: 100},
	}
}

// Validate checks the constants the simulator divides by or compares against.
func (p Params) Validate() error {
	if p.Resolution < 2 {
		return fmt.Errorf("resolution must be >= 2, got %d", p.Resolution)
	}
	if p.MassScaleUSD <= 0 {
		return fmt.Errorf("mass_scale_usd must be > 0, got %f", p.MassScaleUSD)
	}
	if p.SlippageCoefficient < 0 {
		return fmt.Errorf("slippage_coefficient must be >= 0, got %f", p.SlippageCoefficient)
	}
	if p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("fee_rate must be within [0,1), got %f", p.FeeRate)
	}
	if p.DepthTolerance < 0 {
		return fmt.Errorf("depth_tolerance must be >= 0, got %f", p.DepthTolerance)
	}
	if p.ThinRatio > p.ThickRatio {
		return fmt.Errorf("thin_ratio (%f) cannot exceed thick_ratio (%f)", p.ThinRatio, p.ThickRatio)
	}
	if err := p.DefaultDomain.Validate(); err != nil {
		return fmt.Errorf("default_domain: %w", err)
	}
	return nil
}
