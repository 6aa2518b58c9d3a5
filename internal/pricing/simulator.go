package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places cost and fee are rounded to.
const MoneyScale int32 = 8

// ImpliedShift is the change of the first two moments relative to the
// market's published stats.
type ImpliedShift struct {
	DeltaMean     float64 `json:"deltaMean"`
	DeltaVariance float64 `json:"deltaVariance"`
}

// TradeResult is the projected outcome of a trade. Nothing in it is persisted
// by this package.
type TradeResult struct {
	Side           Side         `json:"side"`
	NotionalUSD    float64      `json:"notionalUSD"`
	DeltaMass      float64      `json:"deltaMass"`
	SlippageFactor float64      `json:"slippageFactor"`
	RawCostUSD     float64      `json:"costRawUSD"`
	CostUSD        float64      `json:"costUSD"`
	FeeUSD         float64      `json:"feeUSD"`
	NewDensity     Density      `json:"newDensity"`
	NewStats       Stats        `json:"newStats"`
	ImpliedShift   ImpliedShift `json:"impliedShift"`
}

// Simulator projects trades onto a density. It holds only immutable
// parameters and is safe for concurrent use.
type Simulator struct {
	params Params
}

func NewSimulator(params Params) *Simulator {
	return &Simulator{params: params}
}

func (s *Simulator) Params() Params { return s.params }

// Project computes the signed mass moved by a trade of notionalUSD, its
// slippage-adjusted cost and fee, and the ghost density obtained by moving
// that mass into (buy) or out of (sell) the union of ranges. An empty range
// list means the whole domain. priorStats are the market's published stats;
// skew is nudged linearly by deltaMass and kurtosis carried unchanged.
func (s *Simulator) Project(density Density, ranges []Range, domain Domain, side Side, notionalUSD float64, priorStats Stats) (TradeResult, error) {
	if err := domain.Validate(); err != nil {
		return TradeResult{}, err
	}
	if side != Buy && side != Sell {
		return TradeResult{}, fmt.Errorf("%w: unsupported side %q", ErrInvalidParameter, side)
	}
	if !isFinite(notionalUSD) || notionalUSD < 0 {
		return TradeResult{}, fmt.Errorf("%w: notional must be a non-negative number, got %g", ErrInvalidParameter, notionalUSD)
	}

	active := ClampRanges(ranges, domain)
	if len(active) == 0 {
		active = []Range{domain.Full()}
	}

	baseDeltaMass := notionalUSD / s.params.MassScaleUSD
	deltaMass := baseDeltaMass
	if side == Sell {
		deltaMass = -baseDeltaMass
	}
	slippage := 1 + math.Abs(deltaMass)*s.params.SlippageCoefficient

	raw, fee, cost := s.price(side, notionalUSD, slippage)

	next := redistribute(density, active, side, math.Abs(deltaMass))
	m := ComputeMoments(next)
	newStats := Stats{
		Mean:     m.Mean,
		Variance: m.Variance,
		Skew:     priorStats.Skew + deltaMass*s.params.SkewNudge,
		Kurtosis: priorStats.Kurtosis,
	}

	return TradeResult{
		Side:           side,
		NotionalUSD:    notionalUSD,
		DeltaMass:      deltaMass,
		SlippageFactor: slippage,
		RawCostUSD:     raw,
		CostUSD:        cost,
		FeeUSD:         fee,
		NewDensity:     next,
		NewStats:       newStats,
		ImpliedShift: ImpliedShift{
			DeltaMean:     newStats.Mean - priorStats.Mean,
			DeltaVariance: newStats.Variance - priorStats.Variance,
		},
	}, nil
}

// price returns the raw cost, fee and total cost. Buys pay notional times
// slippage, sells receive notional divided by it.
func (s *Simulator) price(side Side, notionalUSD, slippage float64) (raw, fee, cost float64) {
	notional := decimal.NewFromFloat(notionalUSD)
	factor := decimal.NewFromFloat(slippage)

	var rawDec decimal.Decimal
	if side == Buy {
		rawDec = notional.Mul(factor)
	} else {
		rawDec = notional.Div(factor)
	}
	feeDec := rawDec.Mul(decimal.NewFromFloat(s.params.FeeRate))
	costDec := rawDec.Add(feeDec)

	return rawDec.Round(MoneyScale).InexactFloat64(),
		feeDec.Round(MoneyScale).InexactFloat64(),
		costDec.Round(MoneyScale).InexactFloat64()
}

// redistribute moves mass between the points inside the ranges and the rest.
// A range narrower than the grid step claims the point nearest its midpoint.
// The gaining side receives a uniform bump whose trapezoid integral is mass;
// the losing side shrinks in proportion to its own density, never below zero.
// Both adjustments use the same trapezoid functional, so the total integral
// is preserved whenever the losing side holds at least mass.
func redistribute(d Density, ranges []Range, side Side, mass float64) Density {
	out := d.Clone()
	if mass == 0 || len(d) < 2 {
		return out
	}

	inside := markInside(d, ranges)
	gains := make([]bool, len(d))
	for i := range d {
		gains[i] = inside[i] == (side == Buy)
	}

	gainWidth := trapezoid(d, func(i int) float64 {
		if gains[i] {
			return 1
		}
		return 0
	})
	loseMass := trapezoid(d, func(i int) float64 {
		if gains[i] {
			return 0
		}
		return d[i].Y
	})

	if gainWidth > 0 {
		bump := mass / gainWidth
		for i := range out {
			if gains[i] {
				out[i].Y += bump
			}
		}
	}
	if loseMass > 0 {
		scale := math.Max(0, 1-mass/loseMass)
		for i := range out {
			if !gains[i] {
				out[i].Y *= scale
			}
		}
	}
	return out
}

// markInside flags the points covered by the union of ranges. A range that
// contains no grid point marks the point nearest its midpoint instead.
func markInside(d Density, ranges []Range) []bool {
	inside := make([]bool, len(d))
	for _, r := range ranges {
		hit := false
		for i, p := range d {
			if r.Contains(p.X) {
				inside[i] = true
				hit = true
			}
		}
		if hit || len(d) == 0 {
			continue
		}
		mid := (r.Lo + r.Hi) / 2
		nearest := 0
		for i, p := range d {
			if math.Abs(p.X-mid) < math.Abs(d[nearest].X-mid) {
				nearest = i
			}
		}
		inside[nearest] = true
	}
	return inside
}
