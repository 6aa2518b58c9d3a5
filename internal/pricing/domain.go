// Package pricing discretizes belief distributions over a bounded outcome
// domain and projects how trades reshape them.
//
// Every function in this package is pure: inputs are never mutated and each
// call returns freshly allocated data, so callers may share densities across
// goroutines without locking.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter marks inputs the pricing math refuses to work with.
var ErrInvalidParameter = errors.New("pricing: invalid parameter")

// Domain is the closed outcome interval [Min, Max].
type Domain struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Validate checks Min < Max and that both bounds are finite.
func (d Domain) Validate() error {
	if !isFinite(d.Min) || !isFinite(d.Max) {
		return fmt.Errorf("%w: domain bounds must be finite", ErrInvalidParameter)
	}
	if d.Min >= d.Max {
		return fmt.Errorf("%w: domain min %g must be below max %g", ErrInvalidParameter, d.Min, d.Max)
	}
	return nil
}

func (d Domain) Width() float64 { return d.Max - d.Min }

// Full returns the range spanning the whole domain.
func (d Domain) Full() Range { return Range{Lo: d.Min, Hi: d.Max} }

// PdfPoint is one density sample. Y is a density, not a probability.
type PdfPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Density is a discretized pdf with strictly ascending X.
type Density []PdfPoint

// Clone returns an independent copy.
func (d Density) Clone() Density {
	if d == nil {
		return nil
	}
	out := make(Density, len(d))
	copy(out, d)
	return out
}

// Range is a closed sub-interval [Lo, Hi] of a domain.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether x lies in [Lo, Hi].
func (r Range) Contains(x float64) bool { return x >= r.Lo && x <= r.Hi }

// Clamp intersects r with the domain. The second result is false when the
// clamped range is degenerate (Hi <= Lo) or not finite; such ranges are
// dropped rather than collapsed to zero width.
func (r Range) Clamp(d Domain) (Range, bool) {
	if math.IsNaN(r.Lo) || math.IsNaN(r.Hi) {
		return Range{}, false
	}
	lo := math.Max(r.Lo, d.Min)
	hi := math.Min(r.Hi, d.Max)
	if hi <= lo {
		return Range{}, false
	}
	return Range{Lo: lo, Hi: hi}, true
}

// ClampRanges clamps every range into d and drops the degenerate ones.
func ClampRanges(ranges []Range, d Domain) []Range {
	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if c, ok := r.Clamp(d); ok {
			out = append(out, c)
		}
	}
	return out
}

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide accepts "buy" or "sell" (case-sensitive, as sent by clients).
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("%w: unsupported side %q", ErrInvalidParameter, s)
	}
}

// Stats are the summary moments carried by a market snapshot.
type Stats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Skew     float64 `json:"skew"`
	Kurtosis float64 `json:"kurtosis"`
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
