package pricing

import "math"

// Depth classifies how much density sits at a point relative to the curve's
// average.
type Depth string

const (
	DepthThin     Depth = "thin"
	DepthModerate Depth = "moderate"
	DepthThick    Depth = "thick"
)

// CumulativeProbability integrates the points whose X lies in r with the
// trapezoid rule. Fewer than two such points give 0.
func CumulativeProbability(d Density, r Range) float64 {
	var sum float64
	var prev *PdfPoint
	for i := range d {
		p := d[i]
		if !r.Contains(p.X) {
			continue
		}
		if prev != nil {
			sum += segmentArea(*prev, p)
		}
		prev = &d[i]
	}
	return sum
}

// TotalMass is the trapezoid integral of the whole density.
func TotalMass(d Density) float64 {
	return trapezoid(d, func(i int) float64 { return d[i].Y })
}

// FindMode returns the X of the highest point, the first one on ties, or 0
// for an empty density.
func FindMode(d Density) float64 {
	if len(d) == 0 {
		return 0
	}
	best := 0
	for i := 1; i < len(d); i++ {
		if d[i].Y > d[best].Y {
			best = i
		}
	}
	return d[best].X
}

// Quantile returns the X at which the running trapezoid integral first
// reaches p of the total mass, interpolating within the crossing segment.
func Quantile(d Density, p float64) float64 {
	if len(d) == 0 {
		return 0
	}
	total := TotalMass(d)
	if total <= 0 || p <= 0 {
		return d[0].X
	}
	target := math.Min(p, 1) * total
	var acc float64
	for i := 0; i+1 < len(d); i++ {
		area := segmentArea(d[i], d[i+1])
		if acc+area >= target && area > 0 {
			frac := (target - acc) / area
			return d[i].X + frac*(d[i+1].X-d[i].X)
		}
		acc += area
	}
	return d[len(d)-1].X
}

// LiquidityDepth classifies the depth at x using the default parameters.
func LiquidityDepth(d Density, x float64) Depth {
	return DefaultParams().LiquidityDepth(d, x)
}

// LiquidityDepth finds the point nearest x within DepthTolerance and compares
// its Y with the mean Y of the density. No point in tolerance is moderate.
func (p Params) LiquidityDepth(d Density, x float64) Depth {
	nearest := -1
	bestDist := math.Inf(1)
	var sumY float64
	for i, pt := range d {
		sumY += pt.Y
		dist := math.Abs(pt.X - x)
		if dist <= p.DepthTolerance && dist < bestDist {
			nearest = i
			bestDist = dist
		}
	}
	if nearest < 0 {
		return DepthModerate
	}
	avg := sumY / float64(len(d))
	if avg == 0 {
		return DepthModerate
	}
	ratio := d[nearest].Y / avg
	switch {
	case ratio < p.ThinRatio:
		return DepthThin
	case ratio > p.ThickRatio:
		return DepthThick
	default:
		return DepthModerate
	}
}
