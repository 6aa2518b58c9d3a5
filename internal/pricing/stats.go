package pricing

// Moments are the mean and variance of a discretized density.
type Moments struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// ComputeMoments weights each segment midpoint by its trapezoid area. A
// density with no mass reports zero mean and variance.
func ComputeMoments(d Density) Moments {
	var total, first float64
	for i := 0; i+1 < len(d); i++ {
		w := segmentArea(d[i], d[i+1])
		total += w
		first += 0.5 * (d[i].X + d[i+1].X) * w
	}
	if total == 0 {
		return Moments{}
	}
	mean := first / total

	var second float64
	for i := 0; i+1 < len(d); i++ {
		dx := 0.5*(d[i].X+d[i+1].X) - mean
		second += dx * dx * segmentArea(d[i], d[i+1])
	}
	return Moments{Mean: mean, Variance: second / total}
}

func segmentArea(a, b PdfPoint) float64 {
	return (b.X - a.X) * (a.Y + b.Y) / 2
}

// trapezoid integrates f(i) over the density's grid with the trapezoid rule.
func trapezoid(d Density, f func(i int) float64) float64 {
	var sum float64
	for i := 0; i+1 < len(d); i++ {
		sum += (d[i+1].X - d[i].X) * (f(i) + f(i+1)) / 2
	}
	return sum
}
