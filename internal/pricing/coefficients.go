package pricing

import "math"

// WeightedRange is one equal-width bucket of a domain and its share of the
// coefficient vector.
type WeightedRange struct {
	Range  Range   `json:"range"`
	Weight float64 `json:"weight"`
}

// ToRanges splits the domain into len(coefficients) contiguous equal-width
// buckets and weights each by coefficients[i] / sum(coefficients). A zero sum
// yields every bucket with weight 0; callers decide whether that is usable.
func ToRanges(coefficients []float64, domain Domain) []WeightedRange {
	n := len(coefficients)
	if n == 0 {
		return nil
	}

	var sum float64
	for _, c := range coefficients {
		sum += c
	}

	w := domain.Width() / float64(n)
	out := make([]WeightedRange, n)
	for i, c := range coefficients {
		lo := domain.Min + float64(i)*w
		hi := domain.Min + float64(i+1)*w
		if i == n-1 {
			hi = domain.Max
		}
		weight := 0.0
		if sum != 0 {
			weight = c / sum
		}
		out[i] = WeightedRange{Range: Range{Lo: lo, Hi: hi}, Weight: weight}
	}
	return out
}

// PositiveBuckets returns the buckets of ToRanges(coefficients, domain) whose
// coefficient pulls in the same direction as the sum, i.e. c/|sum| > 0. A
// zero sum yields no buckets.
func PositiveBuckets(coefficients []float64, domain Domain) []Range {
	var sum float64
	for _, c := range coefficients {
		sum += c
	}
	if sum == 0 {
		return nil
	}
	var out []Range
	for i, b := range ToRanges(coefficients, domain) {
		if coefficients[i]/math.Abs(sum) > 0 {
			out = append(out, b.Range)
		}
	}
	return out
}
