package app

import (
	"math"
	"slices"
)

const (
	lowerPercentile = 0.05
	upperPercentile = 0.95

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20
)

// ValueBounds is the range a gradient is stretched over
type ValueBounds struct {
	Min float64 // 5th percentile, or the minimum for short series
	Max float64 // 95th percentile, or the maximum for short series
}

// Span returns Max - Min, never zero.
func (b ValueBounds) Span() float64 {
	if s := b.Max - b.Min; s > 0 {
		return s
	}
	return 1
}

// Normalize maps v into [0, 1], clamping outliers.
func (b ValueBounds) Normalize(v float64) float64 {
	return math.Max(0, math.Min(1, (v-b.Min)/b.Span()))
}

// PercentileBounds returns the 5th and 95th percentile of values, so a few
// outliers such as a pit lane spike do not flatten the gradient. NaN values
// are ignored.
func PercentileBounds(values []float64) ValueBounds {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return ValueBounds{Min: 0, Max: 1}
	}
	slices.Sort(sorted)

	if len(sorted) < minimumSampleCount {
		return ValueBounds{Min: sorted[0], Max: sorted[len(sorted)-1]}
	}

	return ValueBounds{
		Min: percentile(sorted, lowerPercentile),
		Max: percentile(sorted, upperPercentile),
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
