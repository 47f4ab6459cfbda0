package kpi

import "math"

// Rate returns num/den as a percentage clamped to [0, 100].
// A zero or negative denominator yields 0.
func Rate(num, den int) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	return clampPercent(float64(num) / float64(den) * 100)
}

// ROI returns the return on investment percentage of revenue over cost.
// It is floored at 0 but not capped, and is 0 when cost is not positive.
func ROI(revenue, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	r := (revenue - cost) / cost * 100
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// mean returns sum/n, or 0 for an empty sample.
func mean(sum float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
