package simulation

import (
	"math"
	"sort"
)

// Histogram counts completed trials by volleys or by time units.
type Histogram map[int]int

// Total returns the number of recorded trials.
func (h Histogram) Total() int {
	total := 0
	for _, count := range h {
		total += count
	}
	return total
}

// Keys returns the recorded buckets in ascending order.
func (h Histogram) Keys() []int {
	keys := make([]int, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// Percentile returns the smallest bucket at or below which at least q of the trials fall.
// q is clamped to [0, 1]; an empty histogram yields 0.
func (h Histogram) Percentile(q float64) int {
	total := h.Total()
	if total == 0 {
		return 0
	}
	q = math.Min(math.Max(q, 0), 1)
	target := int(math.Ceil(q * float64(total)))
	if target < 1 {
		target = 1
	}
	seen := 0
	keys := h.Keys()
	for _, key := range keys {
		seen += h[key]
		if seen >= target {
			return key
		}
	}
	return keys[len(keys)-1]
}

// Summary condenses a histogram for reports.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	P50   int     `json:"p50"`
	P90   int     `json:"p90"`
	P99   int     `json:"p99"`
}

// Summarize computes the mean, range and common percentiles.
func (h Histogram) Summarize() Summary {
	keys := h.Keys()
	if len(keys) == 0 {
		return Summary{}
	}
	//1.- Weighted mean over the buckets.
	total, weighted := 0, 0.0
	for _, key := range keys {
		total += h[key]
		weighted += float64(key) * float64(h[key])
	}
	return Summary{
		Count: total,
		Mean:  weighted / float64(total),
		Min:   keys[0],
		Max:   keys[len(keys)-1],
		P50:   h.Percentile(0.5),
		P90:   h.Percentile(0.9),
		P99:   h.Percentile(0.99),
	}
}

// CurvePoint is one bucket of a kill chance curve.
type CurvePoint struct {
	Value      int     `json:"value"`
	Fraction   float64 `json:"fraction"`
	Cumulative float64 `json:"cumulative"`
}

// Curve returns the per bucket and cumulative kill chances in ascending bucket order.
func (h Histogram) Curve() []CurvePoint {
	total := h.Total()
	if total == 0 {
		return nil
	}
	keys := h.Keys()
	points := make([]CurvePoint, 0, len(keys))
	seen := 0
	for _, key := range keys {
		seen += h[key]
		points = append(points, CurvePoint{
			Value:      key,
			Fraction:   float64(h[key]) / float64(total),
			Cumulative: float64(seen) / float64(total),
		})
	}
	return points
}
