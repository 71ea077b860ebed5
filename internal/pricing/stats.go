package pricing

import (
	"math"
	"sort"
)

// Statistics summarizes the unweighted price sample behind an estimate.
// Fields are only meaningful when Count >= 1.
type Statistics struct {
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// ComputeStatistics calculates summary statistics over a price sample.
// StdDev is the sample standard deviation, zero when fewer than two prices.
func ComputeStatistics(prices []float64) Statistics {
	if len(prices) == 0 {
		return Statistics{}
	}

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	n := len(sorted)
	stats := Statistics{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Count: n,
	}

	if n%2 == 0 {
		stats.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		stats.Median = sorted[n/2]
	}

	var sum float64
	for _, p := range sorted {
		sum += p
	}
	stats.Mean = sum / float64(n)

	if n >= 2 {
		var sqDiff float64
		for _, p := range sorted {
			d := p - stats.Mean
			sqDiff += d * d
		}
		stats.StdDev = math.Sqrt(sqDiff / float64(n-1))
	}

	return stats
}
