package popularity

import (
	"math"
	"sort"
)

// LogTransform clamps each value to >= 0 and applies log(1+x).
func LogTransform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log1p(math.Max(0, v))
	}
	return out
}

// PercentileRank maps values to [0,1] by rank. Ties share the mean of the
// 0-based ranks they span, divided by n-1. A single value ranks 0.
func PercentileRank(values []float64) []float64 {
	ranks := make([]float64, len(values))
	if len(values) == 0 {
		return ranks
	}
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	n := float64(len(values) - 1)
	for i := 0; i < len(order); {
		j := i + 1
		for j < len(order) && values[order[j]] == values[order[i]] {
			j++
		}
		percentile := 0.0
		if n > 0 {
			percentile = float64(i+j-1) / 2.0 / n
		}
		for k := i; k < j; k++ {
			ranks[order[k]] = percentile
		}
		i = j
	}
	return ranks
}

// LogPercentileTransform ranks the log-scaled values.
func LogPercentileTransform(values []float64) []float64 {
	return PercentileRank(LogTransform(values))
}
