package popularity

import (
	"math"
	"time"
)

const (
	// DefaultDecayHours is the decay constant τ (one week).
	DefaultDecayHours = 24 * 7
	// MinTau keeps τ positive when callers pass a non-positive value.
	MinTau = 1e-6
)

// DecayWeight returns exp(-Δh/τ) where Δh is the age of ts in hours at now.
// Future timestamps clip to Δh = 0 and weigh exactly 1.0.
func DecayWeight(ts, now time.Time, tauHours float64) float64 {
	deltaHours := now.UTC().Sub(ts.UTC()).Hours()
	if deltaHours < 0 {
		deltaHours = 0
	}
	tau := math.Max(MinTau, tauHours)
	return math.Exp(-deltaHours / tau)
}

// ApplyTimeDecay decays a single aggregated count. Negative counts become 0.
func ApplyTimeDecay(count float64, ts, now time.Time, tauHours float64) float64 {
	return math.Max(0, count) * DecayWeight(ts, now, tauHours)
}

// TimedCount is a count observed at a point in time.
type TimedCount struct {
	Timestamp time.Time
	Count     float64
}

// AggregateTimeDecay sums decayed counts.
func AggregateTimeDecay(counts []TimedCount, now time.Time, tauHours float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += ApplyTimeDecay(c.Count, c.Timestamp, now, tauHours)
	}
	return total
}

// DecayCurve returns the weight for each timestamp.
func DecayCurve(timestamps []time.Time, now time.Time, tauHours float64) []float64 {
	weights := make([]float64, len(timestamps))
	for i, ts := range timestamps {
		weights[i] = DecayWeight(ts, now, tauHours)
	}
	return weights
}
