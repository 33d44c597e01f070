package popularity

import (
	"math"
	"time"
)

// Params holds the shared knobs for inverse-propensity correction.
type Params struct {
	// Now is the batch reference time; events without a timestamp use it.
	Now      time.Time
	TauHours float64
	Epsilon  float64
}

// DefaultParams returns params with the default τ and ε at reference time now.
func DefaultParams(now time.Time) Params {
	return Params{Now: now, TauHours: DefaultDecayHours, Epsilon: Epsilon}
}

func (p Params) epsilon() float64 {
	if p.Epsilon <= 0 {
		return Epsilon
	}
	return p.Epsilon
}

// weight returns decay(ts)/max(ε, propensity(pos)) for one event.
func (p Params) weight(e ImpressionEvent, propensity Propensity) float64 {
	eps := p.epsilon()
	prob := math.Max(eps, propensity.Probability(e.Position))
	return DecayWeight(e.TimestampOr(p.Now), p.Now, p.TauHours) / prob
}

// CorrectedClicks returns Σ clicks_i · w_t(i) / p(pos_i) over events with clicks.
// Events without clicks are skipped before any propensity lookup.
func CorrectedClicks(events []ImpressionEvent, propensity Propensity, params Params) float64 {
	total := 0.0
	for _, e := range events {
		if e.Clicks <= 0 {
			continue
		}
		total += e.Clicks * params.weight(e, propensity)
	}
	return total
}

// AdjustedImpressions returns Σ impressions_i · w_t(i) / p(pos_i).
// Missing impressions count as 1; non-positive impressions are skipped.
func AdjustedImpressions(events []ImpressionEvent, propensity Propensity, params Params) float64 {
	total := 0.0
	for _, e := range events {
		impressions := e.ImpressionsOr(1.0)
		if impressions <= 0 {
			continue
		}
		total += impressions * params.weight(e, propensity)
	}
	return total
}

// CorrectedClickRate returns corrected clicks over adjusted impressions, or 0
// when there are no adjusted impressions.
func CorrectedClickRate(events []ImpressionEvent, propensity Propensity, params Params) float64 {
	clicks := CorrectedClicks(events, propensity, params)
	impressions := AdjustedImpressions(events, propensity, params)
	if impressions <= 0 {
		return 0.0
	}
	return clicks / impressions
}
