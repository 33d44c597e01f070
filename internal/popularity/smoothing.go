package popularity

import (
	"math"
	"time"
)

// DefaultPseudocount is the virtual prior sample size.
const DefaultPseudocount = 10.0

// BayesianSmoother shrinks a document's corrected click rate toward a corpus prior.
// The score equals a Beta-Binomial posterior mean with Pseudocount as the prior
// sample size: it tends to Prior with no evidence and to the raw rate with a lot.
type BayesianSmoother struct {
	Prior       float64
	Pseudocount float64
	TauHours    float64
	Epsilon     float64
}

// SmootherOption configures a BayesianSmoother.
type SmootherOption func(*BayesianSmoother)

// WithPseudocount sets the prior strength. Non-positive values are ignored.
func WithPseudocount(v float64) SmootherOption {
	return func(s *BayesianSmoother) {
		if v > 0 {
			s.Pseudocount = v
		}
	}
}

// WithDecayHours sets τ used by Score.
func WithDecayHours(tau float64) SmootherOption {
	return func(s *BayesianSmoother) { s.TauHours = tau }
}

// WithSmoothingEpsilon sets the denominator floor.
func WithSmoothingEpsilon(eps float64) SmootherOption {
	return func(s *BayesianSmoother) {
		if eps > 0 {
			s.Epsilon = eps
		}
	}
}

// NewBayesianSmoother returns a smoother with default pseudocount, τ and ε.
func NewBayesianSmoother(prior float64, opts ...SmootherOption) BayesianSmoother {
	s := BayesianSmoother{
		Prior:       prior,
		Pseudocount: DefaultPseudocount,
		TauHours:    DefaultDecayHours,
		Epsilon:     Epsilon,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Score returns (v·prior + C_corr) / (v + adjusted impressions) for events.
func (s BayesianSmoother) Score(events []ImpressionEvent, propensity Propensity, now time.Time) float64 {
	params := Params{Now: now, TauHours: s.TauHours, Epsilon: s.Epsilon}
	clicks := CorrectedClicks(events, propensity, params)
	impressions := AdjustedImpressions(events, propensity, params)
	return s.ScoreFromStats(clicks, impressions)
}

// ScoreFromStats applies the smoothing formula to precomputed corrected values.
func (s BayesianSmoother) ScoreFromStats(clicks, impressions float64) float64 {
	denominator := math.Max(s.epsilon(), s.Pseudocount+impressions)
	numerator := s.Pseudocount*s.Prior + clicks
	return numerator / denominator
}

func (s BayesianSmoother) epsilon() float64 {
	if s.Epsilon <= 0 {
		return Epsilon
	}
	return s.Epsilon
}

// CorpusPrior returns total corrected clicks over total adjusted impressions,
// or 0 when the corpus has no adjusted impressions.
func CorpusPrior(totalClicks, totalImpressions float64) float64 {
	if totalImpressions <= 0 {
		return 0.0
	}
	return totalClicks / totalImpressions
}
