package popularity

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidObservation is returned when an ingested triple has a negative field.
	ErrInvalidObservation = errors.New("invalid observation")
	// ErrFrozen is returned when ingesting into a builder that has been frozen.
	ErrFrozen = errors.New("position bias builder is frozen")
)

// Observation is one (position, impressions, clicks) triple from exploration logs.
type Observation struct {
	Position    int
	Impressions int
	Clicks      int
}

// PositionStats aggregates counts for one display position. Counters only grow.
type PositionStats struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
}

// Probability returns the smoothed click probability, or 0 when the position
// has no impressions.
func (s PositionStats) Probability(epsilon float64) float64 {
	if s.Impressions == 0 {
		return 0.0
	}
	return (float64(s.Clicks) + epsilon) / (float64(s.Impressions) + epsilon)
}

// Propensity estimates P(click | shown at position).
type Propensity interface {
	Probability(position int) float64
}

// PositionBiasBuilder accumulates exploration counts during ingestion.
// It expects a single writer; Freeze hands a read-only snapshot to scorers.
type PositionBiasBuilder struct {
	stats   map[int]*PositionStats
	epsilon float64
	frozen  bool
}

// NewPositionBiasBuilder returns an empty builder for one corpus run.
func NewPositionBiasBuilder() *PositionBiasBuilder {
	return &PositionBiasBuilder{
		stats:   make(map[int]*PositionStats),
		epsilon: Epsilon,
	}
}

// Ingest adds each observation to its position's counters, in order.
// It stops at the first invalid triple; earlier triples stay applied.
func (b *PositionBiasBuilder) Ingest(observations ...Observation) error {
	if b.frozen {
		return ErrFrozen
	}
	for _, obs := range observations {
		if obs.Position < 0 {
			return fmt.Errorf("%w: position index must be non-negative, got %d", ErrInvalidObservation, obs.Position)
		}
		if obs.Impressions < 0 || obs.Clicks < 0 {
			return fmt.Errorf("%w: impressions and clicks must be non-negative (position %d: impressions=%d clicks=%d)",
				ErrInvalidObservation, obs.Position, obs.Impressions, obs.Clicks)
		}
		stats, ok := b.stats[obs.Position]
		if !ok {
			stats = &PositionStats{}
			b.stats[obs.Position] = stats
		}
		stats.Impressions += int64(obs.Impressions)
		stats.Clicks += int64(obs.Clicks)
	}
	return nil
}

// Probability returns the current estimate for position.
func (b *PositionBiasBuilder) Probability(position int) float64 {
	p, _ := b.Lookup(position)
	return p
}

// Lookup returns the estimate and whether the position was ever ingested.
func (b *PositionBiasBuilder) Lookup(position int) (float64, bool) {
	stats, ok := b.stats[position]
	if !ok {
		return 0.0, false
	}
	return stats.Probability(b.epsilon), true
}

// Curve returns the estimate for every observed position.
func (b *PositionBiasBuilder) Curve() map[int]float64 {
	curve := make(map[int]float64, len(b.stats))
	for pos, stats := range b.stats {
		curve[pos] = stats.Probability(b.epsilon)
	}
	return curve
}

// Frozen reports whether Freeze has been called.
func (b *PositionBiasBuilder) Frozen() bool {
	return b.frozen
}

// Freeze stops further ingestion and returns an immutable snapshot.
// Calling Freeze again returns an equal snapshot.
func (b *PositionBiasBuilder) Freeze() *PositionBias {
	b.frozen = true
	stats := make(map[int]PositionStats, len(b.stats))
	for pos, s := range b.stats {
		stats[pos] = *s
	}
	return &PositionBias{stats: stats, epsilon: b.epsilon}
}

// PositionBias is a read-only propensity model, safe for concurrent use.
type PositionBias struct {
	stats   map[int]PositionStats
	epsilon float64
}

// NewPositionBias builds a frozen model directly from per-position stats,
// e.g. a curve loaded back from storage.
func NewPositionBias(stats map[int]PositionStats) *PositionBias {
	copied := make(map[int]PositionStats, len(stats))
	for pos, s := range stats {
		copied[pos] = s
	}
	return &PositionBias{stats: copied, epsilon: Epsilon}
}

// Probability returns P(click | position); 0 for positions never observed.
func (m *PositionBias) Probability(position int) float64 {
	p, _ := m.Lookup(position)
	return p
}

// Lookup returns the estimate and whether the position was ever ingested.
func (m *PositionBias) Lookup(position int) (float64, bool) {
	stats, ok := m.stats[position]
	if !ok {
		return 0.0, false
	}
	return stats.Probability(m.epsilon), true
}

// Stats returns the raw counters for position.
func (m *PositionBias) Stats(position int) (PositionStats, bool) {
	s, ok := m.stats[position]
	return s, ok
}

// Positions returns observed positions in ascending order.
func (m *PositionBias) Positions() []int {
	positions := make([]int, 0, len(m.stats))
	for pos := range m.stats {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

// Curve returns the estimate for every observed position.
func (m *PositionBias) Curve() map[int]float64 {
	curve := make(map[int]float64, len(m.stats))
	for pos, stats := range m.stats {
		curve[pos] = stats.Probability(m.epsilon)
	}
	return curve
}

// Len returns the number of observed positions.
func (m *PositionBias) Len() int {
	return len(m.stats)
}
