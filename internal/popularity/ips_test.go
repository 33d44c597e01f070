package popularity

import (
	"math"
	"testing"
	"time"
)

// countingPropensity records lookups so tests can assert skipped events.
type countingPropensity struct {
	p     float64
	calls int
}

func (c *countingPropensity) Probability(int) float64 {
	c.calls++
	return c.p
}

func exploredBias(t *testing.T) *PositionBias {
	t.Helper()
	b := NewPositionBiasBuilder()
	if err := b.Ingest(
		Observation{Position: 0, Impressions: 20, Clicks: 10},
		Observation{Position: 1, Impressions: 20, Clicks: 5},
	); err != nil {
		t.Fatal(err)
	}
	return b.Freeze()
}

func TestAdjustedImpressions_UpweightsByPropensity(t *testing.T) {
	bias := exploredBias(t)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	event := NewImpressionEvent(0, 10).WithImpressions(20).WithTimestamp(now)

	adjusted := AdjustedImpressions([]ImpressionEvent{event}, bias, DefaultParams(now))
	if adjusted <= 20 {
		t.Errorf("adjusted impressions = %v, want > 20", adjusted)
	}
	clicks := CorrectedClicks([]ImpressionEvent{event}, bias, DefaultParams(now))
	if clicks <= 10 {
		t.Errorf("corrected clicks = %v, want > 10", clicks)
	}
}

func TestCorrectedClickRate_MatchesRatio(t *testing.T) {
	bias := exploredBias(t)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	events := []ImpressionEvent{
		NewImpressionEvent(0, 10).WithImpressions(20).WithTimestamp(now),
		NewImpressionEvent(1, 3).WithImpressions(15).WithTimestamp(now.Add(-30 * time.Hour)),
	}
	params := DefaultParams(now)
	clicks := CorrectedClicks(events, bias, params)
	impressions := AdjustedImpressions(events, bias, params)
	if impressions == 0 {
		t.Fatal("expected nonzero adjusted impressions")
	}
	if got := CorrectedClickRate(events, bias, params); got != clicks/impressions {
		t.Errorf("CorrectedClickRate = %v, want %v", got, clicks/impressions)
	}
}

func TestCorrectedClicks_ZeroClicksSkipped(t *testing.T) {
	prop := &countingPropensity{p: 0.5}
	now := time.Now()
	events := []ImpressionEvent{
		NewImpressionEvent(0, 0).WithImpressions(10),
		NewImpressionEvent(1, -2),
	}
	if got := CorrectedClicks(events, prop, DefaultParams(now)); got != 0.0 {
		t.Errorf("CorrectedClicks = %v, want 0", got)
	}
	if prop.calls != 0 {
		t.Errorf("propensity looked up %d times for click-less events", prop.calls)
	}
}

func TestAdjustedImpressions_Defaults(t *testing.T) {
	prop := &countingPropensity{p: 0.5}
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []ImpressionEvent{
		NewImpressionEvent(0, 1),                    // impressions default to 1, timestamp to now
		NewImpressionEvent(0, 1).WithImpressions(0), // skipped
	}
	got := AdjustedImpressions(events, prop, DefaultParams(now))
	if math.Abs(got-2.0) > 1e-12 {
		t.Errorf("AdjustedImpressions = %v, want 2", got)
	}
	if prop.calls != 1 {
		t.Errorf("expected one propensity lookup, got %d", prop.calls)
	}
}

func TestCorrectedClicks_UnseenPositionUsesEpsilonFloor(t *testing.T) {
	bias := exploredBias(t)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	event := NewImpressionEvent(9, 1)
	got := CorrectedClicks([]ImpressionEvent{event}, bias, DefaultParams(now))
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("expected finite value, got %v", got)
	}
	if math.Abs(got-1/Epsilon) > 1e-3 {
		t.Errorf("CorrectedClicks = %v, want %v", got, 1/Epsilon)
	}
}

func TestCorrectedClickRate_NoImpressions(t *testing.T) {
	prop := &countingPropensity{p: 0.5}
	events := []ImpressionEvent{NewImpressionEvent(0, 3).WithImpressions(0)}
	if got := CorrectedClickRate(events, prop, DefaultParams(time.Now())); got != 0.0 {
		t.Errorf("CorrectedClickRate = %v, want 0", got)
	}
}
