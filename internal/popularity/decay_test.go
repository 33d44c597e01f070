package popularity

import (
	"math"
	"testing"
	"time"
)

func TestDecayWeight(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   time.Time
		tau  float64
		want float64
	}{
		{"same instant", now, DefaultDecayHours, 1.0},
		{"future clips to one", now.Add(48 * time.Hour), DefaultDecayHours, 1.0},
		{"one tau old", now.Add(-168 * time.Hour), DefaultDecayHours, math.Exp(-1)},
		{"half tau old", now.Add(-12 * time.Hour), 24, math.Exp(-0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecayWeight(tt.ts, now, tt.tau)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("DecayWeight = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecayWeight_RangeAndMonotonic(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	prev := 1.0
	for h := 0; h <= 24*30; h += 6 {
		w := DecayWeight(now.Add(-time.Duration(h)*time.Hour), now, DefaultDecayHours)
		if w <= 0 || w > 1 {
			t.Fatalf("weight %v out of (0,1] at %dh", w, h)
		}
		if w > prev {
			t.Fatalf("weight increased with age at %dh", h)
		}
		prev = w
	}
}

func TestDecayWeight_NonPositiveTau(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	if got := DecayWeight(now, now, 0); got != 1.0 {
		t.Errorf("zero-age weight with tau=0 = %v, want 1", got)
	}
	got := DecayWeight(now.Add(-time.Hour), now, -5)
	if math.IsNaN(got) || got < 0 || got >= 1 {
		t.Errorf("weight with negative tau = %v", got)
	}
}

func TestDecayWeight_TimezonesNormalized(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	zoned := time.Date(2025, 1, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	if got := DecayWeight(zoned, now, DefaultDecayHours); got != 1.0 {
		t.Errorf("same instant in another zone should weigh 1, got %v", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 1, 10, 12, 34, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-01-10T12:34:00Z", want, false},
		{"2025-01-10T12:34:00", want, false},
		{"2025-01-10T09:34:00-03:00", want, false},
		{" 2025-01-10T12:34:00Z ", want, false},
		{"2025-01-10T12:34Z", want, false},
		{"2025-01-10T12:34", want, false},
		{"2025-01-10T09:34-03:00", want, false},
		{"2025-01-10T12:34:00+0000", want, false},
		{"2025-01-10T09:34:00.000-0300", want, false},
		{"2025-01-10", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), false},
		{"2025-01-10T12", time.Time{}, true},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr && got.Location() != time.UTC {
				t.Errorf("expected UTC location, got %v", got.Location())
			}
		})
	}
}

func TestAggregateTimeDecay(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	counts := []TimedCount{
		{Timestamp: now, Count: 3},
		{Timestamp: now.Add(-168 * time.Hour), Count: 2},
		{Timestamp: now, Count: -4},
	}
	want := 3 + 2*math.Exp(-1)
	if got := AggregateTimeDecay(counts, now, DefaultDecayHours); math.Abs(got-want) > 1e-12 {
		t.Errorf("AggregateTimeDecay = %v, want %v", got, want)
	}
	curve := DecayCurve([]time.Time{now, now.Add(-168 * time.Hour)}, now, DefaultDecayHours)
	if len(curve) != 2 || curve[0] != 1.0 {
		t.Errorf("DecayCurve = %v", curve)
	}
}
