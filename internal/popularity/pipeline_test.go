package popularity

import (
	"math"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNormalizeSignal(t *testing.T) {
	tests := []struct {
		name string
		in   Signal
		want Signal
	}{
		{"clamps upper bounds", Signal{Position: 500, Clicks: 5000, Impressions: 50000}, Signal{Position: 100, Clicks: 876, Impressions: 10000}},
		{"clamps negatives", Signal{Position: -2, Clicks: -1, Impressions: -9}, Signal{}},
		{"floors impressions to clicks", Signal{Position: 1, Clicks: 12, Impressions: 3}, Signal{Position: 1, Clicks: 12, Impressions: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSignal(tt.in)
			if got.Position != tt.want.Position || got.Clicks != tt.want.Clicks || got.Impressions != tt.want.Impressions {
				t.Errorf("NormalizeSignal(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPipeline_Run(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-30 * 24 * time.Hour)
	signals := []Signal{
		{Position: 0, Clicks: 50, Impressions: 100, Timestamp: &now},
		{Position: 1, Clicks: 20, Impressions: 100, Timestamp: &now},
		{Position: 2, Clicks: 5, Impressions: 100, Timestamp: &old},
		{Position: 3, Clicks: 0, Impressions: 0},
	}
	p := NewPipeline(PipelineConfig{}, WithClock(fixedClock(now)))
	res, err := p.Run(signals)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != len(signals) {
		t.Fatalf("records = %d, want %d", len(res.Records), len(signals))
	}
	if !res.Now.Equal(now) {
		t.Errorf("Now = %v", res.Now)
	}
	if res.Ingested != 3 {
		t.Errorf("Ingested = %d, want 3 (both-zero triple skipped)", res.Ingested)
	}
	if _, ok := res.Bias.Lookup(3); ok {
		t.Error("position 3 should not be ingested")
	}

	var sumC, sumI float64
	for _, r := range res.Records {
		sumC += r.ClickCountCorrected
		sumI += r.ClickImpressionAdjusted
	}
	if math.Abs(res.Prior-sumC/sumI) > 1e-12 {
		t.Errorf("Prior = %v, want %v", res.Prior, sumC/sumI)
	}

	last := res.Records[3]
	if last.ClickCountCorrected != 0 || last.ClickImpressionAdjusted != 0 {
		t.Errorf("empty document got corrected stats %+v", last)
	}
	if math.Abs(last.PopularityRaw-res.Prior) > 1e-12 {
		t.Errorf("empty document popularity_raw = %v, want prior %v", last.PopularityRaw, res.Prior)
	}

	minP, maxP := 1.0, 0.0
	for i, r := range res.Records {
		if r.ClickCountRaw != NormalizeSignal(signals[i]).Clicks {
			t.Errorf("record %d ClickCountRaw = %d", i, r.ClickCountRaw)
		}
		if math.Abs(r.PopularityLog-math.Log1p(r.PopularityRaw)) > 1e-12 {
			t.Errorf("record %d log mismatch", i)
		}
		minP = math.Min(minP, r.PopularityPercentile)
		maxP = math.Max(maxP, r.PopularityPercentile)
	}
	if minP != 0 || maxP != 1 {
		t.Errorf("percentile span = [%v, %v], want [0, 1]", minP, maxP)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := now.Add(-72 * time.Hour)
	signals := make([]Signal, 0, 40)
	for i := 0; i < 40; i++ {
		signals = append(signals, Signal{Position: i % 7, Clicks: (i * 13) % 29, Impressions: 30 + i, Timestamp: &ts})
	}
	serial, err := NewPipeline(PipelineConfig{Workers: 1}, WithClock(fixedClock(now))).Run(signals)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := NewPipeline(PipelineConfig{Workers: 6}, WithClock(fixedClock(now))).Run(signals)
	if err != nil {
		t.Fatal(err)
	}
	if serial.Prior != parallel.Prior {
		t.Errorf("prior differs: %v vs %v", serial.Prior, parallel.Prior)
	}
	for i := range serial.Records {
		if serial.Records[i] != parallel.Records[i] {
			t.Fatalf("record %d differs: %+v vs %+v", i, serial.Records[i], parallel.Records[i])
		}
	}
}

func TestPipeline_EmptyBatch(t *testing.T) {
	res, err := NewPipeline(DefaultPipelineConfig()).Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 0 || res.Prior != 0 {
		t.Errorf("unexpected result for empty batch: %+v", res)
	}
}

func TestPipeline_NoClicksAnywhere(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	signals := []Signal{{Position: 0, Impressions: 10}, {Position: 1, Impressions: 5}}
	res, err := NewPipeline(PipelineConfig{}, WithClock(fixedClock(now))).Run(signals)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range res.Records {
		if r.ClickCountCorrected != 0 {
			t.Errorf("record %d corrected clicks = %v, want 0", i, r.ClickCountCorrected)
		}
	}
	if res.Prior != 0 {
		t.Errorf("prior = %v, want 0", res.Prior)
	}
}
