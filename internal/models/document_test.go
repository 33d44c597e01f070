package models

import (
	"math"
	"testing"

	"github.com/hyperjump/rankdaora/internal/popularity"
)

func TestDocument_Sanitize(t *testing.T) {
	blank := "   "
	doc := &Document{
		ID:                   "doc-1",
		ClickCount:           -3,
		ClickPosition:        -1,
		ClickImpression:      -5,
		ClickTimestamp:       &blank,
		ClickCountRaw:        -1,
		PopularityLog:        -0.2,
		PopularityPercentile: 1.7,
	}
	doc.Sanitize()
	if doc.Title != "Untitled" || doc.Court != "Unknown" || doc.Date != "1970-01-01" {
		t.Errorf("display defaults not applied: %+v", doc)
	}
	if doc.ClickCount != 0 || doc.ClickPosition != 0 || doc.ClickImpression != 0 {
		t.Errorf("counts not clamped: %+v", doc)
	}
	if doc.ClickTimestamp != nil {
		t.Error("blank timestamp should become nil")
	}
	if doc.ClickCountRaw != 0 {
		t.Errorf("ClickCountRaw = %d", doc.ClickCountRaw)
	}
	if doc.PopularityLog != 0 || doc.PopularityPercentile != 1 {
		t.Errorf("popularity not clamped: log=%v pct=%v", doc.PopularityLog, doc.PopularityPercentile)
	}
}

func TestDocument_SanitizeClampsScores(t *testing.T) {
	doc := &Document{
		ID:                      "doc-2",
		ClickCount:              4,
		ClickImpression:         10,
		ClickCountRaw:           -2,
		ClickCountCorrected:     -1.5,
		ClickImpressionAdjusted: -0.1,
		PopularityRaw:           -0.3,
		PopularityLog:           0.4,
	}
	doc.Sanitize()
	if doc.ClickCountRaw != 0 {
		t.Errorf("ClickCountRaw = %d, want 0", doc.ClickCountRaw)
	}
	if doc.ClickCountCorrected != 0 || doc.ClickImpressionAdjusted != 0 || doc.PopularityRaw != 0 {
		t.Errorf("scores not clamped: corrected=%v adjusted=%v raw=%v",
			doc.ClickCountCorrected, doc.ClickImpressionAdjusted, doc.PopularityRaw)
	}
	if doc.PopularityLog != 0.4 {
		t.Errorf("PopularityLog = %v, want 0.4", doc.PopularityLog)
	}
}

func TestDocument_SanitizeFloorsImpressions(t *testing.T) {
	doc := &Document{Title: "t", ClickCount: 17, ClickImpression: 3}
	doc.Sanitize()
	if doc.ClickImpression != 17 {
		t.Errorf("ClickImpression = %d, want 17", doc.ClickImpression)
	}
}

func TestDocument_ApplyRecordRoundTrip(t *testing.T) {
	rec := popularity.Record{
		ClickCountRaw:           15,
		ClickCountCorrected:     21.5,
		ClickImpressionAdjusted: 180,
		PopularityRaw:           0.6,
		PopularityLog:           0.47,
		PopularityPercentile:    0.8,
	}
	var doc Document
	doc.ApplyRecord(rec)
	if doc.Record() != rec {
		t.Errorf("Record() = %+v, want %+v", doc.Record(), rec)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0}, {0, 0}, {0.3, 0.3}, {1, 1}, {4, 1}, {math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
