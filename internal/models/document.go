// Package models defines core data structures for documents, queries, and search results.
package models

import (
	"math"
	"strings"
	"time"

	"github.com/hyperjump/rankdaora/internal/popularity"
)

// Document is a legal document enriched with its click-derived popularity fields.
type Document struct {
	ID      string `json:"id" db:"id"`
	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`
	Court   string `json:"court" db:"court"`
	Date    string `json:"date" db:"date"`

	// Raw click observation, already clamped by the loader.
	ClickCount      int     `json:"click_count" db:"click_count"`
	ClickPosition   int     `json:"click_position" db:"click_position"`
	ClickImpression int     `json:"click_impression" db:"click_impression"`
	ClickTimestamp  *string `json:"click_timestamp,omitempty" db:"click_timestamp"`

	// Popularity pipeline output.
	ClickCountRaw           int     `json:"click_count_raw" db:"click_count_raw"`
	ClickCountCorrected     float64 `json:"click_count_corrected" db:"click_count_corrected"`
	ClickImpressionAdjusted float64 `json:"click_impression_adjusted" db:"click_impression_adjusted"`
	PopularityRaw           float64 `json:"popularity_raw" db:"popularity_raw"`
	PopularityLog           float64 `json:"popularity_log" db:"popularity_log"`
	PopularityPercentile    float64 `json:"popularity_percentile" db:"popularity_percentile"`

	// Metadata keeps dataset fields that have no dedicated column.
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// ApplyRecord copies pipeline output onto the document.
func (d *Document) ApplyRecord(r popularity.Record) {
	d.ClickCountRaw = r.ClickCountRaw
	d.ClickCountCorrected = r.ClickCountCorrected
	d.ClickImpressionAdjusted = r.ClickImpressionAdjusted
	d.PopularityRaw = r.PopularityRaw
	d.PopularityLog = r.PopularityLog
	d.PopularityPercentile = r.PopularityPercentile
}

// Record returns the popularity fields as a pipeline record.
func (d *Document) Record() popularity.Record {
	return popularity.Record{
		ClickCountRaw:           d.ClickCountRaw,
		ClickCountCorrected:     d.ClickCountCorrected,
		ClickImpressionAdjusted: d.ClickImpressionAdjusted,
		PopularityRaw:           d.PopularityRaw,
		PopularityLog:           d.PopularityLog,
		PopularityPercentile:    d.PopularityPercentile,
	}
}

// Sanitize re-validates fields read back from a store or index, which may have been
// written by another process. Counts and scores become non-negative, impressions are
// floored to clicks, the percentile is kept in [0,1] and display fields get defaults.
func (d *Document) Sanitize() {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = "Untitled"
	}
	if d.Court == "" {
		d.Court = "Unknown"
	}
	if d.Date == "" {
		d.Date = "1970-01-01"
	}
	d.ClickCount = nonNegative(d.ClickCount)
	d.ClickPosition = nonNegative(d.ClickPosition)
	d.ClickImpression = nonNegative(d.ClickImpression)
	if d.ClickImpression < d.ClickCount {
		d.ClickImpression = d.ClickCount
	}
	if d.ClickTimestamp != nil {
		ts := strings.TrimSpace(*d.ClickTimestamp)
		if ts == "" {
			d.ClickTimestamp = nil
		} else {
			d.ClickTimestamp = &ts
		}
	}
	d.ClickCountRaw = nonNegative(d.ClickCountRaw)
	d.ClickCountCorrected = math.Max(0, d.ClickCountCorrected)
	d.ClickImpressionAdjusted = math.Max(0, d.ClickImpressionAdjusted)
	d.PopularityRaw = math.Max(0, d.PopularityRaw)
	d.PopularityLog = math.Max(0, d.PopularityLog)
	d.PopularityPercentile = Clamp01(d.PopularityPercentile)
}

// Clamp01 bounds v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
