// Package popularity turns click and impression logs into a corpus-calibrated
// popularity signal: position-bias estimation, inverse-propensity correction,
// time decay, Bayesian smoothing, and log-percentile normalization.
package popularity

import (
	"fmt"
	"strings"
	"time"
)

// Epsilon guards every division in the package against 0/0.
const Epsilon = 1e-6

// ImpressionEvent is a single impression log entry for a document.
// Impressions and Timestamp are optional; defaults are applied at point of use.
type ImpressionEvent struct {
	Position    int
	Clicks      float64
	Impressions *float64
	Timestamp   *time.Time
}

// NewImpressionEvent returns an event with both optional fields unset.
func NewImpressionEvent(position int, clicks float64) ImpressionEvent {
	return ImpressionEvent{Position: position, Clicks: clicks}
}

// WithImpressions returns a copy of e with impressions set.
func (e ImpressionEvent) WithImpressions(impressions float64) ImpressionEvent {
	e.Impressions = &impressions
	return e
}

// WithTimestamp returns a copy of e with the timestamp set.
func (e ImpressionEvent) WithTimestamp(ts time.Time) ImpressionEvent {
	e.Timestamp = &ts
	return e
}

// ImpressionsOr returns the event impressions, or def when absent.
func (e ImpressionEvent) ImpressionsOr(def float64) float64 {
	if e.Impressions == nil {
		return def
	}
	return *e.Impressions
}

// TimestampOr returns the event timestamp, or ref when absent.
func (e ImpressionEvent) TimestampOr(ref time.Time) time.Time {
	if e.Timestamp == nil {
		return ref
	}
	return *e.Timestamp
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses ISO-8601 text. A trailing "Z" is UTC, and text without
// a zone designator is treated as UTC. The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	value := strings.TrimSpace(s)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
