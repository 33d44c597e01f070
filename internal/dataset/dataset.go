// Package dataset reads JSONL document datasets and normalizes their loosely typed
// click fields.
package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/rankdaora/internal/popularity"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 16 * 1024 * 1024

// known fields are lifted out of the record; everything else lands in Extra.
var knownFields = map[string]struct{}{
	"id": {}, "title": {}, "content": {}, "court": {}, "date": {},
	"click_count": {}, "click_position": {}, "click_impression": {}, "click_timestamp": {},
}

// RawDocument is one dataset record before normalization. Click fields keep whatever
// JSON type the producer wrote.
type RawDocument struct {
	ID      string
	Title   string
	Content string
	Court   string
	Date    string

	ClickCount      any
	ClickPosition   any
	ClickImpression any
	ClickTimestamp  any

	// Extra holds fields without a dedicated attribute.
	Extra map[string]any
	// Line is the 1-based line the record was read from.
	Line int
}

// Counts returns the clamped click count, position and impressions. Missing
// impressions default to the click count and are never below it.
func (r RawDocument) Counts() (clicks, position, impressions int) {
	clicks = NormalizeCount(r.ClickCount, popularity.MaxClickCount)
	position = NormalizeCount(r.ClickPosition, popularity.MaxPosition)
	if r.ClickImpression == nil {
		impressions = clicks
	} else {
		impressions = NormalizeCount(r.ClickImpression, popularity.MaxImpressions)
	}
	if impressions < clicks {
		impressions = clicks
	}
	return clicks, position, impressions
}

// Timestamp returns the normalized click timestamp string, or nil.
func (r RawDocument) Timestamp() *string {
	return NormalizeTimestamp(r.ClickTimestamp)
}

// Signal converts the record into a pipeline input. A timestamp that cannot be
// parsed is dropped so the event falls back to the batch reference time.
func (r RawDocument) Signal() popularity.Signal {
	clicks, position, impressions := r.Counts()
	sig := popularity.Signal{Position: position, Clicks: clicks, Impressions: impressions}
	if ts := r.Timestamp(); ts != nil {
		if parsed, err := popularity.ParseTimestamp(*ts); err == nil {
			sig.Timestamp = &parsed
		}
	}
	return sig
}

// NormalizeCount coerces a loosely typed count into [0, max]. Booleans map to 0 or 1,
// numbers and numeric strings are truncated toward zero, anything else is 0.
func NormalizeCount(raw any, max int) int {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return clampInt(v, max)
	case int64:
		return clampFloat(float64(v), max)
	case float64:
		return clampFloat(v, max)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return clampFloat(f, max)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return clampFloat(f, max)
	default:
		return 0
	}
}

// NormalizeTimestamp returns the trimmed timestamp string, or nil when raw is not a
// non-blank string.
func NormalizeTimestamp(raw any) *string {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func clampInt(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(f float64, max int) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= float64(max) {
		return max
	}
	return int(math.Trunc(f))
}

// Read opens path and decodes every record in it.
func Read(ctx context.Context, path string) ([]RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	docs, err := Decode(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// Decode reads JSONL records from r. Blank lines are skipped and records without an
// id get a random one.
func Decode(ctx context.Context, r io.Reader) ([]RawDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var docs []RawDocument
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		doc, err := decodeLine([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		doc.Line = line
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return docs, nil
}

func decodeLine(data []byte) (RawDocument, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return RawDocument{}, fmt.Errorf("invalid JSON record: %w", err)
	}
	if fields == nil {
		return RawDocument{}, fmt.Errorf("record must be a JSON object")
	}

	doc := RawDocument{
		ID:              stringField(fields["id"]),
		Title:           stringField(fields["title"]),
		Content:         stringField(fields["content"]),
		Court:           stringField(fields["court"]),
		Date:            stringField(fields["date"]),
		ClickCount:      fields["click_count"],
		ClickPosition:   fields["click_position"],
		ClickImpression: fields["click_impression"],
		ClickTimestamp:  fields["click_timestamp"],
	}
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.New().String()
	}
	for k, v := range fields {
		if _, ok := knownFields[k]; ok {
			continue
		}
		if doc.Extra == nil {
			doc.Extra = make(map[string]any)
		}
		doc.Extra[k] = v
	}
	return doc, nil
}

func stringField(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
