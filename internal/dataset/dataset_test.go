package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/rankdaora/internal/popularity"
)

func TestNormalizeCount(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		max  int
		want int
	}{
		{"nil", nil, 876, 0},
		{"true", true, 876, 1},
		{"false", false, 876, 0},
		{"float truncated", 12.9, 876, 12},
		{"negative float", -4.0, 876, 0},
		{"above max", 5000.0, 876, 876},
		{"int", 7, 100, 7},
		{"numeric string", " 42.7 ", 876, 42},
		{"blank string", "   ", 876, 0},
		{"garbage string", "many", 876, 0},
		{"json number", json.Number("11"), 876, 11},
		{"object", map[string]any{"x": 1}, 876, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCount(tt.raw, tt.max); got != tt.want {
				t.Errorf("NormalizeCount(%v, %d) = %d, want %d", tt.raw, tt.max, got, tt.want)
			}
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	if got := NormalizeTimestamp(nil); got != nil {
		t.Errorf("nil input = %v", *got)
	}
	if got := NormalizeTimestamp(12.0); got != nil {
		t.Errorf("number input = %v", *got)
	}
	if got := NormalizeTimestamp("  "); got != nil {
		t.Errorf("blank input = %v", *got)
	}
	got := NormalizeTimestamp(" 2025-01-10T00:00:00Z ")
	if got == nil || *got != "2025-01-10T00:00:00Z" {
		t.Errorf("NormalizeTimestamp trimmed = %v", got)
	}
}

func TestRawDocument_Counts(t *testing.T) {
	tests := []struct {
		name              string
		doc               RawDocument
		clicks, pos, impr int
	}{
		{"impressions default to clicks", RawDocument{ClickCount: 9.0, ClickPosition: 3.0}, 9, 3, 9},
		{"impressions floored to clicks", RawDocument{ClickCount: 9.0, ClickImpression: 2.0}, 9, 0, 9},
		{"clamped", RawDocument{ClickCount: 1e6, ClickPosition: 400.0, ClickImpression: 1e9}, 876, 100, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, p, i := tt.doc.Counts()
			if c != tt.clicks || p != tt.pos || i != tt.impr {
				t.Errorf("Counts() = (%d,%d,%d), want (%d,%d,%d)", c, p, i, tt.clicks, tt.pos, tt.impr)
			}
		})
	}
}

func TestRawDocument_Signal(t *testing.T) {
	doc := RawDocument{ClickCount: "5", ClickPosition: 2.0, ClickImpression: 40.0, ClickTimestamp: "2025-01-10T12:00:00Z"}
	sig := doc.Signal()
	if sig.Clicks != 5 || sig.Position != 2 || sig.Impressions != 40 {
		t.Errorf("Signal() = %+v", sig)
	}
	if sig.Timestamp == nil || !sig.Timestamp.Equal(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Signal().Timestamp = %v", sig.Timestamp)
	}

	for _, ts := range []string{"2025-01-10T12:00Z", "2025-01-10T12:00", "2025-01-10T12:00:00+0000"} {
		doc.ClickTimestamp = ts
		sig := doc.Signal()
		if sig.Timestamp == nil || !sig.Timestamp.Equal(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("Signal().Timestamp for %q = %v", ts, sig.Timestamp)
		}
	}

	doc.ClickTimestamp = "last tuesday"
	if sig := doc.Signal(); sig.Timestamp != nil {
		t.Errorf("unparseable timestamp should be dropped, got %v", sig.Timestamp)
	}
}

func TestDecode(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"a","title":"Acordao","content":"texto","court":"STJ","date":"2024-02-01","click_count":3,"click_position":1,"click_impression":"12","extra":"kept"}`,
		``,
		`{"title":"sem id","click_count":true}`,
	}, "\n")

	docs, err := Decode(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].ID != "a" || docs[0].Court != "STJ" || docs[0].Line != 1 {
		t.Errorf("first doc = %+v", docs[0])
	}
	if docs[0].Extra["extra"] != "kept" {
		t.Errorf("extra fields not preserved: %v", docs[0].Extra)
	}
	if _, ok := docs[0].Extra["title"]; ok {
		t.Error("known fields must not be copied into Extra")
	}
	if docs[1].ID == "" {
		t.Error("expected generated id")
	}
	if docs[1].Line != 3 {
		t.Errorf("Line = %d, want 3", docs[1].Line)
	}
	if c, _, _ := docs[1].Counts(); c != 1 {
		t.Errorf("bool click count = %d, want 1", c)
	}
}

func TestDecode_ReportsLine(t *testing.T) {
	input := "{\"id\":\"a\"}\n{broken\n"
	_, err := Decode(context.Background(), strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name line 2: %v", err)
	}

	if _, err := Decode(context.Background(), strings.NewReader("[1,2]\n")); err == nil {
		t.Error("expected error for non-object record")
	}
	if _, err := Decode(context.Background(), strings.NewReader("null\n")); err == nil {
		t.Error("expected error for null record")
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.jsonl")
	if err := os.WriteFile(path, []byte(`{"id":"x","click_count":2}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	docs, err := Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "x" {
		t.Errorf("Read() = %+v", docs)
	}

	if _, err := Read(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ref := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	opts := GenerateOptions{Size: 25, Seed: DefaultGenerateSeed, Reference: ref}

	var a, b bytes.Buffer
	n, err := Generate(&a, opts)
	if err != nil {
		t.Fatal(err)
	}
	if n != 25 {
		t.Errorf("Generate wrote %d documents, want 25", n)
	}
	if _, err := Generate(&b, opts); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("same options should produce identical output")
	}

	docs, err := Decode(context.Background(), &a)
	if err != nil {
		t.Fatalf("generated output does not decode: %v", err)
	}
	if len(docs) != 25 {
		t.Fatalf("decoded %d docs", len(docs))
	}
	for _, d := range docs {
		clicks, pos, impr := d.Counts()
		if impr < clicks || pos < 0 || pos > popularity.MaxPosition {
			t.Errorf("generated doc %s has inconsistent counts (%d,%d,%d)", d.ID, clicks, pos, impr)
		}
		if d.Title == "" || d.Content == "" || d.Court == "" {
			t.Errorf("generated doc %s missing text fields", d.ID)
		}
	}
}
