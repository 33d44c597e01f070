package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/popularity"
	"github.com/hyperjump/rankdaora/internal/search"
)

func BenchmarkFuse(b *testing.B) {
	hits := make([]*keyword.KeywordResult, 100)
	pop := make(map[string]float64, 100)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		hits[i] = &keyword.KeywordResult{ID: id, Score: float64(100-i) / 10}
		pop[id] = float64(i) / 100
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Fuse(hits, pop, 0.3)
	}
}

func benchSignals(n int, now time.Time) []popularity.Signal {
	signals := make([]popularity.Signal, n)
	for i := range signals {
		ts := now.Add(-time.Duration(i%720) * time.Hour)
		signals[i] = popularity.Signal{
			Position:    i % 20,
			Clicks:      (i * 7) % 50,
			Impressions: 50 + (i*13)%200,
			Timestamp:   &ts,
		}
	}
	return signals
}

func BenchmarkPipelineRun(b *testing.B) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signals := benchSignals(10000, now)
	p := popularity.NewPipeline(popularity.PipelineConfig{}, popularity.WithClock(func() time.Time { return now }))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(signals); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBleveSearch(b *testing.B) {
	idx, err := keyword.NewBleveIndex("")
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	docs := make([]*models.Document, 1000)
	for i := range docs {
		docs[i] = &models.Document{
			ID:      fmt.Sprintf("doc-%04d", i),
			Title:   fmt.Sprintf("Acordao %d sobre direito tributario", i),
			Content: "Exclusao do ICMS da base de calculo do PIS e da COFINS.",
		}
	}
	if err := idx.Index(ctx, docs); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, "direito tributario", 10, nil)
	}
}
