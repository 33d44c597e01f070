// Package loader scores a click dataset and writes it to the document store and the
// keyword index.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyperjump/rankdaora/internal/dataset"
	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/popularity"
	"github.com/hyperjump/rankdaora/internal/storage"
	"github.com/hyperjump/rankdaora/internal/telemetry"
)

// Loader runs the popularity pipeline over a dataset and persists the result.
// Loads are serialized.
type Loader struct {
	mu           sync.Mutex
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	pipeline     *popularity.Pipeline
	telemetry    *telemetry.Provider
	logger       *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a logger for load progress.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithTelemetry records load metrics and spans on p.
func WithTelemetry(p *telemetry.Provider) LoaderOption {
	return func(ld *Loader) { ld.telemetry = p }
}

// NewLoader creates a loader with the given dependencies.
func NewLoader(
	storage storage.Storage,
	keywordIndex keyword.KeywordIndex,
	pipeline *popularity.Pipeline,
	opts ...LoaderOption,
) *Loader {
	ld := &Loader{
		storage:      storage,
		keywordIndex: keywordIndex,
		pipeline:     pipeline,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Options controls a single load.
type Options struct {
	// Recreate drops every stored and indexed document before writing.
	Recreate bool
}

// Summary describes a completed load.
type Summary struct {
	Dataset       string           `json:"dataset"`
	Documents     int              `json:"documents"`
	Ingested      int              `json:"ingested"`
	Positions     int              `json:"positions"`
	Prior         float64          `json:"prior"`
	ReferenceTime time.Time        `json:"reference_time"`
	Duration      time.Duration    `json:"duration"`
	Run           *storage.LoadRun `json:"run,omitempty"`
	Recreated     bool             `json:"recreated"`
	// InvalidTimestamps counts click timestamps that could not be parsed; those
	// events use the reference time.
	InvalidTimestamps int `json:"invalid_timestamps"`
}

// Load reads the JSONL dataset at path and loads it.
func (ld *Loader) Load(ctx context.Context, path string, opts Options) (*Summary, error) {
	raw, err := dataset.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return ld.LoadDocuments(ctx, filepath.Base(path), raw, opts)
}

// LoadDocuments scores raw records as one batch, then writes documents to the store
// and the keyword index and records the bias curve and the run. An empty batch only
// honors Recreate.
func (ld *Loader) LoadDocuments(ctx context.Context, name string, raw []dataset.RawDocument, opts Options) (*Summary, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	start := time.Now()
	if ld.telemetry != nil {
		var span trace.Span
		ctx, span = ld.telemetry.StartSpan(ctx, "loader.Load",
			attribute.String("dataset", name),
			attribute.Int("records", len(raw)))
		defer span.End()
	}

	summary, err := ld.load(ctx, name, raw, opts, start)
	if err != nil {
		if ld.telemetry != nil {
			ld.telemetry.RecordLoadFailure(ctx, time.Since(start))
		}
		ld.logger.Error("Dataset load failed", zap.String("dataset", name), zap.Error(err))
		return nil, err
	}
	if ld.telemetry != nil {
		ld.telemetry.RecordLoad(ctx, telemetry.LoadStats{
			Documents: summary.Documents,
			Ingested:  summary.Ingested,
			Positions: summary.Positions,
			Prior:     summary.Prior,
			Duration:  summary.Duration,
		})
	}
	ld.logger.Info("Dataset loaded",
		zap.String("dataset", name),
		zap.Int("documents", summary.Documents),
		zap.Int("ingested", summary.Ingested),
		zap.Int("positions", summary.Positions),
		zap.Float64("prior", summary.Prior),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (ld *Loader) load(ctx context.Context, name string, raw []dataset.RawDocument, opts Options, start time.Time) (*Summary, error) {
	if opts.Recreate {
		if err := ld.storage.DeleteAllDocuments(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear document store: %w", err)
		}
		if err := ld.keywordIndex.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset keyword index: %w", err)
		}
		ld.logger.Debug("Cleared store and keyword index", zap.String("dataset", name))
	}

	if e, ok := ld.keywordIndex.(keyword.Ensurer); ok && !opts.Recreate {
		if err := e.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare keyword index: %w", err)
		}
	}

	summary := &Summary{Dataset: name, Recreated: opts.Recreate}
	if len(raw) == 0 {
		summary.ReferenceTime = time.Now().UTC()
		summary.Duration = time.Since(start)
		return summary, nil
	}

	signals := make([]popularity.Signal, len(raw))
	for i, r := range raw {
		signals[i] = r.Signal()
		if ts := r.Timestamp(); ts != nil && signals[i].Timestamp == nil {
			summary.InvalidTimestamps++
			ld.logger.Warn("Unparseable click timestamp, using reference time",
				zap.String("dataset", name),
				zap.String("id", r.ID),
				zap.Int("line", r.Line),
				zap.String("click_timestamp", *ts))
		}
	}
	result, err := ld.pipeline.Run(signals)
	if err != nil {
		return nil, fmt.Errorf("failed to score dataset: %w", err)
	}
	docs := BuildDocuments(raw, result.Records)

	if err := ld.storage.UpsertDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to store documents: %w", err)
	}
	if err := ld.keywordIndex.Index(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to index documents: %w", err)
	}
	if err := ld.storage.SaveBiasCurve(ctx, result.Bias); err != nil {
		return nil, fmt.Errorf("failed to store bias curve: %w", err)
	}

	summary.Documents = len(docs)
	summary.Ingested = result.Ingested
	summary.Positions = result.Bias.Len()
	summary.Prior = result.Prior
	summary.ReferenceTime = result.Now
	summary.Duration = time.Since(start)

	run := &storage.LoadRun{
		Dataset:       name,
		StartedAt:     start.UTC(),
		Documents:     summary.Documents,
		Ingested:      summary.Ingested,
		Prior:         summary.Prior,
		ReferenceTime: summary.ReferenceTime,
		DurationMs:    summary.Duration.Milliseconds(),
	}
	if err := ld.storage.RecordLoadRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record load run: %w", err)
	}
	summary.Run = run
	return summary, nil
}

// BuildDocuments merges normalized dataset fields with their pipeline records.
// records must be aligned with raw.
func BuildDocuments(raw []dataset.RawDocument, records []popularity.Record) []*models.Document {
	docs := make([]*models.Document, len(raw))
	for i, r := range raw {
		clicks, position, impressions := r.Counts()
		doc := &models.Document{
			ID:              r.ID,
			Title:           r.Title,
			Content:         r.Content,
			Court:           r.Court,
			Date:            r.Date,
			ClickCount:      clicks,
			ClickPosition:   position,
			ClickImpression: impressions,
			ClickTimestamp:  r.Timestamp(),
			Metadata:        r.Extra,
		}
		doc.ApplyRecord(records[i])
		doc.Sanitize()
		docs[i] = doc
	}
	return docs
}
