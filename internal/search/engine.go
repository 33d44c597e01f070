package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyperjump/rankdaora/internal/config"
	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/storage"
	"github.com/hyperjump/rankdaora/internal/telemetry"
)

// ErrInvalidQuery is returned when a search query fails validation.
var ErrInvalidQuery = errors.New("invalid query")

// Engine runs keyword search and re-ranks hits by popularity.
type Engine struct {
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
	telemetry    *telemetry.Provider
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTelemetry records search metrics and spans.
func WithTelemetry(p *telemetry.Provider) EngineOption {
	return func(e *Engine) { e.telemetry = p }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	keywordIndex keyword.KeywordIndex,
	cfg *config.SearchConfig,
	opts ...EngineOption,
) *Engine {
	if cfg == nil {
		cfg = &config.SearchConfig{}
	}
	e := &Engine{
		storage:      storage,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs the keyword query, blends each hit with its popularity percentile and
// returns one page of results.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	if e.telemetry != nil {
		var span trace.Span
		ctx, span = e.telemetry.StartSpan(ctx, "search.Search",
			attribute.String("query", query.Query),
			attribute.Int("limit", query.Limit))
		defer span.End()
	}

	response, err := e.search(ctx, query, startTime)
	if e.telemetry != nil {
		result, n := "success", 0
		switch {
		case errors.Is(err, keyword.ErrIndexNotFound):
			result = "not_found"
		case err != nil:
			result = "error"
		default:
			n = len(response.Results)
		}
		e.telemetry.RecordSearch(ctx, result, n, time.Since(startTime))
	}
	if err != nil {
		e.logger.Warn("Search failed", zap.String("query", query.Query), zap.Error(err))
		return nil, err
	}
	e.logger.Debug("Search completed",
		zap.String("query", query.Query),
		zap.Int("total", response.Total),
		zap.Int("returned", len(response.Results)),
		zap.Bool("auto_fuzzy", response.AutoFuzzy),
		zap.Int64("query_time_ms", response.QueryTime),
	)
	return response, nil
}

func (e *Engine) search(ctx context.Context, query *models.SearchQuery, startTime time.Time) (*models.SearchResponse, error) {
	weight := e.config.Weight()
	if query.PopularityWeight != nil {
		weight = *query.PopularityWeight
	}

	opts := &keyword.SearchOptions{
		TitleBoost:   e.config.TitleBoost,
		FuzzyEnabled: query.FuzzyEnabled,
		Court:        query.Court,
	}
	hits, err := e.keywordIndex.Search(ctx, query.Query, e.topK(query), opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	autoFuzzy := false
	if len(hits) == 0 && !query.FuzzyEnabled && e.config.AutoFuzzyOrDefault() {
		opts.FuzzyEnabled = true
		hits, err = e.keywordIndex.Search(ctx, query.Query, e.topK(query), opts)
		if err != nil {
			return nil, fmt.Errorf("fuzzy keyword search failed: %w", err)
		}
		autoFuzzy = len(hits) > 0
	}

	docs := make(map[string]*models.Document, len(hits))
	popularity := make(map[string]float64, len(hits))
	for _, hit := range hits {
		doc, err := e.storage.GetDocument(ctx, hit.ID)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("Keyword hit missing from store", zap.String("id", hit.ID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch document %s: %w", hit.ID, err)
		}
		docs[hit.ID] = doc
		popularity[hit.ID] = doc.PopularityPercentile
	}

	blended := Fuse(hits, popularity, weight)

	minScore := query.MinScore
	if minScore <= 0 {
		minScore = e.config.MinScore
	}
	if minScore > 0 {
		filtered := blended[:0]
		for _, r := range blended {
			if r.Score >= minScore {
				filtered = append(filtered, r)
			}
		}
		blended = filtered
	}

	start := query.Offset
	end := query.Offset + query.Limit
	if start > len(blended) {
		start = len(blended)
	}
	if end > len(blended) {
		end = len(blended)
	}
	paged := blended[start:end]

	response := &models.SearchResponse{
		Query:     query.Query,
		Results:   make([]*models.SearchResult, 0, len(paged)),
		Total:     len(blended),
		AutoFuzzy: autoFuzzy,
	}
	for i, r := range paged {
		response.Results = append(response.Results, &models.SearchResult{
			Document:        docs[r.DocumentID],
			Score:           r.Score,
			ESScore:         r.ESScore,
			KeywordScore:    r.KeywordScore,
			PopularityScore: r.PopularityScore,
			Rank:            start + i + 1,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// topK is the number of keyword candidates to re-rank. It always covers the requested page.
func (e *Engine) topK(query *models.SearchQuery) int {
	k := e.config.TopKCandidates
	if need := query.Offset + query.Limit; k < need {
		k = need
	}
	return k
}
