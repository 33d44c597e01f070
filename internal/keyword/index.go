// Package keyword provides full-text indexing and search over legal documents.
package keyword

import (
	"context"
	"errors"

	"github.com/hyperjump/rankdaora/internal/models"
)

// DefaultTitleBoost weights title matches over content matches.
const DefaultTitleBoost = 2.0

var (
	// ErrIndexNotFound is returned when the backing index does not exist.
	ErrIndexNotFound = errors.New("index not found")
	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("search backend unavailable")
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the title field.
	// Zero means DefaultTitleBoost; use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
	// Court restricts hits to an exact court name when set.
	Court string
}

func (o *SearchOptions) titleBoost() float64 {
	if o == nil || o.TitleBoost <= 0 {
		return DefaultTitleBoost
	}
	return o.TitleBoost
}

func (o *SearchOptions) fuzziness() int {
	if o == nil || !o.FuzzyEnabled {
		return 0
	}
	if o.Fuzziness <= 0 || o.Fuzziness > 2 {
		return 2
	}
	return o.Fuzziness
}

func (o *SearchOptions) court() string {
	if o == nil {
		return ""
	}
	return o.Court
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	// Index adds or replaces documents.
	Index(ctx context.Context, docs []*models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	// Reset drops every document and recreates an empty index.
	Reset(ctx context.Context) error
	// DocCount returns the total number of documents in the index.
	DocCount(ctx context.Context) (uint64, error)
	Close() error
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ensurer is implemented by backends whose index must be created before writes.
type Ensurer interface {
	EnsureIndex(ctx context.Context) error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}

// indexedDocument is the subset of a document sent to the keyword backend.
type indexedDocument struct {
	ID                   string  `json:"id"`
	Title                string  `json:"title"`
	Content              string  `json:"content"`
	Court                string  `json:"court"`
	Date                 string  `json:"date,omitempty"`
	ClickCount           int     `json:"click_count"`
	ClickPosition        int     `json:"click_position"`
	ClickImpression      int     `json:"click_impression"`
	ClickTimestamp       *string `json:"click_timestamp,omitempty"`
	ClickCountRaw        int     `json:"click_count_raw"`
	ClickCountCorrected  float64 `json:"click_count_corrected"`
	ClickImpressionAdj   float64 `json:"click_impression_adjusted"`
	PopularityRaw        float64 `json:"popularity_raw"`
	PopularityLog        float64 `json:"popularity_log"`
	PopularityPercentile float64 `json:"popularity_percentile"`
}

func newIndexedDocument(d *models.Document) indexedDocument {
	return indexedDocument{
		ID:                   d.ID,
		Title:                d.Title,
		Content:              d.Content,
		Court:                d.Court,
		Date:                 d.Date,
		ClickCount:           d.ClickCount,
		ClickPosition:        d.ClickPosition,
		ClickImpression:      d.ClickImpression,
		ClickTimestamp:       d.ClickTimestamp,
		ClickCountRaw:        d.ClickCountRaw,
		ClickCountCorrected:  d.ClickCountCorrected,
		ClickImpressionAdj:   d.ClickImpressionAdjusted,
		PopularityRaw:        d.PopularityRaw,
		PopularityLog:        d.PopularityLog,
		PopularityPercentile: d.PopularityPercentile,
	}
}
