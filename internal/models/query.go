package models

import "fmt"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query        string  `json:"query"`
	Limit        int     `json:"limit,omitempty"`
	Offset       int     `json:"offset,omitempty"`
	FuzzyEnabled bool    `json:"fuzzy_enabled,omitempty"` // enable fuzzy matching for typo tolerance
	MinScore     float64 `json:"min_score,omitempty"`     // minimum combined score
	// PopularityWeight overrides the configured blend weight when set.
	PopularityWeight *float64 `json:"popularity_weight,omitempty"`
	Court            string   `json:"court,omitempty"` // exact court filter
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty or the weight is out of range.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.PopularityWeight != nil && (*q.PopularityWeight < 0 || *q.PopularityWeight > 1) {
		return fmt.Errorf("popularity_weight must be within [0, 1], got %v", *q.PopularityWeight)
	}
	return nil
}
