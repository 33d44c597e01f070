package models

import "github.com/hyperjump/rankdaora/internal/popularity"

// SearchResult is a single search hit with its text, popularity and blended scores.
type SearchResult struct {
	Document *Document `json:"document"`
	// Score is the blended ranking score.
	Score float64 `json:"combined_score"`
	// ESScore is the raw relevance score reported by the keyword backend.
	ESScore float64 `json:"es_score"`
	// KeywordScore is ESScore normalized by the best hit.
	KeywordScore    float64 `json:"keyword_score"`
	PopularityScore float64 `json:"popularity_score"`
	Rank            int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query     string          `json:"query"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	// AutoFuzzy is set when fuzzy matching was enabled because the exact search
	// returned nothing.
	AutoFuzzy bool `json:"auto_fuzzy,omitempty"`
}

// BiasPoint is one position of the persisted position-bias curve.
type BiasPoint struct {
	Position    int     `json:"position"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Probability float64 `json:"probability"`
}

// BiasCurve lists the positions of bias in ascending order.
func BiasCurve(bias *popularity.PositionBias) []BiasPoint {
	if bias == nil {
		return []BiasPoint{}
	}
	positions := bias.Positions()
	points := make([]BiasPoint, 0, len(positions))
	for _, pos := range positions {
		st, _ := bias.Stats(pos)
		points = append(points, BiasPoint{
			Position:    pos,
			Impressions: st.Impressions,
			Clicks:      st.Clicks,
			Probability: bias.Probability(pos),
		})
	}
	return points
}
