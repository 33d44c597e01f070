// Package search ranks keyword hits by blending text relevance with document popularity.
package search

import (
	"sort"

	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/models"
)

// BlendedResult holds a document ID with its keyword, popularity and combined scores.
type BlendedResult struct {
	DocumentID      string
	Score           float64
	ESScore         float64
	KeywordScore    float64
	PopularityScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	if len(results) == 0 {
		return make(map[string]float64)
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// Blend mixes a text relevance score with a popularity score in [0,1].
// weight is the share given to popularity and is clamped to [0,1].
func Blend(text, popularity, weight float64) float64 {
	w := models.Clamp01(weight)
	return (1-w)*text + w*models.Clamp01(popularity)
}

// Fuse blends keyword hits with per-document popularity and returns results sorted by
// combined score. Hits missing from popularity are dropped. Equal scores keep the
// keyword backend's order.
func Fuse(hits []*keyword.KeywordResult, popularity map[string]float64, weight float64) []*BlendedResult {
	keywordScores := NormalizeKeywordScores(hits)
	results := make([]*BlendedResult, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		pop, ok := popularity[hit.ID]
		if !ok {
			continue
		}
		if _, dup := seen[hit.ID]; dup {
			continue
		}
		seen[hit.ID] = struct{}{}
		text := keywordScores[hit.ID]
		results = append(results, &BlendedResult{
			DocumentID:      hit.ID,
			Score:           Blend(text, pop, weight),
			ESScore:         hit.Score,
			KeywordScore:    text,
			PopularityScore: models.Clamp01(pop),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
