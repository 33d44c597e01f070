// Package cli provides output formatting for the RankDaora CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/rankdaora/internal/loader"
	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/pkg/utils"
)

// SearchOutputFormat is the format for command output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// snippetLen bounds the content shown per result in text output.
const snippetLen = 200

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\n", r.Rank, r.Score, r.Document.ID, r.Document.Court, utils.OneLine(r.Document.Title))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms", response.Total, response.QueryTime)
	if response.AutoFuzzy {
		fmt.Fprint(w, " (fuzzy matching applied)")
	}
	fmt.Fprint(w, "\n\n")
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	doc := result.Document
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f (Text: %.4f, Popularity: %.4f, ES: %.4f)\n",
		result.Rank, result.Score, result.KeywordScore, result.PopularityScore, result.ESScore)
	fmt.Fprintf(w, "ID: %s\n", doc.ID)
	fmt.Fprintf(w, "Title: %s\n", doc.Title)
	fmt.Fprintf(w, "Court: %s | Date: %s | Clicks: %d\n", doc.Court, doc.Date, doc.ClickCount)
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(utils.OneLine(doc.Content), snippetLen))
	fmt.Fprintln(w)
}

// WriteBiasCurve writes the position-bias curve to w.
func WriteBiasCurve(w io.Writer, points []models.BiasPoint, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, map[string]interface{}{"positions": points})
	case OutputCompact:
		for _, p := range points {
			fmt.Fprintf(w, "%d\t%.6f\n", p.Position, p.Probability)
		}
		return nil
	default:
		if len(points) == 0 {
			fmt.Fprintln(w, "No position-bias data; run a load first.")
			return nil
		}
		fmt.Fprintf(w, "%-10s %12s %10s %12s\n", "position", "impressions", "clicks", "probability")
		for _, p := range points {
			fmt.Fprintf(w, "%-10d %12d %10d %12.6f\n", p.Position, p.Impressions, p.Clicks, p.Probability)
		}
		return nil
	}
}

// WriteLoadSummary writes the outcome of a dataset load to w.
func WriteLoadSummary(w io.Writer, s *loader.Summary, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	if s.Recreated {
		fmt.Fprintln(w, "Recreated document store and keyword index.")
	}
	fmt.Fprintf(w, "Loaded %d document(s) from %s in %s\n", s.Documents, s.Dataset, s.Duration.Round(time.Millisecond))
	if s.Documents == 0 {
		return nil
	}
	fmt.Fprintf(w, "bias signals:    %d across %d position(s)\n", s.Ingested, s.Positions)
	fmt.Fprintf(w, "corpus prior:    %.6f\n", s.Prior)
	fmt.Fprintf(w, "reference time:  %s\n", s.ReferenceTime.Format(time.RFC3339))
	if s.InvalidTimestamps > 0 {
		fmt.Fprintf(w, "bad timestamps:  %d (scored at the reference time)\n", s.InvalidTimestamps)
	}
	return nil
}
