package keyword

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/rankdaora/internal/models"
)

// bleveBatchSize caps the number of documents per Bleve batch.
const bleveBatchSize = 500

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	mu    sync.RWMutex
	path  string
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the
// index in memory.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	b := &BleveIndex{path: path}
	if path == "" {
		index, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		b.index = index
		return b, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		b.index = index
		return b, nil
	}

	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = index
	return b, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so Portuguese terms are
	// not mangled by the English stemmer.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("court", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("date", keywordFieldMapping)

	numericFieldMapping := bleve.NewNumericFieldMapping()
	for _, field := range []string{
		"click_count", "click_position", "click_impression", "click_count_raw",
		"click_count_corrected", "click_impression_adjusted",
		"popularity_raw", "popularity_log", "popularity_percentile",
	} {
		docMapping.AddFieldMappingsAt(field, numericFieldMapping)
	}
	// click_timestamp is kept in SQLite only.
	docMapping.AddSubDocumentMapping("click_timestamp", bleve.NewDocumentDisabledMapping())

	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// Index indexes documents in batches.
func (b *BleveIndex) Index(ctx context.Context, docs []*models.Document) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for start := 0; start < len(docs); start += bleveBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + bleveBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := b.index.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.ID, newIndexedDocument(doc)); err != nil {
				return fmt.Errorf("failed to batch document %s: %w", doc.ID, err)
			}
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
	}
	return nil
}

// Search runs a boosted match over title and content and returns up to limit
// results. With fuzzy matching enabled each term may be within the configured edit
// distance. A court in opts restricts hits to that court.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	req := bleve.NewSearchRequest(buildQuery(query, opts))
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func buildQuery(query string, opts *SearchOptions) blevequery.Query {
	fuzziness := opts.fuzziness()

	tq := bleve.NewMatchQuery(query)
	tq.SetField("title")
	tq.SetBoost(opts.titleBoost())
	tq.SetFuzziness(fuzziness)

	cq := bleve.NewMatchQuery(query)
	cq.SetField("content")
	cq.SetFuzziness(fuzziness)

	var q blevequery.Query = bleve.NewDisjunctionQuery(tq, cq)
	if court := opts.court(); court != "" {
		fq := bleve.NewTermQuery(court)
		fq.SetField("court")
		q = bleve.NewConjunctionQuery(q, fq)
	}
	return q
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Delete(id)
}

// Reset closes the index, removes it from disk and creates an empty one.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close Bleve index: %w", err)
	}
	var (
		index bleve.Index
		err   error
	)
	if b.path == "" {
		index, err = bleve.NewMemOnly(buildMapping())
	} else {
		if rmErr := os.RemoveAll(b.path); rmErr != nil {
			return fmt.Errorf("failed to remove Bleve index: %w", rmErr)
		}
		index, err = bleve.New(b.path, buildMapping())
	}
	if err != nil {
		return fmt.Errorf("failed to recreate Bleve index: %w", err)
	}
	b.index = index
	return nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount(ctx context.Context) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}
