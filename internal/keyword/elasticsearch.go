package keyword

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/hyperjump/rankdaora/internal/models"
)

// esBulkSize caps the number of documents per _bulk request.
const esBulkSize = 500

// ElasticsearchConfig configures the Elasticsearch backend.
type ElasticsearchConfig struct {
	URL            string
	Index          string
	Username       string
	Password       string
	MaxRetries     int
	RequestTimeout time.Duration
	// Transport overrides the HTTP transport; nil uses the client default.
	Transport http.RoundTripper
}

// ElasticsearchIndex implements KeywordIndex on an Elasticsearch index.
type ElasticsearchIndex struct {
	client  *es.Client
	index   string
	timeout time.Duration
	logger  *zap.Logger
}

// ElasticsearchOption configures an ElasticsearchIndex.
type ElasticsearchOption func(*ElasticsearchIndex)

// WithElasticsearchLogger sets the logger used for bulk failures.
func WithElasticsearchLogger(l *zap.Logger) ElasticsearchOption {
	return func(e *ElasticsearchIndex) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewElasticsearchIndex creates a client for cfg. It does not contact the cluster;
// call Ping to verify connectivity.
func NewElasticsearchIndex(cfg ElasticsearchConfig, opts ...ElasticsearchOption) (*ElasticsearchIndex, error) {
	if cfg.Index == "" {
		return nil, fmt.Errorf("elasticsearch index name is required")
	}
	address := cfg.URL
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	clientConfig := es.Config{
		Addresses:  []string{address},
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	}
	if cfg.Username != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	e := &ElasticsearchIndex{
		client:  client,
		index:   cfg.Index,
		timeout: timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Ping verifies the cluster is reachable.
func (e *ElasticsearchIndex) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: ping returned %s", ErrUnavailable, res.Status())
	}
	return nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (e *ElasticsearchIndex) EnsureIndex(ctx context.Context) error {
	exists, err := e.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return e.createIndex(ctx)
}

// Reset deletes the index if present and recreates it with the document mapping.
func (e *ElasticsearchIndex) Reset(ctx context.Context) error {
	exists, err := e.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		res, err := e.client.Indices.Delete([]string{e.index}, e.client.Indices.Delete.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: failed to delete index: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return responseError("delete index", res)
		}
	}
	return e.createIndex(ctx)
}

func (e *ElasticsearchIndex) indexExists(ctx context.Context) (bool, error) {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("%w: failed to check index existence: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, responseError("check index", res)
	}
	return true, nil
}

func (e *ElasticsearchIndex) createIndex(ctx context.Context) error {
	body, err := json.Marshal(indexMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	res, err := e.client.Indices.Create(e.index,
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create index: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

func indexMapping() map[string]interface{} {
	prop := func(typ string) map[string]interface{} { return map[string]interface{}{"type": typ} }
	text := map[string]interface{}{"type": "text", "analyzer": "standard"}
	date := map[string]interface{}{"type": "date", "ignore_malformed": true}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":                        prop("keyword"),
				"title":                     text,
				"content":                   text,
				"court":                     prop("keyword"),
				"date":                      date,
				"es_score":                  prop("float"),
				"combined_score":            prop("float"),
				"click_count":               prop("integer"),
				"click_position":            prop("integer"),
				"click_impression":          prop("integer"),
				"click_timestamp":           date,
				"click_count_raw":           prop("integer"),
				"click_count_corrected":     prop("float"),
				"click_impression_adjusted": prop("float"),
				"popularity_raw":            prop("float"),
				"popularity_log":            prop("float"),
				"popularity_percentile":     prop("float"),
			},
		},
	}
}

// Index upserts documents through the _bulk API and refreshes the index so they are
// immediately searchable.
func (e *ElasticsearchIndex) Index(ctx context.Context, docs []*models.Document) error {
	for start := 0; start < len(docs); start += esBulkSize {
		end := start + esBulkSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := e.bulk(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *ElasticsearchIndex) bulk(ctx context.Context, docs []*models.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": e.index, "_id": doc.ID},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode bulk metadata: %w", err)
		}
		if err := enc.Encode(newIndexedDocument(doc)); err != nil {
			return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
		}
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(e.index),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: bulk request failed: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("bulk", res)
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !result.Errors {
		return nil
	}
	failed := 0
	for _, item := range result.Items {
		for _, op := range item {
			if op.Status >= 300 {
				failed++
				e.logger.Warn("Bulk item failed",
					zap.String("id", op.ID),
					zap.Int("status", op.Status),
					zap.String("type", op.Error.Type),
					zap.String("reason", op.Error.Reason))
			}
		}
	}
	return fmt.Errorf("bulk indexing failed for %d of %d documents", failed, len(docs))
}

// Search runs a multi_match over title (boosted) and content.
func (e *ElasticsearchIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	body, err := json.Marshal(buildSearchBody(query, limit, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithTimeout(e.timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search request failed: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	out := make([]*KeywordResult, len(result.Hits.Hits))
	for i, hit := range result.Hits.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func buildSearchBody(query string, limit int, opts *SearchOptions) map[string]interface{} {
	multiMatch := map[string]interface{}{
		"query":  query,
		"fields": []string{fmt.Sprintf("title^%g", opts.titleBoost()), "content"},
	}
	if f := opts.fuzziness(); f > 0 {
		multiMatch["fuzziness"] = f
	}
	var q interface{} = map[string]interface{}{"multi_match": multiMatch}
	if court := opts.court(); court != "" {
		q = map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   q,
				"filter": map[string]interface{}{"term": map[string]interface{}{"court": court}},
			},
		}
	}
	return map[string]interface{}{
		"size":    limit,
		"query":   q,
		"_source": false,
	}
}

// Delete removes a document. Missing documents are not an error.
func (e *ElasticsearchIndex) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.index, id,
		e.client.Delete.WithContext(ctx),
		e.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: delete request failed: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return responseError("delete", res)
	}
	return nil
}

// DocCount returns the number of documents in the index.
func (e *ElasticsearchIndex) DocCount(ctx context.Context) (uint64, error) {
	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.index),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: count request failed: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("count", res)
	}
	var result struct {
		Count uint64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return result.Count, nil
}

// Close releases idle connections held by the client transport.
func (e *ElasticsearchIndex) Close() error {
	if t, ok := e.client.Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// responseError converts an error response into an error, mapping a missing index
// to ErrIndexNotFound.
func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	if payload.Error.Type == "index_not_found_exception" {
		return fmt.Errorf("%s: %w", op, ErrIndexNotFound)
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s returned [%d]: %s", ErrUnavailable, op, res.StatusCode, string(body))
	}
	return fmt.Errorf("%s returned [%d]: %s", op, res.StatusCode, string(body))
}
