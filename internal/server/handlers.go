package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/rankdaora/internal/config"
	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/loader"
	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/search"
	"github.com/hyperjump/rankdaora/internal/storage"
)

// searchHit is a document flattened together with its ranking scores.
type searchHit struct {
	*models.Document
	ESScore         float64 `json:"es_score"`
	PopularityScore float64 `json:"popularity_score"`
	CombinedScore   float64 `json:"combined_score"`
}

type querySearchResponse struct {
	Query   string       `json:"query"`
	Results []*searchHit `json:"results"`
}

// handleQuerySearch serves GET /search?query=...&size=... with flat hits.
func (s *Server) handleQuerySearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := models.SearchQuery{Query: strings.TrimSpace(params.Get("query"))}
	if query.Query == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "query must not be empty")
		return
	}
	if raw := params.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > 100 {
			s.respondError(w, http.StatusUnprocessableEntity, "size must be an integer between 1 and 100")
			return
		}
		query.Limit = size
	}
	query.Court = params.Get("court")

	response, ok := s.runSearch(w, r, &query)
	if !ok {
		return
	}
	out := querySearchResponse{Query: response.Query, Results: make([]*searchHit, 0, len(response.Results))}
	for _, res := range response.Results {
		out.Results = append(out.Results, &searchHit{
			Document:        res.Document,
			ESScore:         res.ESScore,
			PopularityScore: res.PopularityScore,
			CombinedScore:   res.Score,
		})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	response, ok := s.runSearch(w, r, &query)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// runSearch executes the query and writes the error response on failure.
func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) (*models.SearchResponse, bool) {
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), query)
	switch {
	case err == nil:
		return response, true
	case errors.Is(err, search.ErrInvalidQuery):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, keyword.ErrIndexNotFound):
		s.respondError(w, http.StatusNotFound, "index '"+s.indexName()+"' not found")
	default:
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "search backend is unavailable")
	}
	return nil, false
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("get document failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleBiasCurve(w http.ResponseWriter, r *http.Request) {
	bias, err := s.storage.LoadBiasCurve(r.Context())
	if err != nil {
		s.logger.Error("load bias curve failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"positions": models.BiasCurve(bias)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.keywordIndex.(keyword.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("health: backend ping failed", zap.Error(err))
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"index":  s.indexName(),
			})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "index": s.indexName()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"index":     s.indexName(),
	}
	if n, err := s.keywordIndex.DocCount(ctx); err == nil {
		resp["indexed_documents"] = n
	} else {
		s.logger.Warn("status: keyword doc count failed", zap.Error(err))
	}
	if run, err := s.storage.LastLoadRun(ctx); err == nil {
		resp["last_load"] = run
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("status: last load run failed", zap.Error(err))
	}

	configInfo := map[string]interface{}{
		"backend":           s.config.Index.Backend,
		"database_path":     s.config.Storage.DatabasePath,
		"dataset_path":      s.config.Dataset.Path,
		"popularity_weight": s.config.Search.Weight(),
		"tau_hours":         s.config.Popularity.TauHours,
		"pseudocount":       s.config.Popularity.Pseudocount,
	}
	paths := []string{s.config.Storage.DatabasePath}
	if s.config.Index.Backend == "" || s.config.Index.Backend == config.BackendBleve {
		configInfo["bleve_index_path"] = s.config.Index.BlevePath
		paths = append(paths, s.config.Index.BlevePath)
	} else {
		configInfo["elasticsearch_url"] = s.config.Index.Elasticsearch.URL
	}
	if usage, err := storage.DiskUsage(paths...); err == nil {
		resp["disk_usage_bytes"] = usage.Total
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

type reloadRequest struct {
	Recreate bool `json:"recreate"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		s.respondError(w, http.StatusNotImplemented, "reload not enabled")
		return
	}
	if s.config.Dataset.Path == "" {
		s.respondError(w, http.StatusBadRequest, "no dataset path configured")
		return
	}
	var req reloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Info("reload request", zap.String("dataset", s.config.Dataset.Path), zap.Bool("recreate", req.Recreate))
	summary, err := s.loader.Load(r.Context(), s.config.Dataset.Path, loader.Options{Recreate: req.Recreate})
	if err != nil {
		s.logger.Error("reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
