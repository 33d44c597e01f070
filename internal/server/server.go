// Package server provides the HTTP API for RankDaora.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/rankdaora/internal/config"
	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/loader"
	"github.com/hyperjump/rankdaora/internal/search"
	"github.com/hyperjump/rankdaora/internal/storage"
	"github.com/hyperjump/rankdaora/internal/telemetry"
)

// Server is the HTTP server for the RankDaora API.
type Server struct {
	engine       *search.Engine
	loader       *loader.Loader
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	config       *config.Config
	telemetry    *telemetry.Provider
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. ld and provider may be nil,
// which disables reloads and the metrics endpoint respectively.
func NewServer(
	engine *search.Engine,
	ld *loader.Loader,
	storage storage.Storage,
	keywordIndex keyword.KeywordIndex,
	cfg *config.Config,
	logger *zap.Logger,
	provider *telemetry.Provider,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:       engine,
		loader:       ld,
		storage:      storage,
		keywordIndex: keywordIndex,
		config:       cfg,
		telemetry:    provider,
		logger:       logger,
	}
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleQuerySearch)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/api/v1/bias-curve", s.handleBiasCurve)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reload", s.handleReload)
	if s.telemetry != nil {
		r.Handle("/metrics", s.telemetry.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// indexName is the name reported by the health endpoint.
func (s *Server) indexName() string {
	if s.config.Index.Backend == config.BackendElasticsearch {
		return s.config.Index.Elasticsearch.Index
	}
	return config.BackendBleve
}
