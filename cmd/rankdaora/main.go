// Package main is the RankDaora CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rankdaora/internal/cli"
	"github.com/hyperjump/rankdaora/internal/config"
	"github.com/hyperjump/rankdaora/internal/dataset"
	"github.com/hyperjump/rankdaora/internal/keyword"
	"github.com/hyperjump/rankdaora/internal/loader"
	"github.com/hyperjump/rankdaora/internal/models"
	"github.com/hyperjump/rankdaora/internal/popularity"
	"github.com/hyperjump/rankdaora/internal/search"
	"github.com/hyperjump/rankdaora/internal/server"
	"github.com/hyperjump/rankdaora/internal/storage"
	"github.com/hyperjump/rankdaora/internal/telemetry"
	"github.com/hyperjump/rankdaora/internal/watcher"
	"github.com/hyperjump/rankdaora/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rankdaora/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When neither file exists the built-in defaults are returned.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "load":
		runLoad()
	case "search":
		runSearch()
	case "curve":
		runCurve()
	case "status":
		runStatus()
	case "generate":
		runGenerate()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("rankdaora version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds a logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func parseFormat(s string) cli.SearchOutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "reload the dataset when the file changes (overrides dataset.watch)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("backend", cfg.Index.Backend),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Dataset.Watch || *watch {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		ld := components.Loader
		watchSvc := watcher.NewWatcher(cfg.Dataset.Path, func(path string) {
			summary, err := ld.Load(context.Background(), path, loader.Options{})
			if err != nil {
				logger.Warn("dataset reload failed", zap.String("path", path), zap.Error(err))
				return
			}
			logger.Info("dataset reloaded", zap.String("path", path), zap.Int("documents", summary.Documents))
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Engine,
		components.Loader,
		components.Storage,
		components.KeywordIndex,
		cfg,
		logger,
		components.Telemetry,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	datasetPath := fs.String("dataset", "", "JSONL dataset path (default from config)")
	recreate := fs.Bool("recreate-index", false, "drop stored and indexed documents before loading")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	path := cfg.Dataset.Path
	if *datasetPath != "" {
		path = *datasetPath
	}

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	summary, err := components.Loader.Load(context.Background(), path, loader.Options{Recreate: *recreate})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteLoadSummary(os.Stdout, summary, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: rankdaora search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are ranked by (1-w)*text + w*popularity, where w is --weight (default from config).
  • Use --weight 0 to rank by text relevance only.
  • Use --fuzzy to enable typo tolerance; it is also tried automatically when nothing matches.
  • Use --court to restrict results to one court.

Examples:
  rankdaora search direito tributario
  rankdaora search --weight 0.5 --limit 20 "habeas corpus"
  rankdaora search --court STJ --output json icms
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchDefaultsFromConfig loads config at path and returns the default result limit
// and minimum combined score. On load failure, returns 10 and 0.
func searchDefaultsFromConfig(path string) (limit int, minScore float64) {
	limit, minScore = 10, 0
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return limit, minScore
	}
	return cfg.Search.DefaultLimit, cfg.Search.MinScore
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultLimit, defaultMinScore := searchDefaultsFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = search the local store directly)")
	limit := fs.Int("limit", defaultLimit, "number of results")
	offset := fs.Int("offset", 0, "number of results to skip")
	minScore := fs.Float64("min-score", defaultMinScore, "minimum combined score")
	weight := fs.Float64("weight", -1, "popularity weight in [0,1] (negative = use config)")
	court := fs.String("court", "", "restrict results to this court")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	searchQuery := &models.SearchQuery{
		Query:        queryStr,
		Limit:        *limit,
		Offset:       *offset,
		MinScore:     *minScore,
		FuzzyEnabled: *fuzzyEnabled,
		Court:        *court,
	}
	if *weight >= 0 {
		w := *weight
		searchQuery.PopularityWeight = &w
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The server holds the Bleve and SQLite locks while running.
		res, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		cfg, _, logger, debugMode := setup(*configPathFlag, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debugMode)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		res, err := components.Engine.Search(context.Background(), searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// getJSON issues req and decodes a 200 JSON response into out.
func getJSON(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var response models.SearchResponse
	if err := getJSON(req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func runCurve() {
	fs := flag.NewFlagSet("curve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local store directly)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	var points []models.BiasPoint
	if *serverURL != "" {
		req, err := http.NewRequest(http.MethodGet, strings.TrimRight(*serverURL, "/")+"/api/v1/bias-curve", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Curve failed: %v\n", err)
			os.Exit(1)
		}
		var out struct {
			Positions []models.BiasPoint `json:"positions"`
		}
		if err := getJSON(req, &out); err != nil {
			fmt.Fprintf(os.Stderr, "Curve failed: %v\n", err)
			os.Exit(1)
		}
		points = out.Positions
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		bias, err := store.LoadBiasCurve(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Curve failed: %v\n", err)
			os.Exit(1)
		}
		points = models.BiasCurve(bias)
	}
	if err := cli.WriteBiasCurve(os.Stdout, points, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents        int64                  `json:"documents"`
	IndexedDocuments *uint64                `json:"indexed_documents,omitempty"`
	Index            string                 `json:"index"`
	LastLoad         *storage.LoadRun       `json:"last_load,omitempty"`
	DiskUsageBytes   *int64                 `json:"disk_usage_bytes,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	var status statusResponse
	if *serverURL != "" {
		req, err := http.NewRequest(http.MethodGet, strings.TrimRight(*serverURL, "/")+"/api/v1/status", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		if err := getJSON(req, &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger, debugMode := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debugMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := writeStatus(os.Stdout, &status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (statusResponse, error) {
	docCount, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return statusResponse{}, fmt.Errorf("count documents: %w", err)
	}
	status := statusResponse{
		Documents: docCount,
		Index:     cfg.Index.Backend,
		Config: map[string]interface{}{
			"backend":           cfg.Index.Backend,
			"database_path":     cfg.Storage.DatabasePath,
			"dataset_path":      cfg.Dataset.Path,
			"popularity_weight": cfg.Search.Weight(),
		},
	}
	if n, err := c.KeywordIndex.DocCount(ctx); err == nil {
		status.IndexedDocuments = &n
	}
	if run, err := c.Storage.LastLoadRun(ctx); err == nil {
		status.LastLoad = run
	}
	paths := []string{cfg.Storage.DatabasePath}
	if cfg.Index.Backend == config.BackendBleve {
		paths = append(paths, cfg.Index.BlevePath)
	}
	if n, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &n
	}
	return status, nil
}

func writeStatus(w io.Writer, status *statusResponse, format cli.SearchOutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "documents:          %d   # documents in the store\n", status.Documents)
	if status.IndexedDocuments != nil {
		fmt.Fprintf(w, "indexed_documents:  %d   # documents in the keyword index\n", *status.IndexedDocuments)
	}
	fmt.Fprintf(w, "index:              %s\n", status.Index)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + indices on disk\n", *status.DiskUsageBytes)
	}
	if run := status.LastLoad; run != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# last load")
		fmt.Fprintf(w, "dataset:            %s\n", run.Dataset)
		fmt.Fprintf(w, "started_at:         %s\n", run.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "documents:          %d\n", run.Documents)
		fmt.Fprintf(w, "prior:              %.6f\n", run.Prior)
	}
	if len(status.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		for _, key := range []string{"backend", "database_path", "bleve_index_path", "elasticsearch_url", "dataset_path", "popularity_weight"} {
			if v, ok := status.Config[key]; ok {
				fmt.Fprintf(w, "%-19s %v\n", key+":", v)
			}
		}
	}
	return nil
}

func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	size := fs.Int("size", dataset.DefaultGenerateSize, "number of documents")
	seed := fs.Int64("seed", dataset.DefaultGenerateSeed, "random seed")
	reference := fs.String("reference", "", "reference time (RFC 3339) for dates and clicks; default now")
	out := fs.String("out", "", "output path (default stdout)")
	_ = fs.Parse(os.Args[2:])

	opts := dataset.GenerateOptions{Size: *size, Seed: *seed}
	if *reference != "" {
		ref, err := time.Parse(time.RFC3339, *reference)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --reference: %v\n", err)
			os.Exit(1)
		}
		opts.Reference = ref
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
			os.Exit(1)
		}
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	n, err := dataset.Generate(w, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generate failed: %v\n", err)
		os.Exit(1)
	}
	if *out != "" {
		fmt.Printf("Wrote %d document(s) to %s\n", n, *out)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "config file to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// writeDefaultConfig saves the built-in defaults to path, refusing to overwrite unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	return config.Save(path, &cfg)
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Pipeline     *popularity.Pipeline
	Loader       *loader.Loader
	Engine       *search.Engine
	Telemetry    *telemetry.Provider
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// newKeywordIndex opens the configured keyword backend.
func newKeywordIndex(cfg *config.Config, logger *zap.Logger) (keyword.KeywordIndex, error) {
	switch cfg.Index.Backend {
	case config.BackendElasticsearch:
		esCfg := cfg.Index.Elasticsearch
		return keyword.NewElasticsearchIndex(keyword.ElasticsearchConfig{
			URL:            esCfg.URL,
			Index:          esCfg.Index,
			Username:       esCfg.Username,
			Password:       esCfg.Password,
			MaxRetries:     esCfg.MaxRetries,
			RequestTimeout: esCfg.RequestTimeout(),
		}, keyword.WithElasticsearchLogger(logger))
	case config.BackendBleve, "":
		return keyword.NewBleveIndex(cfg.Index.BlevePath)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	keywordIndex, err := newKeywordIndex(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	if logger != nil {
		logger.Info("keyword index initialized",
			zap.String("backend", cfg.Index.Backend),
			zap.String("bleve_path", cfg.Index.BlevePath),
			zap.String("elasticsearch_index", cfg.Index.Elasticsearch.Index))
	}

	provider := telemetry.NewProvider()

	var debugLogger *zap.Logger
	if debug {
		debugLogger = logger
	}
	pipeline := popularity.NewPipeline(popularity.PipelineConfig{
		TauHours:    cfg.Popularity.TauHours,
		Pseudocount: cfg.Popularity.Pseudocount,
		Epsilon:     cfg.Popularity.Epsilon,
		Workers:     cfg.Popularity.Workers,
	}, popularity.WithLogger(debugLogger))

	ld := loader.NewLoader(store, keywordIndex, pipeline,
		loader.WithLogger(logger),
		loader.WithTelemetry(provider))
	engine := search.NewEngine(store, keywordIndex, &cfg.Search,
		search.WithLogger(debugLogger),
		search.WithTelemetry(provider))

	return &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Pipeline:     pipeline,
		Loader:       ld,
		Engine:       engine,
		Telemetry:    provider,
	}, nil
}

func printUsage() {
	fmt.Println(`rankdaora - Popularity-aware search over legal documents

Usage:
  rankdaora server [flags]           Start the HTTP server
  rankdaora load [flags]             Score a JSONL dataset and index it
  rankdaora search [flags] <query>   Search documents
  rankdaora curve [flags]            Show the position-bias curve
  rankdaora status [flags]           Show store/index status
  rankdaora generate [flags]         Write a synthetic JSONL dataset
  rankdaora init [flags]             Write a default config file
  rankdaora version                  Show version
  rankdaora help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/rankdaora/config.yaml)
  --debug            Enable debug logging
  --watch            Reload the dataset when it changes

Load Flags:
  --config string    Config file path
  --dataset string   JSONL dataset path (default from config)
  --recreate-index   Drop stored and indexed documents first
  --output string    Output format: text or json (default: text)

Search Flags:
  --config string     Config file path (for direct mode; also used for default limit and min score)
  --server string     Server URL. Empty (default) searches the local store directly.
  --limit int         Number of results (default from config, or 10)
  --offset int        Results to skip
  --min-score float   Minimum combined score (default from config, or 0)
  --weight float      Popularity weight in [0,1] (default from config)
  --court string      Restrict to one court
  --fuzzy             Enable fuzzy matching for typo tolerance
  --output string     Output format: text, compact, or json (default: text)

Curve/Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL. Empty (default) reads the local store directly.
  --output string    Output format (default: text)

Generate Flags:
  --size int          Number of documents (default: 120)
  --seed int          Random seed (default: 2025)
  --reference string  Reference time in RFC 3339 (default: now)
  --out string        Output path (default: stdout)

Environment:
  ELASTICSEARCH_URL, ELASTICSEARCH_INDEX, RESULTS_SIZE, ES_REQUEST_TIMEOUT

Examples:
  rankdaora init
  rankdaora generate --out data/documents.jsonl
  rankdaora load --dataset data/documents.jsonl --recreate-index
  rankdaora search direito tributario
  rankdaora search --server http://localhost:8080 --output json "habeas corpus"
  rankdaora curve
  rankdaora server --watch`)
}
