// Package config provides configuration loading and structs for the RankDaora server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendBleve         = "bleve"
	BackendElasticsearch = "elasticsearch"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Popularity PopularityConfig `yaml:"popularity"`
	Search     SearchConfig     `yaml:"search"`
	Dataset    DatasetConfig    `yaml:"dataset"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the document database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// IndexConfig selects and configures the keyword backend.
type IndexConfig struct {
	Backend       string              `yaml:"backend"`
	BlevePath     string              `yaml:"bleve_path"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
}

// ElasticsearchConfig holds Elasticsearch connection settings.
type ElasticsearchConfig struct {
	URL                   string `yaml:"url"`
	Index                 string `yaml:"index"`
	Username              string `yaml:"username"`
	Password              string `yaml:"password"`
	MaxRetries            int    `yaml:"max_retries"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// RequestTimeout returns the request timeout as a duration.
func (e ElasticsearchConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutSeconds) * time.Second
}

// PopularityConfig holds scoring pipeline parameters.
type PopularityConfig struct {
	TauHours    float64 `yaml:"tau_hours"`
	Pseudocount float64 `yaml:"pseudocount"`
	Epsilon     float64 `yaml:"epsilon"`
	Workers     int     `yaml:"workers"`
}

// SearchConfig holds query and ranking settings.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	TopKCandidates int `yaml:"top_k_candidates"`
	// PopularityWeight is the share of the combined score taken by the popularity
	// percentile. Nil means the default; 0 ranks by text relevance only.
	PopularityWeight *float64 `yaml:"popularity_weight"`
	TitleBoost       float64  `yaml:"title_boost"`
	MinScore         float64  `yaml:"min_score"`
	// AutoFuzzy retries with fuzzy matching when an exact search finds nothing.
	AutoFuzzy *bool `yaml:"auto_fuzzy"`
}

// Weight returns the popularity weight, falling back to DefaultPopularityWeight.
func (s *SearchConfig) Weight() float64 {
	if s.PopularityWeight != nil {
		return *s.PopularityWeight
	}
	return DefaultPopularityWeight
}

// AutoFuzzyOrDefault returns whether auto fuzzy retry is on; defaults to true when unset.
func (s *SearchConfig) AutoFuzzyOrDefault() bool {
	if s.AutoFuzzy != nil {
		return *s.AutoFuzzy
	}
	return true
}

// DatasetConfig holds the JSONL dataset location and reload behavior.
type DatasetConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Load reads and parses the config file at path, expands paths, applies defaults and
// environment overrides, and validates the result.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Index.BlevePath = expandPath(cfg.Index.BlevePath, configDir)
	cfg.Dataset.Path = expandPath(cfg.Dataset.Path, configDir)

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with defaults and environment overrides applied.
func Default() (*Config, error) {
	var cfg Config
	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. Recognized variables are
// ELASTICSEARCH_URL, ELASTICSEARCH_INDEX, RESULTS_SIZE (1..100) and
// ES_REQUEST_TIMEOUT in seconds (1..60).
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookupTrimmed(lookup, "ELASTICSEARCH_URL"); ok {
		cfg.Index.Elasticsearch.URL = v
	}
	if v, ok := lookupTrimmed(lookup, "ELASTICSEARCH_INDEX"); ok {
		cfg.Index.Elasticsearch.Index = v
	}
	if v, ok := lookupTrimmed(lookup, "RESULTS_SIZE"); ok {
		n, err := intInRange("RESULTS_SIZE", v, 1, 100)
		if err != nil {
			return err
		}
		cfg.Search.DefaultLimit = n
	}
	if v, ok := lookupTrimmed(lookup, "ES_REQUEST_TIMEOUT"); ok {
		n, err := intInRange("ES_REQUEST_TIMEOUT", v, 1, 60)
		if err != nil {
			return err
		}
		cfg.Index.Elasticsearch.RequestTimeoutSeconds = n
	}
	return nil
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func intInRange(name, v string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be within [%d, %d], got %d", name, lo, hi, n)
	}
	return n, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendBleve, BackendElasticsearch:
	default:
		return fmt.Errorf("unknown index backend %q (want %q or %q)", c.Index.Backend, BackendBleve, BackendElasticsearch)
	}
	if c.Index.Backend == BackendElasticsearch && c.Index.Elasticsearch.Index == "" {
		return fmt.Errorf("index.elasticsearch.index is required")
	}
	if w := c.Search.Weight(); w < 0 || w > 1 {
		return fmt.Errorf("search.popularity_weight must be within [0, 1], got %v", w)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Popularity.TauHours < 0 || c.Popularity.Pseudocount < 0 || c.Popularity.Epsilon < 0 {
		return fmt.Errorf("popularity parameters must not be negative")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
