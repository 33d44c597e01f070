package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "/tmp/test.db"
popularity:
  tau_hours: 48
search:
  popularity_weight: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != "/tmp/test.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Popularity.TauHours != 48 {
		t.Errorf("tau_hours = %v, want 48", cfg.Popularity.TauHours)
	}
	if cfg.Search.Weight() != 0 {
		t.Errorf("explicit zero popularity weight should be kept, got %v", cfg.Search.Weight())
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/rankdaora.db"
index:
  bleve_path: "./data/indices/bleve"
dataset:
  path: "./data/documents.jsonl"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "rankdaora.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "indices", "bleve"); cfg.Index.BlevePath != want {
		t.Errorf("bleve_path = %s, want %s", cfg.Index.BlevePath, want)
	}
	if want := filepath.Join(dir, "data", "documents.jsonl"); cfg.Dataset.Path != want {
		t.Errorf("dataset path = %s, want %s", cfg.Dataset.Path, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "index:\n  backend: solr\n"},
		{"weight above one", "search:\n  popularity_weight: 1.5\n"},
		{"default above max", "search:\n  default_limit: 50\n  max_limit: 20\n"},
		{"negative tau", "popularity:\n  tau_hours: -1\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Index.Backend != BackendBleve {
		t.Errorf("default backend: got %s", cfg.Index.Backend)
	}
	if cfg.Index.Elasticsearch.URL != "http://localhost:9200" || cfg.Index.Elasticsearch.Index != "legal-docs" {
		t.Errorf("default elasticsearch: %+v", cfg.Index.Elasticsearch)
	}
	if cfg.Index.Elasticsearch.RequestTimeout() != 10*time.Second {
		t.Errorf("default timeout: %v", cfg.Index.Elasticsearch.RequestTimeout())
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("default limits: %+v", cfg.Search)
	}
	if cfg.Search.Weight() != DefaultPopularityWeight {
		t.Errorf("default weight: got %v", cfg.Search.Weight())
	}
	if !cfg.Search.AutoFuzzyOrDefault() {
		t.Error("auto fuzzy should default to true")
	}
	if cfg.Search.TitleBoost != 2.0 {
		t.Errorf("default title_boost: got %f, want 2.0", cfg.Search.TitleBoost)
	}
	if cfg.Popularity.TauHours != 168 || cfg.Popularity.Pseudocount != 10 || cfg.Popularity.Epsilon != 1e-6 {
		t.Errorf("default popularity: %+v", cfg.Popularity)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ELASTICSEARCH_URL":   " http://es:9200 ",
		"ELASTICSEARCH_INDEX": "juris",
		"RESULTS_SIZE":        "25",
		"ES_REQUEST_TIMEOUT":  "30",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Elasticsearch.URL != "http://es:9200" || cfg.Index.Elasticsearch.Index != "juris" {
		t.Errorf("elasticsearch overrides: %+v", cfg.Index.Elasticsearch)
	}
	if cfg.Search.DefaultLimit != 25 {
		t.Errorf("RESULTS_SIZE override: %d", cfg.Search.DefaultLimit)
	}
	if cfg.Index.Elasticsearch.RequestTimeoutSeconds != 30 {
		t.Errorf("ES_REQUEST_TIMEOUT override: %d", cfg.Index.Elasticsearch.RequestTimeoutSeconds)
	}
}

func TestApplyEnv_outOfRange(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RESULTS_SIZE", "0"},
		{"RESULTS_SIZE", "101"},
		{"RESULTS_SIZE", "ten"},
		{"ES_REQUEST_TIMEOUT", "61"},
		{"ES_REQUEST_TIMEOUT", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == tt.key {
					return tt.value, true
				}
				return "", false
			}
			cfg := &Config{}
			ApplyDefaults(cfg)
			if err := ApplyEnv(cfg, lookup); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_envOverride(t *testing.T) {
	t.Setenv("ELASTICSEARCH_INDEX", "from-env")
	t.Setenv("RESULTS_SIZE", "7")
	cfg, err := Load(writeConfig(t, "index:\n  elasticsearch:\n    index: from-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Elasticsearch.Index != "from-env" {
		t.Errorf("env should override file, got %s", cfg.Index.Elasticsearch.Index)
	}
	if cfg.Search.DefaultLimit != 7 {
		t.Errorf("default limit = %d, want 7", cfg.Search.DefaultLimit)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Search.Weight() != DefaultPopularityWeight {
		t.Errorf("loaded weight: got %v", loaded.Search.Weight())
	}
}
