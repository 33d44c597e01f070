package config

import "github.com/hyperjump/rankdaora/internal/popularity"

// DefaultPopularityWeight is the share of the combined score given to popularity.
const DefaultPopularityWeight = 0.3

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/rankdaora/data/db/rankdaora.db"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendBleve
	}
	if cfg.Index.BlevePath == "" {
		cfg.Index.BlevePath = "/usr/local/var/rankdaora/data/indices/bleve"
	}
	if cfg.Index.Elasticsearch.URL == "" {
		cfg.Index.Elasticsearch.URL = "http://localhost:9200"
	}
	if cfg.Index.Elasticsearch.Index == "" {
		cfg.Index.Elasticsearch.Index = "legal-docs"
	}
	if cfg.Index.Elasticsearch.MaxRetries == 0 {
		cfg.Index.Elasticsearch.MaxRetries = 3
	}
	if cfg.Index.Elasticsearch.RequestTimeoutSeconds == 0 {
		cfg.Index.Elasticsearch.RequestTimeoutSeconds = 10
	}
	if cfg.Popularity.TauHours == 0 {
		cfg.Popularity.TauHours = popularity.DefaultDecayHours
	}
	if cfg.Popularity.Pseudocount == 0 {
		cfg.Popularity.Pseudocount = popularity.DefaultPseudocount
	}
	if cfg.Popularity.Epsilon == 0 {
		cfg.Popularity.Epsilon = popularity.Epsilon
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2.0
	}
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = "/usr/local/var/rankdaora/data/documents.jsonl"
	}
}
