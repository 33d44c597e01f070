// Package telemetry exposes Prometheus metrics and tracing spans for loads and searches.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "rankdaora"
	namespace   = "rankdaora"
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	// Load metrics
	LoadRuns          *prometheus.CounterVec
	LoadDuration      prometheus.Histogram
	DocumentsLoaded   prometheus.Counter
	CorpusDocuments   prometheus.Gauge
	CorpusPrior       prometheus.Gauge
	BiasPositions     prometheus.Gauge
	IngestedSignals   prometheus.Gauge
	LastLoadTimestamp prometheus.Gauge

	// Search metrics
	Searches       *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram
}

// Provider bundles metrics, the registry they live in and a tracer.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider creates a provider backed by its own registry, which also carries the
// Go runtime and process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  newMetrics(reg),
		registry: reg,
	}
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoadRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_runs_total",
			Help:      "Dataset loads by result.",
		}, []string{"result"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to read, score and index a dataset.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DocumentsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_loaded_total",
			Help:      "Documents scored and indexed across all loads.",
		}),
		CorpusDocuments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_documents",
			Help:      "Documents in the most recent load.",
		}),
		CorpusPrior: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_prior",
			Help:      "Corpus-wide corrected click-through prior of the most recent load.",
		}),
		BiasPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bias_positions",
			Help:      "Distinct positions in the position-bias curve.",
		}),
		IngestedSignals: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bias_ingested_signals",
			Help:      "Signals that contributed to the position-bias curve in the most recent load.",
		}),
		LastLoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_load_timestamp_seconds",
			Help:      "Unix time of the most recent successful load.",
		}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search requests by result.",
		}, []string{"result"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search latency including popularity blending.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Results returned per search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
}

// LoadStats describes a completed load.
type LoadStats struct {
	Documents int
	Ingested  int
	Positions int
	Prior     float64
	Duration  time.Duration
}

// RecordLoad records a successful load.
func (p *Provider) RecordLoad(ctx context.Context, s LoadStats) {
	p.Metrics.LoadRuns.WithLabelValues("success").Inc()
	p.Metrics.LoadDuration.Observe(s.Duration.Seconds())
	p.Metrics.DocumentsLoaded.Add(float64(s.Documents))
	p.Metrics.CorpusDocuments.Set(float64(s.Documents))
	p.Metrics.CorpusPrior.Set(s.Prior)
	p.Metrics.BiasPositions.Set(float64(s.Positions))
	p.Metrics.IngestedSignals.Set(float64(s.Ingested))
	p.Metrics.LastLoadTimestamp.SetToCurrentTime()
}

// RecordLoadFailure records a failed load.
func (p *Provider) RecordLoadFailure(ctx context.Context, duration time.Duration) {
	p.Metrics.LoadRuns.WithLabelValues("error").Inc()
	p.Metrics.LoadDuration.Observe(duration.Seconds())
}

// RecordSearch records a search outcome; result is a short label such as "success",
// "not_found" or "error".
func (p *Provider) RecordSearch(ctx context.Context, result string, results int, duration time.Duration) {
	p.Metrics.Searches.WithLabelValues(result).Inc()
	p.Metrics.SearchDuration.Observe(duration.Seconds())
	if result == "success" {
		p.Metrics.SearchResults.Observe(float64(results))
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Gatherer exposes the registry for inspection.
func (p *Provider) Gatherer() prometheus.Gatherer {
	return p.registry
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
