package popularity

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bounds applied to raw signal fields before scoring.
const (
	MaxClickCount  = 876
	MaxPosition    = 100
	MaxImpressions = 10000
)

// Signal is the single click observation attached to one document.
type Signal struct {
	Position    int
	Clicks      int
	Impressions int
	Timestamp   *time.Time
}

// ClampClickCount bounds a click count to [0, MaxClickCount].
func ClampClickCount(v int) int { return clamp(v, MaxClickCount) }

// ClampPosition bounds a display position to [0, MaxPosition].
func ClampPosition(v int) int { return clamp(v, MaxPosition) }

// ClampImpressions bounds an impression count to [0, MaxImpressions].
func ClampImpressions(v int) int { return clamp(v, MaxImpressions) }

func clamp(v, upper int) int {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}

// NormalizeSignal clamps every field and floors impressions to the click count.
func NormalizeSignal(s Signal) Signal {
	out := Signal{
		Position:    ClampPosition(s.Position),
		Clicks:      ClampClickCount(s.Clicks),
		Impressions: ClampImpressions(s.Impressions),
		Timestamp:   s.Timestamp,
	}
	if out.Impressions < out.Clicks {
		out.Impressions = out.Clicks
	}
	return out
}

// Event converts a normalized signal into an impression event.
func (s Signal) Event() ImpressionEvent {
	e := NewImpressionEvent(s.Position, float64(s.Clicks)).WithImpressions(float64(s.Impressions))
	if s.Timestamp != nil {
		e = e.WithTimestamp(*s.Timestamp)
	}
	return e
}

// Record holds the scoring output for one document.
type Record struct {
	ClickCountRaw           int     `json:"click_count_raw"`
	ClickCountCorrected     float64 `json:"click_count_corrected"`
	ClickImpressionAdjusted float64 `json:"click_impression_adjusted"`
	PopularityRaw           float64 `json:"popularity_raw"`
	PopularityLog           float64 `json:"popularity_log"`
	PopularityPercentile    float64 `json:"popularity_percentile"`
}

// Result is the output of one pipeline run. Records align with the input signals.
type Result struct {
	Records []Record
	Prior   float64
	Now     time.Time
	Bias    *PositionBias
	// Ingested counts the triples that reached the bias builder.
	Ingested int
}

// PipelineConfig holds the numeric settings of a pipeline run.
type PipelineConfig struct {
	TauHours    float64
	Pseudocount float64
	Epsilon     float64
	// Workers is the number of goroutines used for per-document scoring.
	Workers int
}

// DefaultPipelineConfig returns the default pipeline settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TauHours:    DefaultDecayHours,
		Pseudocount: DefaultPseudocount,
		Epsilon:     Epsilon,
		Workers:     1,
	}
}

// Pipeline scores a batch of documents: ingest all, then score all, then rank all.
type Pipeline struct {
	config PipelineConfig
	clock  func() time.Time
	logger *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock injects the source of the batch reference time.
func WithClock(clock func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger sets a logger for run summaries.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline. Zero fields in cfg fall back to defaults.
func NewPipeline(cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	def := DefaultPipelineConfig()
	if cfg.TauHours == 0 {
		cfg.TauHours = def.TauHours
	}
	if cfg.Pseudocount <= 0 {
		cfg.Pseudocount = def.Pseudocount
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	p := &Pipeline{
		config: cfg,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective settings.
func (p *Pipeline) Config() PipelineConfig {
	return p.config
}

// Run scores signals. The corpus prior and the percentile ranks are computed only
// after every document's corrected statistics are known.
func (p *Pipeline) Run(signals []Signal) (*Result, error) {
	normalized := make([]Signal, len(signals))
	for i, s := range signals {
		normalized[i] = NormalizeSignal(s)
	}

	builder := NewPositionBiasBuilder()
	ingested := 0
	for i, s := range normalized {
		if s.Impressions <= 0 && s.Clicks <= 0 {
			continue
		}
		obs := Observation{Position: s.Position, Impressions: s.Impressions, Clicks: s.Clicks}
		if err := builder.Ingest(obs); err != nil {
			return nil, fmt.Errorf("ingest document %d: %w", i, err)
		}
		ingested++
	}
	bias := builder.Freeze()

	now := p.clock()
	params := Params{Now: now, TauHours: p.config.TauHours, Epsilon: p.config.Epsilon}
	clicks := make([]float64, len(normalized))
	impressions := make([]float64, len(normalized))
	p.scoreAll(normalized, bias, params, clicks, impressions)

	var totalClicks, totalImpressions float64
	for i := range normalized {
		totalClicks += clicks[i]
		totalImpressions += impressions[i]
	}
	prior := CorpusPrior(totalClicks, totalImpressions)

	smoother := NewBayesianSmoother(prior,
		WithPseudocount(p.config.Pseudocount),
		WithDecayHours(p.config.TauHours),
		WithSmoothingEpsilon(p.config.Epsilon),
	)
	raw := make([]float64, len(normalized))
	for i := range normalized {
		raw[i] = smoother.ScoreFromStats(clicks[i], impressions[i])
	}
	logScores := LogTransform(raw)
	percentiles := PercentileRank(logScores)

	records := make([]Record, len(normalized))
	for i, s := range normalized {
		records[i] = Record{
			ClickCountRaw:           s.Clicks,
			ClickCountCorrected:     clicks[i],
			ClickImpressionAdjusted: impressions[i],
			PopularityRaw:           raw[i],
			PopularityLog:           logScores[i],
			PopularityPercentile:    percentiles[i],
		}
	}

	p.logger.Debug("popularity pipeline run",
		zap.Int("documents", len(records)),
		zap.Int("ingested", ingested),
		zap.Int("positions", bias.Len()),
		zap.Float64("prior", prior),
		zap.Time("now", now),
	)
	return &Result{
		Records:  records,
		Prior:    prior,
		Now:      now,
		Bias:     bias,
		Ingested: ingested,
	}, nil
}

// scoreAll fills clicks and impressions per document. The bias model is frozen,
// so workers only read shared state and write to disjoint slots.
func (p *Pipeline) scoreAll(signals []Signal, bias *PositionBias, params Params, clicks, impressions []float64) {
	score := func(i int) {
		events := []ImpressionEvent{signals[i].Event()}
		clicks[i] = CorrectedClicks(events, bias, params)
		impressions[i] = AdjustedImpressions(events, bias, params)
	}

	workers := p.config.Workers
	if workers > len(signals) {
		workers = len(signals)
	}
	if workers <= 1 {
		for i := range signals {
			score(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (len(signals) + workers - 1) / workers
	for start := 0; start < len(signals); start += chunk {
		end := start + chunk
		if end > len(signals) {
			end = len(signals)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				score(i)
			}
		}(start, end)
	}
	wg.Wait()
}
