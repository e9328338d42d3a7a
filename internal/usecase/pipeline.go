package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
	"NewsAggregator/internal/resilience"
	"NewsAggregator/internal/scanner"
	"NewsAggregator/internal/scoring"
)

const (
	defaultMinRelevance     = 0.15
	defaultMaxPerSource     = 3
	defaultFallbackLimit    = 10
	defaultRetentionHorizon = 24 * time.Hour
	defaultFetchLimit       = 10
	defaultPersistTimeout   = 15 * time.Second
)

// PipelineConfig tunes selection and persistence.
type PipelineConfig struct {
	MinRelevanceScore float64
	MaxPerSource      int
	FallbackLimit     int
	RetentionHorizon  time.Duration
	// RunTimeout bounds the source fan-out; zero waits for every source.
	RunTimeout     time.Duration
	PersistTimeout time.Duration
	FetchLimits    map[domain.Source]int
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.MinRelevanceScore <= 0 {
		c.MinRelevanceScore = defaultMinRelevance
	}
	if c.MaxPerSource <= 0 {
		c.MaxPerSource = defaultMaxPerSource
	}
	if c.FallbackLimit <= 0 {
		c.FallbackLimit = defaultFallbackLimit
	}
	if c.RetentionHorizon <= 0 {
		c.RetentionHorizon = defaultRetentionHorizon
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = defaultPersistTimeout
	}
	return c
}

func (c PipelineConfig) fetchLimit(source domain.Source) int {
	if n, ok := c.FetchLimits[source]; ok && n > 0 {
		return n
	}
	return defaultFetchLimit
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Scanners   []scanner.Scanner
	Repository ports.NewsRepository
	Scorer     *scoring.Scorer
	Metrics    ports.PipelineMetrics
	Logger     *slog.Logger
	Config     PipelineConfig
	Now        func() time.Time
}

// Pipeline implements the fetch, score, select and persist workflow.
type Pipeline struct {
	scanners   []scanner.Scanner
	repository ports.NewsRepository
	scorer     *scoring.Scorer
	metrics    ports.PipelineMetrics
	logger     *slog.Logger
	cfg        PipelineConfig
	now        func() time.Time

	persisting sync.WaitGroup
}

var _ ports.NewsService = (*Pipeline)(nil)

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = scoring.NewScorer(now)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Pipeline{
		scanners:   deps.Scanners,
		repository: deps.Repository,
		scorer:     scorer,
		metrics:    metrics,
		logger:     logger,
		cfg:        deps.Config.withDefaults(),
		now:        now,
	}
}

// Report describes one completed run.
type Report struct {
	RunID  string
	Result domain.SelectionResult
	// Fresh is true when the items came from this run rather than the
	// stored snapshot.
	Fresh bool
}

// GetNews runs the pipeline and never fails: errors are reported through
// the result's Error field with an empty item list.
func (p *Pipeline) GetNews(ctx context.Context, filters domain.Filters) domain.SelectionResult {
	return p.Run(ctx, filters).Result
}

// Run executes one aggregation and reports whether the response is fresh.
func (p *Pipeline) Run(ctx context.Context, filters domain.Filters) (report Report) {
	report.RunID = uuid.NewString()
	log := p.logger.With("run_id", report.RunID)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("news run panicked", "panic", r)
			report.Fresh = false
			report.Result = domain.SelectionResult{
				Items: []domain.NewsItem{},
				Error: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	log.Info("starting news fetch", "sources", len(p.scanners), "filters", filters)

	items, fresh, err := p.collect(ctx, log)
	if err != nil {
		log.Error("news run failed", "error", err)
		report.Result = domain.SelectionResult{Items: []domain.NewsItem{}, Error: err.Error()}
		return report
	}

	filtered := applyFilters(items, filters)
	p.metrics.RunCompleted(len(filtered), time.Since(started))
	log.Info("news run finished", "fresh", fresh, "selected", len(items), "returned", len(filtered))

	report.Fresh = fresh
	report.Result = domain.SelectionResult{Items: filtered}
	return report
}

// Wait blocks until background snapshot writes have finished.
func (p *Pipeline) Wait() {
	p.persisting.Wait()
}

func (p *Pipeline) collect(ctx context.Context, log *slog.Logger) ([]domain.NewsItem, bool, error) {
	now := p.now()

	raw := dedupe(p.fetchAll(ctx, log))
	log.Info("scoring items", "total", len(raw))

	scored := make([]domain.ScoredItem, 0, len(raw))
	for _, item := range raw {
		score := p.scorer.ScoreAt(item, now)
		if log.Enabled(ctx, slog.LevelDebug) {
			b := scoring.Explain(item, now)
			log.Debug("article scored",
				"title", item.Title,
				"source", item.Source,
				"screening", b.Screening,
				"base", b.BaseScore,
				"quality_matches", b.QualityMatches,
				"multiplier", b.QualityMultiplier,
				"recency_boost", b.RecencyBoost,
				"score", score)
		}
		scored = append(scored, domain.ScoredItem{Item: item, Score: score})
	}

	selected := Select(scored, p.cfg.MinRelevanceScore, p.cfg.MaxPerSource)
	log.Info("selected diverse items", "relevant_pool", len(scored), "selected", len(selected))

	if len(selected) > 0 {
		p.persist(ctx, selected, now, log)

		items := make([]domain.NewsItem, 0, len(selected))
		for _, s := range selected {
			item := s.Item
			item.RelevanceScore = s.Score
			items = append(items, item)
		}
		return items, true, nil
	}

	if p.repository == nil {
		return []domain.NewsItem{}, false, nil
	}

	log.Info("no fresh items, checking stored snapshot")
	stored, err := p.repository.QueryAboveThreshold(ctx, p.cfg.MinRelevanceScore, p.cfg.FallbackLimit)
	if err != nil {
		return nil, false, fmt.Errorf("load stored snapshot: %w", err)
	}
	p.metrics.FallbackServed(len(stored))
	if stored == nil {
		stored = []domain.NewsItem{}
	}
	return stored, false, nil
}

func (p *Pipeline) fetchAll(ctx context.Context, log *slog.Logger) []domain.NewsItem {
	fetchCtx := ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	results := make([][]domain.NewsItem, len(p.scanners))
	var g errgroup.Group
	for i, sc := range p.scanners {
		g.Go(func() error {
			results[i] = p.fetchOne(fetchCtx, sc, log)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.NewsItem
	for _, items := range results {
		all = append(all, items...)
	}
	return all
}

// fetchOne never fails: any error or panic yields an empty contribution.
func (p *Pipeline) fetchOne(ctx context.Context, sc scanner.Scanner, log *slog.Logger) (items []domain.NewsItem) {
	source := sc.Name()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("scanner panicked", "source", source, "panic", r)
			p.metrics.SourceFailed(source, domain.KindUnexpected, time.Since(started))
			items = nil
		}
	}()

	items, err := sc.Fetch(ctx, p.cfg.fetchLimit(source))
	elapsed := time.Since(started)
	if err != nil {
		fe := resilience.Classify(source, err)
		log.Warn("scanner failed", "source", source, "kind", fe.Kind.String(), "error", fe.Err)
		p.metrics.SourceFailed(source, fe.Kind, elapsed)
		return nil
	}

	log.Info("fetched items", "source", source, "count", len(items), "elapsed_ms", elapsed.Milliseconds())
	p.metrics.SourceFetched(source, len(items), elapsed)
	return items
}

// persist writes the snapshot in the background. Failures are logged and
// counted but never reach the caller.
func (p *Pipeline) persist(ctx context.Context, selected []domain.ScoredItem, now time.Time, log *slog.Logger) {
	if p.repository == nil {
		return
	}

	expiresAt := now.Add(p.cfg.RetentionHorizon)
	records := make([]domain.PersistedRecord, 0, len(selected))
	for _, s := range selected {
		records = append(records, domain.PersistedRecord{
			Item:           s.Item,
			RelevanceScore: s.Score,
			ExpiresAt:      expiresAt,
		})
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.PersistTimeout)
	p.persisting.Add(1)
	go func() {
		defer p.persisting.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error("saving snapshot panicked", "records", len(records), "panic", r)
				p.metrics.PersistFailed(fmt.Errorf("panic: %v", r))
			}
		}()

		if err := p.repository.Upsert(writeCtx, records); err != nil {
			log.Error("saving snapshot failed", "records", len(records), "error", err)
			p.metrics.PersistFailed(err)
			return
		}
		log.Debug("snapshot saved", "records", len(records))
	}()
}

type noopMetrics struct{}

func (noopMetrics) SourceFetched(domain.Source, int, time.Duration) {}
func (noopMetrics) SourceFailed(domain.Source, domain.ErrorKind, time.Duration) {}
func (noopMetrics) PersistFailed(error) {}
func (noopMetrics) FallbackServed(int) {}
func (noopMetrics) RunCompleted(int, time.Duration) {}
