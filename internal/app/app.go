package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"NewsAggregator/internal/config"
	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/httpapi"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/infrastructure/scheduler"
	"NewsAggregator/internal/infrastructure/sources"
	"NewsAggregator/internal/infrastructure/storage"
	"NewsAggregator/internal/infrastructure/telegram"
	"NewsAggregator/internal/logging"
	"NewsAggregator/internal/ports"
	"NewsAggregator/internal/resilience"
	"NewsAggregator/internal/scanner"
	"NewsAggregator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	store     *storage.Repository
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds the application. The store is opened when a DSN is set but
// the schema is not touched; call Migrate for that.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry)

	var store *storage.Repository
	var repo ports.NewsRepository
	if cfg.Database.DSN != "" {
		var err error
		store, err = storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, storage.Options{
			ExcludeExpired: cfg.Database.ExcludeExpired,
		})
		if err != nil {
			return nil, err
		}
		repo = store
	} else {
		baseLogger.Warn("database dsn is empty, snapshots and fallback are disabled")
	}

	registry := scanner.NewRegistry()
	buckets := make(map[domain.Source]resilience.Bucket)
	fetchLimits := make(map[domain.Source]int)
	for _, src := range cfg.Sources {
		if src.Disabled {
			continue
		}
		sc, err := newScanner(src)
		if err != nil {
			if store != nil {
				_ = store.Close()
			}
			return nil, err
		}
		registry.Register(sc)
		buckets[sc.Name()] = resilience.Bucket{Tokens: src.Tokens, Interval: src.Interval}
		fetchLimits[sc.Name()] = src.Limit
	}

	limiters := resilience.NewRateLimiters(buckets)
	for source := range buckets {
		if !limiters.Configured(source) {
			baseLogger.Warn("source has no usable rate limit bucket", "source", source)
			continue
		}
		collector.TrackTokens(source, func() float64 { return limiters.Remaining(source) })
	}
	retry := resilience.NewRetryPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay,
		baseLogger.With("component", "retry"))
	var breakers *resilience.Breakers
	if cfg.Breaker.Enabled {
		breakers = resilience.NewBreakers(resilience.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			OnStateChange:    collector.BreakerStateChanged,
		}, baseLogger.With("component", "breaker"))
	}

	baseLogger.Info("sources configured",
		"count", len(registry.All()),
		"max_attempts", retry.MaxAttempts(),
		"breaker", breakers != nil)

	var guarded []scanner.Scanner
	for _, sc := range registry.All() {
		guarded = append(guarded, resilience.NewGuard(sc, limiters, retry, breakers))
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Scanners:   guarded,
		Repository: repo,
		Metrics:    collector,
		Logger:     baseLogger.With("component", "pipeline"),
		Config: usecase.PipelineConfig{
			MinRelevanceScore: cfg.Pipeline.MinRelevanceScore,
			MaxPerSource:      cfg.Pipeline.MaxPerSource,
			FallbackLimit:     cfg.Pipeline.FallbackLimit,
			RetentionHorizon:  cfg.Pipeline.RetentionHorizon,
			RunTimeout:        cfg.Pipeline.RunTimeout,
			PersistTimeout:    cfg.Pipeline.PersistTimeout,
			FetchLimits:       fetchLimits,
		},
	})

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.Endpoint)
	}
	var driver ports.Scheduler
	if cfg.Scheduler.Enabled {
		driver = scheduler.NewTickerScheduler(cfg.Scheduler.Interval)
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		registry:  promRegistry,
		store:     store,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline, notifier, baseLogger.With("component", "scheduler")).
			WithLocation(cfg.Scheduler.Location()),
	}, nil
}

func newScanner(src config.SourceConfig) (scanner.Scanner, error) {
	opts := []sources.Option{sources.WithEndpoint(src.Endpoint)}

	switch domain.Source(src.Name) {
	case domain.SourceProductHunt:
		return sources.NewProductHunt(src.Token, opts...), nil
	case domain.SourceGitHub:
		return sources.NewGitHub(src.Token, opts...), nil
	case domain.SourceDevTo:
		return sources.NewDevTo(opts...), nil
	case domain.SourceTechCrunch:
		return sources.NewTechCrunch(opts...), nil
	case domain.SourceVerge:
		return sources.NewVerge(opts...), nil
	case domain.SourceHackerNews:
		return sources.NewHackerNews(opts...), nil
	case domain.SourceTechmeme:
		return sources.NewTechmeme(opts...), nil
	default:
		return nil, fmt.Errorf("unknown source %q", src.Name)
	}
}

// Pipeline exposes the aggregation use case.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Migrate creates the store schema.
func (a *Application) Migrate(ctx context.Context) error {
	if a.store == nil {
		return errors.New("database is not configured")
	}
	return a.store.Migrate(ctx)
}

// Handler builds the HTTP API.
func (a *Application) Handler() http.Handler {
	var repo ports.NewsRepository
	if a.store != nil {
		repo = a.store
	}
	return httpapi.NewRouter(a.pipeline, repo, a.logger.With("component", "http"), httpapi.Options{
		AllowedOrigins:    a.cfg.Server.AllowedOrigins,
		RateLimitRequests: a.cfg.Server.RateLimitRequests,
		RateLimitWindow:   a.cfg.Server.RateLimitWindow,
		RequestTimeout:    a.cfg.Server.RequestTimeout,
		Gatherer:          a.registry,
	})
}

// Serve runs the HTTP API and the refresh scheduler until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	a.pipeline.Wait()

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

// Close waits for pending snapshot writes and releases the store.
func (a *Application) Close() error {
	a.pipeline.Wait()
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
