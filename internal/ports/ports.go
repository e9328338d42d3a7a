package ports

import (
	"context"
	"time"

	"NewsAggregator/internal/domain"
)

// NewsRepository persists ranked snapshots and serves fallback reads.
type NewsRepository interface {
	Upsert(ctx context.Context, records []domain.PersistedRecord) error
	QueryAboveThreshold(ctx context.Context, minScore float64, limit int) ([]domain.NewsItem, error)
	Categories(ctx context.Context) ([]string, error)
	Sources(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// PipelineMetrics receives per-run observations from the aggregation
// pipeline.
type PipelineMetrics interface {
	SourceFetched(source domain.Source, items int, elapsed time.Duration)
	SourceFailed(source domain.Source, kind domain.ErrorKind, elapsed time.Duration)
	PersistFailed(err error)
	FallbackServed(items int)
	RunCompleted(selected int, elapsed time.Duration)
}

// NewsService is the public entry point exposed to the API layer.
type NewsService interface {
	GetNews(ctx context.Context, filters domain.Filters) domain.SelectionResult
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
