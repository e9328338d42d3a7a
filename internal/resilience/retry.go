package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsAggregator/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// FetchFunc performs one attempt against a source.
type FetchFunc func(ctx context.Context) ([]domain.NewsItem, error)

// RetryPolicy retries classified failures with linearly growing backoff.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewRetryPolicy builds a policy; non-positive values fall back to 3
// attempts and a one second base delay.
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryPolicy{maxAttempts: maxAttempts, baseDelay: baseDelay, logger: logger}
}

// MaxAttempts returns the configured attempt cap.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Execute runs op until it succeeds, hits a non-retryable failure, or the
// attempt cap is reached. The returned error is always a *domain.FetchError.
func (p *RetryPolicy) Execute(ctx context.Context, source domain.Source, op FetchFunc) ([]domain.NewsItem, error) {
	var lastErr *domain.FetchError

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		items, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("fetch succeeded after retry", "source", source, "attempt", attempt)
			}
			return items, nil
		}

		lastErr = Classify(source, err)
		retryable := lastErr.Kind.Retryable()
		p.logger.Warn("fetch attempt failed",
			"source", source,
			"attempt", attempt,
			"kind", lastErr.Kind.String(),
			"retryable", retryable,
			"error", lastErr.Err)

		if !retryable || attempt == p.maxAttempts {
			break
		}

		delay := p.baseDelay * time.Duration(attempt)
		if err := sleep(ctx, delay); err != nil {
			return nil, domain.NewFetchError(lastErr.Kind, source,
				fmt.Errorf("retry cancelled after attempt %d: %w: %w", attempt, err, lastErr.Err))
		}
	}

	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
