package resilience

import (
	"context"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/scanner"
)

// Guard decorates a scanner with the breaker, the retry policy and the
// source's rate limiter, in that order from the outside in. Every attempt
// acquires a token before reaching the wrapped scanner.
type Guard struct {
	next     scanner.Scanner
	limiters *RateLimiters
	retry    *RetryPolicy
	breakers *Breakers
}

var _ scanner.Scanner = (*Guard)(nil)

// NewGuard wraps next. breakers may be nil to disable circuit breaking.
func NewGuard(next scanner.Scanner, limiters *RateLimiters, retry *RetryPolicy, breakers *Breakers) *Guard {
	return &Guard{next: next, limiters: limiters, retry: retry, breakers: breakers}
}

// Name reports the wrapped scanner's source.
func (g *Guard) Name() domain.Source {
	return g.next.Name()
}

// Fetch runs the wrapped scanner with resilience applied. Failures are
// always *domain.FetchError.
func (g *Guard) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	source := g.next.Name()

	attempt := func(ctx context.Context) ([]domain.NewsItem, error) {
		if g.limiters != nil {
			if err := g.limiters.Acquire(ctx, source); err != nil {
				return nil, err
			}
		}
		return g.next.Fetch(ctx, limit)
	}

	run := func() ([]domain.NewsItem, error) {
		return g.retry.Execute(ctx, source, attempt)
	}

	if g.breakers == nil {
		return run()
	}
	items, err := g.breakers.Execute(source, run)
	if err != nil {
		return nil, Classify(source, err)
	}
	return items, nil
}
