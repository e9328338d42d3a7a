package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"NewsAggregator/internal/domain"
)

// ErrUnconfiguredSource is wrapped when a source has no token bucket.
var ErrUnconfiguredSource = errors.New("no rate limiter configured for source")

// Bucket describes one token bucket: Tokens are replenished every Interval.
type Bucket struct {
	Tokens   int
	Interval time.Duration
}

// RateLimiters is the process-wide registry of per-source token buckets.
// The map is fixed at construction; each rate.Limiter serialises its own
// token accounting.
type RateLimiters struct {
	limiters map[domain.Source]*rate.Limiter
}

// NewRateLimiters builds a limiter for each configured source.
func NewRateLimiters(buckets map[domain.Source]Bucket) *RateLimiters {
	limiters := make(map[domain.Source]*rate.Limiter, len(buckets))
	for source, b := range buckets {
		if b.Tokens <= 0 || b.Interval <= 0 {
			continue
		}
		every := rate.Every(b.Interval / time.Duration(b.Tokens))
		limiters[source] = rate.NewLimiter(every, b.Tokens)
	}
	return &RateLimiters{limiters: limiters}
}

// Acquire blocks until source has a token available. It fails with an
// unconfigured-source error when no bucket exists, and with a rate-limited
// error when ctx ends (or its deadline cannot be met) before a token frees up.
func (r *RateLimiters) Acquire(ctx context.Context, source domain.Source) error {
	limiter, ok := r.limiters[source]
	if !ok {
		return domain.NewFetchError(domain.KindUnconfiguredSource, source,
			fmt.Errorf("%w: %s", ErrUnconfiguredSource, source))
	}

	if err := limiter.Wait(ctx); err != nil {
		return domain.NewFetchError(domain.KindRateLimited, source, fmt.Errorf("wait for token: %w", err))
	}
	return nil
}

// Remaining reports the tokens currently available for source.
func (r *RateLimiters) Remaining(source domain.Source) float64 {
	limiter, ok := r.limiters[source]
	if !ok {
		return 0
	}
	return limiter.Tokens()
}

// Configured reports whether source has a bucket.
func (r *RateLimiters) Configured(source domain.Source) bool {
	_, ok := r.limiters[source]
	return ok
}
