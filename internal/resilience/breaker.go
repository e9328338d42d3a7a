package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"NewsAggregator/internal/domain"
)

// BreakerSettings configures the per-source circuit breakers.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	// OnStateChange is optional and receives the new state name.
	OnStateChange func(source domain.Source, state string)
}

// Breakers holds one circuit breaker per source. A source whose retried
// fetches keep failing is skipped until OpenTimeout elapses.
type Breakers struct {
	settings BreakerSettings
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[domain.Source]*gobreaker.CircuitBreaker[[]domain.NewsItem]
}

// NewBreakers creates an empty breaker set.
func NewBreakers(settings BreakerSettings, logger *slog.Logger) *Breakers {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breakers{
		settings: settings,
		logger:   logger,
		breakers: make(map[domain.Source]*gobreaker.CircuitBreaker[[]domain.NewsItem]),
	}
}

// Execute runs fn behind the breaker for source. Rejections while open are
// reported as unexpected failures for that source.
func (b *Breakers) Execute(source domain.Source, fn func() ([]domain.NewsItem, error)) ([]domain.NewsItem, error) {
	items, err := b.get(source).Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.NewFetchError(domain.KindUnexpected, source, fmt.Errorf("circuit breaker: %w", err))
	}
	return items, err
}

// State returns the breaker state name for source.
func (b *Breakers) State(source domain.Source) string {
	return stateToString(b.get(source).State())
}

func (b *Breakers) get(source domain.Source) *gobreaker.CircuitBreaker[[]domain.NewsItem] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[source]; ok {
		return cb
	}

	threshold := b.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[[]domain.NewsItem](gobreaker.Settings{
		Name:        string(source),
		MaxRequests: 1,
		Timeout:     b.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Throttling says nothing about source health.
		IsSuccessful: func(err error) bool {
			return err == nil || domain.KindOf(err) == domain.KindRateLimited
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Info("circuit breaker state change",
				"source", name,
				"from", stateToString(from),
				"to", stateToString(to))
			if b.settings.OnStateChange != nil {
				b.settings.OnStateChange(domain.Source(name), stateToString(to))
			}
		},
	})
	b.breakers[source] = cb
	return cb
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
