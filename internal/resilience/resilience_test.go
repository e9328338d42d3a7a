package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAggregator/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeScanner struct {
	name  domain.Source
	calls atomic.Int32
	fetch func(call int) ([]domain.NewsItem, error)
}

func (f *fakeScanner) Name() domain.Source { return f.name }

func (f *fakeScanner) Fetch(_ context.Context, _ int) ([]domain.NewsItem, error) {
	call := int(f.calls.Add(1))
	return f.fetch(call)
}

func TestRateLimitersUnconfiguredSource(t *testing.T) {
	t.Parallel()

	limiters := NewRateLimiters(map[domain.Source]Bucket{
		domain.SourceGitHub: {Tokens: 5, Interval: time.Second},
	})

	err := limiters.Acquire(context.Background(), domain.SourceDevTo)
	require.Error(t, err)
	assert.Equal(t, domain.KindUnconfiguredSource, domain.KindOf(err))
	assert.ErrorIs(t, err, ErrUnconfiguredSource)
	assert.False(t, limiters.Configured(domain.SourceDevTo))
	assert.True(t, limiters.Configured(domain.SourceGitHub))
}

func TestRateLimitersBurstThenBlock(t *testing.T) {
	t.Parallel()

	limiters := NewRateLimiters(map[domain.Source]Bucket{
		domain.SourceProductHunt: {Tokens: 2, Interval: time.Hour},
	})

	ctx := context.Background()
	require.NoError(t, limiters.Acquire(ctx, domain.SourceProductHunt))
	require.NoError(t, limiters.Acquire(ctx, domain.SourceProductHunt))
	assert.Less(t, limiters.Remaining(domain.SourceProductHunt), 1.0)

	// The next token is half an hour away; a short deadline cannot be met.
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := limiters.Acquire(shortCtx, domain.SourceProductHunt)
	require.Error(t, err)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestRateLimitersWaitForRefill(t *testing.T) {
	t.Parallel()

	limiters := NewRateLimiters(map[domain.Source]Bucket{
		domain.SourceVerge: {Tokens: 1, Interval: 100 * time.Millisecond},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, limiters.Acquire(ctx, domain.SourceVerge))

	start := time.Now()
	require.NoError(t, limiters.Acquire(ctx, domain.SourceVerge))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimitersConcurrentAcquireNeverOversells(t *testing.T) {
	t.Parallel()

	limiters := NewRateLimiters(map[domain.Source]Bucket{
		domain.SourceHackerNews: {Tokens: 5, Interval: time.Hour},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiters.Acquire(ctx, domain.SourceHackerNews) == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), granted.Load())
}

func TestRetryPolicyAttemptsByKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCalls int
		wantKind  domain.ErrorKind
	}{
		{
			name:      "rate limited is not retried",
			err:       &StatusError{StatusCode: 429, Status: "429 Too Many Requests"},
			wantCalls: 1,
			wantKind:  domain.KindRateLimited,
		},
		{
			name:      "unconfigured source is not retried",
			err:       domain.NewFetchError(domain.KindUnconfiguredSource, domain.SourceGitHub, ErrUnconfiguredSource),
			wantCalls: 1,
			wantKind:  domain.KindUnconfiguredSource,
		},
		{
			name:      "network failure exhausts attempts",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			wantCalls: 3,
			wantKind:  domain.KindNetwork,
		},
		{
			name:      "parse failure is retried",
			err:       domain.NewFetchError(domain.KindParse, domain.SourceGitHub, errors.New("bad json")),
			wantCalls: 3,
			wantKind:  domain.KindParse,
		},
		{
			name:      "unexpected failure is retried",
			err:       errors.New("boom"),
			wantCalls: 3,
			wantKind:  domain.KindUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			policy := NewRetryPolicy(3, time.Millisecond, discardLogger())
			calls := 0
			_, err := policy.Execute(context.Background(), domain.SourceGitHub, func(context.Context) ([]domain.NewsItem, error) {
				calls++
				return nil, tt.err
			})

			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}
}

func TestRetryPolicySucceedsAfterTransientFailure(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(3, time.Millisecond, discardLogger())
	calls := 0
	items, err := policy.Execute(context.Background(), domain.SourceDevTo, func(context.Context) ([]domain.NewsItem, error) {
		calls++
		if calls == 1 {
			return nil, &StatusError{StatusCode: 503, Status: "503 Service Unavailable"}
		}
		return []domain.NewsItem{{ID: "devto-1"}}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, items, 1)
}

func TestRetryPolicyBackoffIsCancellable(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(5, time.Hour, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	_, err := policy.Execute(ctx, domain.SourceDevTo, func(context.Context) ([]domain.NewsItem, error) {
		calls++
		return nil, errors.New("flaky")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryPolicyDefaults(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(0, 0, nil)
	assert.Equal(t, 3, policy.MaxAttempts())
	assert.Equal(t, time.Second, policy.baseDelay)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	urlErr := &url.Error{Op: "Get", URL: "https://example.com", Err: errors.New("connection reset")}

	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{name: "429", err: &StatusError{StatusCode: 429}, want: domain.KindRateLimited},
		{name: "503", err: &StatusError{StatusCode: 503}, want: domain.KindNetwork},
		{name: "408", err: &StatusError{StatusCode: 408}, want: domain.KindNetwork},
		{name: "404", err: &StatusError{StatusCode: 404}, want: domain.KindUnexpected},
		{name: "wrapped status", err: fmt.Errorf("fetch: %w", &StatusError{StatusCode: 429}), want: domain.KindRateLimited},
		{name: "transport", err: urlErr, want: domain.KindNetwork},
		{name: "deadline", err: context.DeadlineExceeded, want: domain.KindNetwork},
		{name: "classified", err: domain.NewFetchError(domain.KindParse, domain.SourceVerge, nil), want: domain.KindParse},
		{name: "other", err: errors.New("nope"), want: domain.KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(domain.SourceVerge, tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, domain.SourceVerge, got.Source)
		})
	}

	assert.Nil(t, Classify(domain.SourceVerge, nil))
}

func TestBreakersOpenAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	var states []string
	breakers := NewBreakers(BreakerSettings{
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
		OnStateChange: func(_ domain.Source, state string) {
			states = append(states, state)
		},
	}, discardLogger())

	calls := 0
	failing := func() ([]domain.NewsItem, error) {
		calls++
		return nil, errors.New("down")
	}

	_, _ = breakers.Execute(domain.SourceTechmeme, failing)
	_, _ = breakers.Execute(domain.SourceTechmeme, failing)
	assert.Equal(t, "open", breakers.State(domain.SourceTechmeme))

	_, err := breakers.Execute(domain.SourceTechmeme, failing)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, domain.KindUnexpected, domain.KindOf(err))
	assert.Equal(t, []string{"open"}, states)

	assert.Equal(t, "closed", breakers.State(domain.SourceVerge))
}

func TestBreakersIgnoreRateLimiting(t *testing.T) {
	t.Parallel()

	breakers := NewBreakers(BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Hour}, discardLogger())
	throttled := func() ([]domain.NewsItem, error) {
		return nil, domain.NewFetchError(domain.KindRateLimited, domain.SourceGitHub, nil)
	}

	for i := 0; i < 3; i++ {
		_, err := breakers.Execute(domain.SourceGitHub, throttled)
		assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
	}
	assert.Equal(t, "closed", breakers.State(domain.SourceGitHub))
}

func TestGuardAppliesLimiterAndRetry(t *testing.T) {
	t.Parallel()

	limiters := NewRateLimiters(map[domain.Source]Bucket{
		domain.SourceDevTo: {Tokens: 10, Interval: time.Second},
	})
	retry := NewRetryPolicy(3, time.Millisecond, discardLogger())

	t.Run("network failures use every attempt", func(t *testing.T) {
		sc := &fakeScanner{name: domain.SourceDevTo, fetch: func(int) ([]domain.NewsItem, error) {
			return nil, &StatusError{StatusCode: 502, Status: "502 Bad Gateway"}
		}}
		guard := NewGuard(sc, limiters, retry, nil)

		_, err := guard.Fetch(context.Background(), 10)
		require.Error(t, err)
		assert.Equal(t, int32(3), sc.calls.Load())
		assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
		assert.Equal(t, domain.SourceDevTo, guard.Name())
	})

	t.Run("unconfigured source never reaches the scanner", func(t *testing.T) {
		sc := &fakeScanner{name: domain.SourceVerge, fetch: func(int) ([]domain.NewsItem, error) {
			return []domain.NewsItem{{ID: "x"}}, nil
		}}
		guard := NewGuard(sc, limiters, retry, NewBreakers(BreakerSettings{}, discardLogger()))

		_, err := guard.Fetch(context.Background(), 10)
		require.Error(t, err)
		assert.Equal(t, int32(0), sc.calls.Load())
		assert.Equal(t, domain.KindUnconfiguredSource, domain.KindOf(err))
	})

	t.Run("success passes items through", func(t *testing.T) {
		sc := &fakeScanner{name: domain.SourceDevTo, fetch: func(int) ([]domain.NewsItem, error) {
			return []domain.NewsItem{{ID: "devto-1"}, {ID: "devto-2"}}, nil
		}}
		guard := NewGuard(sc, limiters, retry, NewBreakers(BreakerSettings{}, discardLogger()))

		items, err := guard.Fetch(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}
