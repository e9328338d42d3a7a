package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/storage"
	"NewsAggregator/internal/ports"
)

type fakeService struct {
	got    domain.Filters
	result domain.SelectionResult
}

func (f *fakeService) GetNews(_ context.Context, filters domain.Filters) domain.SelectionResult {
	f.got = filters
	return f.result
}

type fakeRepo struct {
	categories []string
	sources    []string
	err        error
	deleted    []string
}

func (f *fakeRepo) Upsert(context.Context, []domain.PersistedRecord) error { return nil }

func (f *fakeRepo) QueryAboveThreshold(context.Context, float64, int) ([]domain.NewsItem, error) {
	return nil, nil
}

func (f *fakeRepo) Categories(context.Context) ([]string, error) { return f.categories, f.err }
func (f *fakeRepo) Sources(context.Context) ([]string, error)    { return f.sources, f.err }

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if id == "missing" {
		return storage.ErrNotFound
	}
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestRouter(svc *fakeService, repo ports.NewsRepository, opts Options) http.Handler {
	return NewRouter(svc, repo, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestListNewsPassesFilters(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: domain.SelectionResult{Items: []domain.NewsItem{
		{ID: "devto-1", Title: "t", Source: domain.SourceDevTo, RelevanceScore: 0.4},
	}}}
	h := newTestRouter(svc, &fakeRepo{}, Options{})

	rec, body := do(t, h, http.MethodGet, "/api/news?category=ai-tools&priority=business&source=Dev.to")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Filters{Category: "ai-tools", Priority: "business", Source: "Dev.to"}, svc.got)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "devto-1", items[0].(map[string]any)["id"])
	assert.NotContains(t, body, "error")
}

func TestListNewsReportsErrorInBody(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: domain.SelectionResult{Items: []domain.NewsItem{}, Error: "load stored snapshot: down"}}
	rec, body := do(t, newTestRouter(svc, nil, Options{}), http.MethodGet, "/api/news")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "load stored snapshot: down", body["error"])
	assert.Equal(t, []any{}, body["items"])
}

func TestCategoriesAndSources(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{categories: []string{"ai-tools", "implementation"}, sources: []string{"GitHub"}}
	h := newTestRouter(&fakeService{}, repo, Options{})

	rec, body := do(t, h, http.MethodGet, "/api/news/categories")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"ai-tools", "implementation"}, body["categories"])

	rec, body = do(t, h, http.MethodGet, "/api/news/sources")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"GitHub"}, body["sources"])
}

func TestRepositoryFailureIs500(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeService{}, &fakeRepo{err: errors.New("db down")}, Options{})

	rec, body := do(t, h, http.MethodGet, "/api/news/sources")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to fetch sources", body["error"])
}

func TestDeleteNews(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	h := newTestRouter(&fakeService{}, repo, Options{})

	rec, body := do(t, h, http.MethodDelete, "/api/news/gh-acme-flowbot")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"gh-acme-flowbot"}, repo.deleted)

	rec, _ = do(t, h, http.MethodDelete, "/api/news/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "news_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := newTestRouter(&fakeService{}, nil, Options{Gatherer: reg})

	rec, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "news_test_total 1")

	rec, _ = do(t, newTestRouter(&fakeService{}, nil, Options{}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeService{result: domain.SelectionResult{Items: []domain.NewsItem{}}}, nil,
		Options{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		rec, _ := do(t, h, http.MethodGet, "/api/news")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := do(t, h, http.MethodGet, "/api/news")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeService{}, nil, Options{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/news", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
