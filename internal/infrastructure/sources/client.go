package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/resilience"
)

const (
	userAgent      = "NewsAggregator/1.0"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// Option customises an adapter.
type Option func(*base)

// WithEndpoint overrides the upstream base URL.
func WithEndpoint(endpoint string) Option {
	return func(b *base) {
		if endpoint != "" {
			b.endpoint = endpoint
		}
	}
}

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(b *base) {
		if client != nil {
			b.client = client
		}
	}
}

// WithClock sets the time source used for items without a usable date.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// base holds what every adapter needs to talk to its upstream.
type base struct {
	source   domain.Source
	endpoint string
	client   *http.Client
	now      func() time.Time
}

func newBase(source domain.Source, endpoint string, opts []Option) base {
	b := base{
		source:   source,
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name identifies the adapter inside the registry.
func (b *base) Name() domain.Source {
	return b.source
}

// do executes req and returns the response for 2xx statuses only. Other
// statuses become *resilience.StatusError so they can be classified.
func (b *base) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &resilience.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func (b *base) get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return b.do(req)
}

// getJSON decodes a JSON body into out. Decode failures are parse errors.
func (b *base) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	resp, err := b.get(ctx, url, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return b.decode(resp.Body, out)
}

func (b *base) decode(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return b.parseError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (b *base) parseError(err error) error {
	return domain.NewFetchError(domain.KindParse, b.source, err)
}
