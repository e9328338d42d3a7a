package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

const namespace = "news"

// Collector records pipeline observations as Prometheus metrics.
type Collector struct {
	factory        promauto.Factory
	fetches        *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	itemsFetched   *prometheus.CounterVec
	rateLimitHits  *prometheus.CounterVec
	persistFailure prometheus.Counter
	fallbackServed prometheus.Counter
	runDuration    prometheus.Histogram
	runSelected    prometheus.Gauge
	breakerState   *prometheus.GaugeVec
}

var _ ports.PipelineMetrics = (*Collector)(nil)

// NewCollector registers all metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		factory: f,
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source fetches by outcome.",
		}, []string{"source", "outcome"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed source fetches by error kind.",
		}, []string{"source", "kind"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Time spent fetching one source, including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		itemsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_items_fetched_total",
			Help:      "Candidate items returned by each source.",
		}, []string{"source"}),
		rateLimitHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Fetches rejected by a rate limit.",
		}, []string{"source"}),
		persistFailure: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed.",
		}),
		fallbackServed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_served_total",
			Help:      "Runs answered from the stored snapshot.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline run time.",
			Buckets:   prometheus.DefBuckets,
		}),
		runSelected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_selected_items",
			Help:      "Items returned by the most recent run.",
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_breaker_state",
			Help:      "Circuit breaker state per source (0 closed, 1 half-open, 2 open).",
		}, []string{"source"}),
	}
}

func (c *Collector) SourceFetched(source domain.Source, items int, elapsed time.Duration) {
	s := string(source)
	c.fetches.WithLabelValues(s, "success").Inc()
	c.itemsFetched.WithLabelValues(s).Add(float64(items))
	c.fetchDuration.WithLabelValues(s).Observe(elapsed.Seconds())
}

func (c *Collector) SourceFailed(source domain.Source, kind domain.ErrorKind, elapsed time.Duration) {
	s := string(source)
	c.fetches.WithLabelValues(s, "error").Inc()
	c.fetchErrors.WithLabelValues(s, kind.String()).Inc()
	c.fetchDuration.WithLabelValues(s).Observe(elapsed.Seconds())
	if kind == domain.KindRateLimited {
		c.rateLimitHits.WithLabelValues(s).Inc()
	}
}

func (c *Collector) PersistFailed(error) {
	c.persistFailure.Inc()
}

func (c *Collector) FallbackServed(int) {
	c.fallbackServed.Inc()
}

func (c *Collector) RunCompleted(selected int, elapsed time.Duration) {
	c.runSelected.Set(float64(selected))
	c.runDuration.Observe(elapsed.Seconds())
}

// BreakerStateChanged matches resilience.BreakerSettings.OnStateChange.
func (c *Collector) BreakerStateChanged(source domain.Source, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	c.breakerState.WithLabelValues(string(source)).Set(v)
}

// TrackTokens exports the tokens left in source's rate-limit bucket,
// sampled on every scrape.
func (c *Collector) TrackTokens(source domain.Source, remaining func() float64) {
	c.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "source_tokens_available",
		Help:        "Tokens currently available in the source rate-limit bucket.",
		ConstLabels: prometheus.Labels{"source": string(source)},
	}, remaining)
}
