package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	notifier ports.Notifier
	logger   *slog.Logger
	location *time.Location
}

// NewScheduler returns a helper to start/stop recurring refreshes. The
// notifier may be nil, in which case no digest is published.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, notifier ports.Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, notifier: notifier, logger: logger}
}

// WithLocation renders digest timestamps in loc instead of UTC.
func (s *Scheduler) WithLocation(loc *time.Location) *Scheduler {
	s.location = loc
	return s
}

// Start registers the refresh job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Refresh(ctx, trigger)
	})
}

// Refresh runs the pipeline once and publishes a digest of fresh results.
func (s *Scheduler) Refresh(ctx context.Context, trigger time.Time) {
	report := s.pipeline.Run(ctx, domain.Filters{})
	log := s.logger.With("run_id", report.RunID, "trigger", trigger)

	if report.Result.Error != "" {
		log.Warn("scheduled refresh failed", "error", report.Result.Error)
		return
	}
	if !report.Fresh || len(report.Result.Items) == 0 || s.notifier == nil {
		log.Debug("scheduled refresh produced no digest", "fresh", report.Fresh, "items", len(report.Result.Items))
		return
	}

	at := trigger.UTC()
	if s.location != nil {
		at = trigger.In(s.location)
	}
	if err := s.notifier.PublishDigest(ctx, FormatDigest(report.Result.Items, at)); err != nil {
		log.Error("publish digest failed", "error", err)
		return
	}
	log.Info("digest published", "items", len(report.Result.Items))
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// FormatDigest renders items as a Markdown message.
func FormatDigest(items []domain.NewsItem, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*AI news for small business* (%s)\n", at.Format("2006-01-02 15:04 MST"))
	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. [%s](%s)\n   %s · %s · %.2f",
			i+1, escapeMarkdown(item.Title), item.URL, item.Source, item.PriorityOrDefault(), item.RelevanceScore)
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer("[", "(", "]", ")", "*", "", "_", " ", "`", "'")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
