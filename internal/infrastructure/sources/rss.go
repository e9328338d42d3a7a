package sources

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"NewsAggregator/internal/domain"
)

const (
	techCrunchFeed = "https://techcrunch.com/tag/artificial-intelligence/feed/"
	vergeFeed      = "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml"
)

// Feed reads items from an RSS or Atom feed.
type Feed struct {
	base
	idPrefix string
}

// NewTechCrunch builds the TechCrunch AI feed adapter.
func NewTechCrunch(opts ...Option) *Feed {
	return &Feed{base: newBase(domain.SourceTechCrunch, techCrunchFeed, opts), idPrefix: "tc"}
}

// NewVerge builds The Verge AI feed adapter.
func NewVerge(opts ...Option) *Feed {
	return &Feed{base: newBase(domain.SourceVerge, vergeFeed, opts), idPrefix: "verge"}
}

// Fetch returns the first limit feed entries.
func (f *Feed) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	resp, err := f.get(ctx, f.endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, f.parseError(fmt.Errorf("parse feed: %w", err))
	}

	entries := feed.Items
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]domain.NewsItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, f.toItem(entry))
	}
	return items, nil
}

func (f *Feed) toItem(entry *gofeed.Item) domain.NewsItem {
	key := entry.GUID
	if key == "" {
		key = entry.Link
	}

	snippet := cleanText(entry.Description)
	if snippet == "" {
		snippet = cleanText(entry.Content)
	}

	published := f.now()
	switch {
	case entry.PublishedParsed != nil:
		published = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		published = *entry.UpdatedParsed
	}

	item := domain.NewsItem{
		ID:          stableID(f.idPrefix, key),
		Title:       entry.Title,
		URL:         entry.Link,
		Source:      f.source,
		PublishedAt: published,
		Summary:     truncateSummary(snippet),
	}
	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		item.By = entry.Authors[0].Name
	}
	tag(&item, entry.Title+" "+snippet)
	return item
}
