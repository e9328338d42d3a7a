package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsAggregator/internal/domain"
)

const techmemeEndpoint = "https://techmeme.com/"

var techmemeTimeLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02 15:04:05",
	"January 2, 2006, 3:04 PM",
	"3:04 PM, January 2, 2006",
}

// Techmeme scrapes headline clusters from the Techmeme front page.
type Techmeme struct {
	base
}

// NewTechmeme builds the adapter.
func NewTechmeme(opts ...Option) *Techmeme {
	return &Techmeme{base: newBase(domain.SourceTechmeme, techmemeEndpoint, opts)}
}

// Fetch returns up to limit headlines.
func (t *Techmeme) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	resp, err := t.get(ctx, t.endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, t.parseError(fmt.Errorf("parse document: %w", err))
	}

	return t.extractItems(doc, limit), nil
}

func (t *Techmeme) extractItems(doc *goquery.Document, limit int) []domain.NewsItem {
	var items []domain.NewsItem

	nodes := doc.Find(".item")
	if limit > 0 && nodes.Length() > limit {
		nodes = nodes.Slice(0, limit)
	}
	nodes.Each(func(_ int, sel *goquery.Selection) {
		item, ok := t.parseItem(sel)
		if ok {
			items = append(items, item)
		}
	})
	return items
}

func (t *Techmeme) parseItem(sel *goquery.Selection) (domain.NewsItem, bool) {
	headline := sel.Find(".ourh").First()
	title := strings.TrimSpace(headline.Text())

	href, ok := headline.Attr("href")
	if !ok {
		href, _ = headline.Find("a").First().Attr("href")
	}
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return domain.NewsItem{}, false
	}

	summary := cleanText(sel.Find(".ii").First().Text())
	item := domain.NewsItem{
		ID:          stableID("tm", href),
		Title:       title,
		URL:         href,
		Source:      domain.SourceTechmeme,
		PublishedAt: t.parseTimestamp(sel.Find(".timestamp").First().Text()),
		Summary:     truncateSummary(summary),
		By:          strings.TrimSpace(sel.Find(".source").First().Text()),
	}
	tag(&item, title+" "+summary)
	return item, true
}

func (t *Techmeme) parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range techmemeTimeLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts
			}
		}
	}
	return t.now()
}
