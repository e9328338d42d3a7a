package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"NewsAggregator/internal/domain"
)

const devToEndpoint = "https://dev.to/api/articles"

// DevTo reads rising articles tagged artificial-intelligence.
type DevTo struct {
	base
}

// NewDevTo builds the adapter.
func NewDevTo(opts ...Option) *DevTo {
	return &DevTo{base: newBase(domain.SourceDevTo, devToEndpoint, opts)}
}

type devToArticle struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Reactions   int       `json:"positive_reactions_count"`
	Comments    int       `json:"comments_count"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
	TagList []string `json:"tag_list"`
}

// Fetch returns up to limit articles.
func (d *DevTo) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	q := url.Values{}
	q.Set("tag", "artificial-intelligence")
	q.Set("state", "rising")
	q.Set("per_page", fmt.Sprint(limit))

	var articles []devToArticle
	if err := d.getJSON(ctx, d.endpoint+"?"+q.Encode(), nil, &articles); err != nil {
		return nil, err
	}

	items := make([]domain.NewsItem, 0, len(articles))
	for _, a := range articles {
		reactions := float64(a.Reactions)
		comments := a.Comments
		published := a.PublishedAt
		if published.IsZero() {
			published = d.now()
		}
		description := cleanText(a.Description)

		item := domain.NewsItem{
			ID:          fmt.Sprintf("devto-%d", a.ID),
			Title:       a.Title,
			URL:         a.URL,
			Source:      domain.SourceDevTo,
			PublishedAt: published,
			Summary:     truncateSummary(description),
			Score:       &reactions,
			Comments:    &comments,
			By:          a.User.Name,
		}
		tag(&item, strings.Join([]string{a.Title, description, strings.Join(a.TagList, " ")}, " "))
		items = append(items, item)
	}
	return items, nil
}
