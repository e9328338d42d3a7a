package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsAggregator/internal/domain"
)

const (
	hackerNewsEndpoint    = "https://hacker-news.firebaseio.com/v0"
	hackerNewsItemURL     = "https://news.ycombinator.com/item?id=%d"
	hackerNewsConcurrency = 5
)

// HackerNews reads the current top stories from the Firebase API.
type HackerNews struct {
	base
}

// NewHackerNews builds the adapter.
func NewHackerNews(opts ...Option) *HackerNews {
	return &HackerNews{base: newBase(domain.SourceHackerNews, hackerNewsEndpoint, opts)}
}

type hackerNewsStory struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Fetch loads the top story ids and then up to limit stories. Stories that
// fail to load are skipped.
func (h *HackerNews) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	root := strings.TrimSuffix(h.endpoint, "/")

	var ids []int
	if err := h.getJSON(ctx, root+"/topstories.json", nil, &ids); err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	stories := make([]*hackerNewsStory, len(ids))
	var eg errgroup.Group
	eg.SetLimit(hackerNewsConcurrency)
	for i, id := range ids {
		eg.Go(func() error {
			var story hackerNewsStory
			if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", root, id), nil, &story); err != nil {
				return nil
			}
			stories[i] = &story
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]domain.NewsItem, 0, len(stories))
	for _, story := range stories {
		if story == nil || story.Dead || story.Deleted || story.Title == "" {
			continue
		}
		items = append(items, h.toItem(*story))
	}
	return items, nil
}

func (h *HackerNews) toItem(story hackerNewsStory) domain.NewsItem {
	link := story.URL
	if link == "" {
		link = fmt.Sprintf(hackerNewsItemURL, story.ID)
	}
	published := h.now()
	if story.Time > 0 {
		published = time.Unix(story.Time, 0).UTC()
	}
	score := float64(story.Score)
	comments := story.Descendants
	text := cleanText(story.Text)

	item := domain.NewsItem{
		ID:          fmt.Sprintf("hn-%d", story.ID),
		Title:       story.Title,
		URL:         link,
		Source:      domain.SourceHackerNews,
		PublishedAt: published,
		Summary:     truncateSummary(text),
		Score:       &score,
		Comments:    &comments,
		By:          story.By,
	}
	tag(&item, story.Title+" "+text)
	return item
}
