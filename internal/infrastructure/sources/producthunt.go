package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/resilience"
)

const productHuntEndpoint = "https://api.producthunt.com/v2/api/graphql"

const productHuntQuery = `query {
  posts(first: %d, topic: "ARTIFICIAL_INTELLIGENCE") {
    edges {
      node {
        id
        name
        tagline
        description
        url
        votesCount
        commentsCount
        createdAt
        topics { edges { node { name } } }
      }
    }
  }
}`

// ProductHunt reads AI launches from the Product Hunt GraphQL API. Without
// a token the source is skipped.
type ProductHunt struct {
	base
	token string
}

// NewProductHunt builds the adapter; token may be empty.
func NewProductHunt(token string, opts ...Option) *ProductHunt {
	return &ProductHunt{base: newBase(domain.SourceProductHunt, productHuntEndpoint, opts), token: token}
}

type productHuntPost struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Tagline       string    `json:"tagline"`
	Description   string    `json:"description"`
	URL           string    `json:"url"`
	VotesCount    int       `json:"votesCount"`
	CommentsCount int       `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type productHuntResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node productHuntPost `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Fetch returns up to limit posts.
func (p *ProductHunt) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	if p.token == "" {
		return nil, nil
	}

	body, err := json.Marshal(map[string]string{"query": fmt.Sprintf(productHuntQuery, limit)})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.do(req)
	if err != nil {
		var statusErr *resilience.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			// Invalid token: skip the source rather than fail the run.
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	var payload productHuntResponse
	if err := p.decode(resp.Body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Errors) > 0 && len(payload.Data.Posts.Edges) == 0 {
		return nil, fmt.Errorf("graphql: %s", payload.Errors[0].Message)
	}

	items := make([]domain.NewsItem, 0, len(payload.Data.Posts.Edges))
	for _, edge := range payload.Data.Posts.Edges {
		items = append(items, p.toItem(edge.Node))
	}
	return items, nil
}

func (p *ProductHunt) toItem(post productHuntPost) domain.NewsItem {
	description := cleanText(post.Description)
	summary := truncateSummary(description)
	if summary == "" {
		summary = post.Tagline
	}

	votes := float64(post.VotesCount)
	comments := post.CommentsCount
	published := post.CreatedAt
	if published.IsZero() {
		published = p.now()
	}

	item := domain.NewsItem{
		ID:          "ph-" + post.ID,
		Title:       post.Name + " - " + post.Tagline,
		URL:         post.URL,
		Source:      domain.SourceProductHunt,
		PublishedAt: published,
		Summary:     summary,
		Score:       &votes,
		Comments:    &comments,
	}
	tag(&item, strings.Join([]string{post.Name, post.Tagline, description}, " "))
	return item
}
