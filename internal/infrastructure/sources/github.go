package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/scoring"
)

const githubEndpoint = "https://api.github.com"

var githubTopics = []string{
	"ai-business",
	"business-automation",
	"enterprise-ai",
	"ai-saas",
	"llm-business",
	"ai-workflow",
	"machine-learning-business",
	"ai-enterprise",
	"business-intelligence-ai",
}

var (
	githubAITerms       = []string{"ai", "artificial intelligence", "machine learning", "llm", "gpt"}
	githubBusinessTerms = []string{"business", "enterprise", "saas", "workflow", "automation"}
)

const githubPopularStars = 50

// GitHub searches recently created, well-starred repositories across a set
// of AI-for-business topics.
type GitHub struct {
	base
	token string
}

// NewGitHub builds the adapter; token may be empty.
func NewGitHub(token string, opts ...Option) *GitHub {
	return &GitHub{base: newBase(domain.SourceGitHub, githubEndpoint, opts), token: token}
}

type githubRepo struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	HTMLURL     string    `json:"html_url"`
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	CreatedAt   time.Time `json:"created_at"`
	Topics      []string  `json:"topics"`
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

// Fetch runs one search per topic. Individual topic failures are tolerated;
// the source fails only when every search fails.
func (g *GitHub) Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	perPage := limit / len(githubTopics)
	if perPage < 1 {
		perPage = 1
	}
	since := g.now().AddDate(0, 0, -7).Format("2006-01-02")

	header := http.Header{}
	header.Set("Accept", "application/vnd.github.v3+json")
	if g.token != "" {
		header.Set("Authorization", "token "+g.token)
	}

	var (
		mu       sync.Mutex
		repos    []githubRepo
		failures []error
	)
	var eg errgroup.Group
	for _, topic := range githubTopics {
		eg.Go(func() error {
			var payload githubSearchResponse
			err := g.getJSON(ctx, g.searchURL(topic, since, perPage), header, &payload)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return nil
			}
			repos = append(repos, payload.Items...)
			return nil
		})
	}
	_ = eg.Wait()

	if len(failures) == len(githubTopics) {
		return nil, fmt.Errorf("all %d searches failed: %w", len(failures), failures[0])
	}

	seen := make(map[string]struct{}, len(repos))
	items := make([]domain.NewsItem, 0, len(repos))
	for _, repo := range repos {
		if !aiBusinessRelated(repo) {
			continue
		}
		item := g.toItem(repo)
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func (g *GitHub) searchURL(topic, since string, perPage int) string {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s in:topics created:>=%s stars:>100", topic, since))
	q.Set("sort", "stars")
	q.Set("order", "desc")
	q.Set("per_page", fmt.Sprint(perPage))
	return strings.TrimSuffix(g.endpoint, "/") + "/search/repositories?" + q.Encode()
}

func (g *GitHub) toItem(repo githubRepo) domain.NewsItem {
	description := repo.Description
	title := description
	if title == "" {
		title = "New AI Repository"
	}
	stars := float64(repo.Stars)
	published := repo.CreatedAt
	if published.IsZero() {
		published = g.now()
	}

	item := domain.NewsItem{
		ID:          fmt.Sprintf("gh-%s-%s", repo.Owner.Login, repo.Name),
		Title:       repo.Name + " - " + title,
		URL:         repo.HTMLURL,
		Source:      domain.SourceGitHub,
		PublishedAt: published,
		Score:       &stars,
		By:          repo.Owner.Login,
		Summary: fmt.Sprintf("%s | %d stars | Topics: %s",
			description, repo.Stars, strings.Join(repo.Topics, ", ")),
	}
	tag(&item, repoText(repo))
	return item
}

func repoText(repo githubRepo) string {
	return repo.Name + " " + repo.Description + " " + strings.Join(repo.Topics, " ")
}

func aiBusinessRelated(repo githubRepo) bool {
	text := strings.ToLower(repoText(repo))
	hasAI := scoring.ContainsAny(text, githubAITerms)
	return hasAI && (scoring.ContainsAny(text, githubBusinessTerms) || repo.Stars > githubPopularStars)
}

