package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAggregator/internal/domain"
)

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestScoreAtPracticalToolArticle(t *testing.T) {
	t.Parallel()

	item := domain.NewsItem{
		Title:       "Free AI automation tool for solopreneurs — step by step setup guide",
		PublishedAt: fixedNow,
	}

	b := Explain(item, fixedNow)
	require.True(t, b.Screened)
	assert.Equal(t, 1.0, b.PassRate)
	assert.Equal(t, 2, b.QualityMatches)
	assert.InDelta(t, 1.2, b.QualityMultiplier, 1e-12)
	assert.InDelta(t, 0.2, b.RecencyBoost, 1e-12)

	// 2/15*0.4 + 3/15*0.3 + 1/15*0.2, times 1.2, plus the full recency boost.
	assert.InDelta(t, 0.352, b.Final, 1e-9)
	assert.Greater(t, b.Final, 0.3)
}

func TestScoreAtFailsScreening(t *testing.T) {
	t.Parallel()

	item := domain.NewsItem{
		Title:       "New database internals",
		Summary:     "kernel scheduler redesign",
		PublishedAt: fixedNow.Add(-72 * time.Hour),
	}

	assert.Equal(t, ScreeningFloor, NewScorer(nil).ScoreAt(item, fixedNow))
}

func TestScreeningGateIgnoresCategoryDensity(t *testing.T) {
	t.Parallel()

	item := domain.NewsItem{
		Title:       "How to guide: tutorial, case study, example walkthrough",
		Summary:     "deploy and integrate, getting started, best practice",
		PublishedAt: fixedNow,
	}

	b := Explain(item, fixedNow)
	assert.False(t, b.Screened)
	assert.Equal(t, 0.1, b.Final)
}

func TestScoreAtIsClampedToOne(t *testing.T) {
	t.Parallel()

	var all []string
	for _, wc := range weightedCategories {
		all = append(all, wc.keywords...)
	}
	for _, list := range qualityIndicators {
		all = append(all, list...)
	}

	item := domain.NewsItem{
		Title:       strings.Join(all, " | "),
		PublishedAt: fixedNow,
	}

	score := NewScorer(nil).ScoreAt(item, fixedNow)
	assert.Equal(t, 1.0, score)
}

func TestScoreAtBounds(t *testing.T) {
	t.Parallel()

	titles := []string{
		"",
		"startup",
		"Affordable workflow automation for small business owners",
		"Pricing plan overview for freelancers: a simple introduction",
		"Quarterly results",
	}
	ages := []time.Duration{0, time.Hour, 24 * time.Hour, 47 * time.Hour, 30 * 24 * time.Hour, -5 * time.Hour}

	scorer := NewScorer(nil)
	for _, title := range titles {
		for _, age := range ages {
			item := domain.NewsItem{Title: title, PublishedAt: fixedNow.Add(-age)}
			score := scorer.ScoreAt(item, fixedNow)
			assert.GreaterOrEqual(t, score, 0.0, "title=%q age=%s", title, age)
			assert.LessOrEqual(t, score, 1.0, "title=%q age=%s", title, age)
		}
	}
}

func TestScoreAtDeterministic(t *testing.T) {
	t.Parallel()

	item := domain.NewsItem{
		Title:       "Startup guide to affordable AI integration",
		Summary:     "A real world case study with ROI breakdown",
		PublishedAt: fixedNow.Add(-5 * time.Hour),
	}

	scorer := NewScorer(nil)
	first := scorer.ScoreAt(item, fixedNow)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, scorer.ScoreAt(item, fixedNow))
	}
}

func TestScoreAtRecencyMonotonic(t *testing.T) {
	t.Parallel()

	base := domain.NewsItem{
		Title:   "Workflow automation for small business",
		Summary: "pricing tutorial",
	}

	scorer := NewScorer(nil)
	ages := []time.Duration{0, 6 * time.Hour, 24 * time.Hour, 47 * time.Hour, 48 * time.Hour, 96 * time.Hour}

	prev := 2.0
	for _, age := range ages {
		item := base
		item.PublishedAt = fixedNow.Add(-age)
		score := scorer.ScoreAt(item, fixedNow)
		assert.LessOrEqual(t, score, prev, "age=%s", age)
		prev = score
	}

	old := base
	old.PublishedAt = fixedNow.Add(-48 * time.Hour)
	older := base
	older.PublishedAt = fixedNow.Add(-400 * time.Hour)
	assert.Equal(t, scorer.ScoreAt(old, fixedNow), scorer.ScoreAt(older, fixedNow))
	assert.Equal(t, 0.0, Explain(older, fixedNow).RecencyBoost)
}

func TestRecencyBoostTreatsFutureDatesAsNew(t *testing.T) {
	t.Parallel()

	item := domain.NewsItem{
		Title:       "Free AI automation tool for solopreneurs",
		PublishedAt: fixedNow.Add(6 * time.Hour),
	}

	b := Explain(item, fixedNow)
	assert.InDelta(t, 0.2, b.RecencyBoost, 1e-12)
	assert.InDelta(t, Explain(domain.NewsItem{Title: item.Title, PublishedAt: fixedNow}, fixedNow).Final, b.Final, 1e-12)
	assert.LessOrEqual(t, b.Final, 1.0)
}

func TestScoreUsesInjectedClock(t *testing.T) {
	t.Parallel()

	item := domain.NewsItem{Title: "free startup tool", PublishedAt: fixedNow}
	scorer := NewScorer(func() time.Time { return fixedNow })

	assert.Equal(t, scorer.ScoreAt(item, fixedNow), scorer.Score(item))
}

func TestCategoryWeightsSumToOne(t *testing.T) {
	t.Parallel()

	var total float64
	for _, wc := range weightedCategories {
		total += wc.weight
	}
	assert.InDelta(t, 1.0, total, 1e-12)
}
