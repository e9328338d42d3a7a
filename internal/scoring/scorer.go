package scoring

import (
	"math"
	"strings"
	"time"

	"NewsAggregator/internal/domain"
)

const (
	// ScreeningFloor is returned for items that miss every screening group.
	ScreeningFloor = 0.1

	qualityStep     = 0.1
	qualityCap      = 1.5
	recencyMaxBoost = 0.2
	recencyWindow   = 48 * time.Hour
)

// Breakdown exposes the intermediate values of one scoring pass.
type Breakdown struct {
	Screening         map[string]bool
	PassRate          float64
	Screened          bool
	CategoryRatios    map[Category]float64
	BaseScore         float64
	QualityMatches    int
	QualityMultiplier float64
	RecencyBoost      float64
	Final             float64
}

// Scorer maps items to a relevance score in [0,1]. It holds no mutable
// state; the clock is only consulted by Score.
type Scorer struct {
	now func() time.Time
}

// NewScorer builds a scorer; a nil clock defaults to time.Now.
func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score evaluates item against the current clock.
func (s *Scorer) Score(item domain.NewsItem) float64 {
	return s.ScoreAt(item, s.now())
}

// ScoreAt evaluates item as of now. Identical inputs give identical output.
func (s *Scorer) ScoreAt(item domain.NewsItem, now time.Time) float64 {
	return Explain(item, now).Final
}

// Explain runs both scoring stages and returns every intermediate value.
func Explain(item domain.NewsItem, now time.Time) Breakdown {
	text := itemText(item)

	b := Breakdown{Screening: make(map[string]bool, len(screeningGroups))}
	passed := 0
	for _, group := range screeningGroups {
		ok := ContainsAny(text, group.terms)
		b.Screening[group.name] = ok
		if ok {
			passed++
		}
	}
	b.PassRate = float64(passed) / float64(len(screeningGroups))
	if passed == 0 {
		b.Final = ScreeningFloor
		return b
	}
	b.Screened = true

	b.CategoryRatios = make(map[Category]float64, len(weightedCategories))
	for _, wc := range weightedCategories {
		ratio := float64(countMatches(text, wc.keywords)) / float64(len(wc.keywords))
		b.CategoryRatios[wc.name] = ratio
		b.BaseScore += ratio * wc.weight
	}

	for _, list := range qualityIndicators {
		b.QualityMatches += countMatches(text, list)
	}
	b.QualityMultiplier = math.Min(1+qualityStep*float64(b.QualityMatches), qualityCap)

	b.RecencyBoost = recencyBoost(item.PublishedAt, now)
	b.Final = clamp(b.BaseScore*b.QualityMultiplier+b.RecencyBoost, 0, 1)
	return b
}

// recencyBoost decays linearly to zero over the recency window. Items dated
// in the future are treated as published now.
func recencyBoost(publishedAt, now time.Time) float64 {
	age := now.Sub(publishedAt)
	if age < 0 {
		age = 0
	}
	ageHours := age.Hours()
	return math.Max(0, recencyMaxBoost*(1-ageHours/recencyWindow.Hours()))
}

func itemText(item domain.NewsItem) string {
	return strings.ToLower(item.Title + " " + item.Summary)
}

// ContainsAny reports whether lower-cased text contains any of terms.
func ContainsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func countMatches(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
