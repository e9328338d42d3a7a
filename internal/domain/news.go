package domain

import (
	"slices"
	"time"
)

// Source names one external content provider.
type Source string

const (
	SourceProductHunt Source = "Product Hunt"
	SourceGitHub      Source = "GitHub"
	SourceDevTo       Source = "Dev.to"
	SourceTechCrunch  Source = "TechCrunch"
	SourceVerge       Source = "The Verge"
	SourceHackerNews  Source = "Hacker News"
	SourceTechmeme    Source = "Techmeme"
)

// KnownSources lists every provider the aggregator can be configured with.
func KnownSources() []Source {
	return []Source{
		SourceProductHunt,
		SourceGitHub,
		SourceDevTo,
		SourceTechCrunch,
		SourceVerge,
		SourceHackerNews,
		SourceTechmeme,
	}
}

// Valid reports whether s belongs to the enumerated source set.
func (s Source) Valid() bool {
	return slices.Contains(KnownSources(), s)
}

// Priority is the coarse audience classification assigned by adapters.
type Priority string

const (
	PriorityBusiness       Priority = "business"
	PriorityIndustry       Priority = "industry"
	PriorityImplementation Priority = "implementation"
	PriorityGeneral        Priority = "general"
)

// NewsItem is a normalized article or post before (or after) scoring.
type NewsItem struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Source          Source    `json:"source"`
	PublishedAt     time.Time `json:"publishedAt"`
	Priority        Priority  `json:"priority,omitempty"`
	ContentCategory []string  `json:"contentCategory,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Score           *float64  `json:"score,omitempty"`
	Comments        *int      `json:"comments,omitempty"`
	By              string    `json:"by,omitempty"`
	RelevanceScore  float64   `json:"relevanceScore,omitempty"`
}

// PriorityOrDefault returns the item priority, falling back to general.
func (n NewsItem) PriorityOrDefault() Priority {
	if n.Priority == "" {
		return PriorityGeneral
	}
	return n.Priority
}

// HasCategory reports whether the item is tagged with category.
func (n NewsItem) HasCategory(category string) bool {
	return slices.Contains(n.ContentCategory, category)
}

// ScoredItem pairs an item with the relevance score computed for one run.
type ScoredItem struct {
	Item  NewsItem
	Score float64
}

// PersistedRecord is the durable snapshot row for one item.
type PersistedRecord struct {
	Item           NewsItem
	RelevanceScore float64
	ExpiresAt      time.Time
}

// Filters narrows a selection; empty fields impose no constraint.
type Filters struct {
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Empty reports whether no filter field is set.
func (f Filters) Empty() bool {
	return f.Category == "" && f.Priority == "" && f.Source == ""
}

// Match applies all set fields as an AND predicate.
func (f Filters) Match(item NewsItem) bool {
	if f.Category != "" && !item.HasCategory(f.Category) {
		return false
	}
	if f.Priority != "" && string(item.Priority) != f.Priority {
		return false
	}
	if f.Source != "" && string(item.Source) != f.Source {
		return false
	}
	return true
}

// SelectionResult is what callers of the pipeline receive. An empty Items
// list with a non-empty Error means total failure; an empty list without
// Error means nothing qualified and no snapshot was available.
type SelectionResult struct {
	Items []NewsItem `json:"items"`
	Error string     `json:"error,omitempty"`
}
