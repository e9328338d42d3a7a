package sources

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/scoring"
)

const (
	summaryLimit  = 200
	summaryCutoff = 197
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	spaceExpr   = regexp.MustCompile(`\s+`)
)

// cleanText strips markup and collapses whitespace.
func cleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(raw))
	return strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
}

// truncateSummary keeps summaries under 200 characters, cutting at 197 and
// appending an ellipsis.
func truncateSummary(s string) string {
	if utf8.RuneCountInString(s) <= summaryLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:summaryCutoff]) + "..."
}

// stableID derives a deterministic id from an upstream key.
func stableID(prefix, key string) string {
	return prefix + "-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// tag fills priority and content categories from text.
func tag(item *domain.NewsItem, text string) {
	item.Priority = scoring.DeterminePriority(text)
	item.ContentCategory = scoring.Categorize(text)
}
