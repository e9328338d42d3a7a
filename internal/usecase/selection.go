package usecase

import (
	"cmp"
	"slices"

	"NewsAggregator/internal/domain"
)

// Select keeps items scoring at least minScore, orders them by descending
// score, and caps each source at perSource items. Sources keep the order in
// which they first appear in the ranked list, and each source contributes
// one contiguous slice; the result is not re-interleaved by score.
func Select(scored []domain.ScoredItem, minScore float64, perSource int) []domain.ScoredItem {
	relevant := make([]domain.ScoredItem, 0, len(scored))
	for _, s := range scored {
		if s.Score >= minScore {
			relevant = append(relevant, s)
		}
	}

	slices.SortStableFunc(relevant, func(a, b domain.ScoredItem) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return diversify(relevant, perSource)
}

func diversify(ranked []domain.ScoredItem, perSource int) []domain.ScoredItem {
	var order []domain.Source
	bySource := make(map[domain.Source][]domain.ScoredItem)
	for _, s := range ranked {
		src := s.Item.Source
		if _, seen := bySource[src]; !seen {
			order = append(order, src)
		}
		bySource[src] = append(bySource[src], s)
	}

	out := make([]domain.ScoredItem, 0, len(ranked))
	for _, src := range order {
		group := bySource[src]
		if perSource > 0 && len(group) > perSource {
			group = group[:perSource]
		}
		out = append(out, group...)
	}
	return out
}

// dedupe drops items whose ID was already seen, keeping the first.
func dedupe(items []domain.NewsItem) []domain.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func applyFilters(items []domain.NewsItem, filters domain.Filters) []domain.NewsItem {
	if filters.Empty() {
		return items
	}
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if filters.Match(item) {
			out = append(out, item)
		}
	}
	return out
}
