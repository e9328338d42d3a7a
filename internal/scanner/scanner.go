package scanner

import (
	"context"

	"NewsAggregator/internal/domain"
)

// Scanner fetches normalized candidate items from one external provider.
// Implementations classify their own failures where they can (for example
// decode errors as parse failures); anything else is classified by the
// resilience layer.
type Scanner interface {
	Name() domain.Source
	Fetch(ctx context.Context, limit int) ([]domain.NewsItem, error)
}

// Registry keeps scanners keyed by source in registration order.
type Registry struct {
	scanners map[domain.Source]Scanner
	order    []domain.Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[domain.Source]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[domain.Source]Scanner{}
	}
	name := scanner.Name()
	if _, exists := r.scanners[name]; !exists {
		r.order = append(r.order, name)
	}
	r.scanners[name] = scanner
}

// All returns the registered scanners in registration order.
func (r *Registry) All() []Scanner {
	out := make([]Scanner, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.scanners[name])
	}
	return out
}
