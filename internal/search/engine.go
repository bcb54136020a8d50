// Package search runs stop lookups for one configuration session,
// caching each answer for a few minutes.
package search

import (
	"context"
	"log/slog"
	"strings"

	"transitmon/internal/departure"
	"transitmon/internal/provider"
	"transitmon/internal/relevance"
)

// Engine answers searches against one provider. Each session gets its own
// engine so caches are never shared between sessions.
type Engine struct {
	provider provider.Provider
	cache    *Cache
	logger   *slog.Logger
}

// NewEngine creates an engine with a fresh cache.
func NewEngine(p provider.Provider, logger *slog.Logger) *Engine {
	return &Engine{
		provider: p,
		cache:    NewCache(DefaultTTL, DefaultMaxEntries),
		logger:   logger.With("provider", p.ID()),
	}
}

// Provider returns the provider the engine searches.
func (e *Engine) Provider() provider.Provider { return e.provider }

// Search returns up to 10 candidates for term. It never fails: upstream
// errors produce an empty list, which is not cached.
func (e *Engine) Search(ctx context.Context, kind provider.SearchKind, term string) []departure.Stop {
	if strings.TrimSpace(term) == "" {
		return []departure.Stop{}
	}

	key := CacheKey(e.provider.ID(), kind, term)
	if stops, ok := e.cache.Get(key); ok {
		e.logger.Debug("search cache hit", "key", key, "results", len(stops))
		return stops
	}

	stops, err := e.lookup(ctx, kind, term)
	if err != nil {
		e.logger.Warn("stop search failed", "kind", kind, "term", term, "error", err)
		return []departure.Stop{}
	}
	if stops == nil {
		stops = []departure.Stop{}
	}
	if len(stops) > relevance.MaxResults {
		stops = stops[:relevance.MaxResults]
	}
	e.cache.Set(key, stops)
	return stops
}

func (e *Engine) lookup(ctx context.Context, kind provider.SearchKind, term string) ([]departure.Stop, error) {
	if kind == provider.SearchLocation {
		ps, ok := e.provider.(provider.PlaceSearcher)
		if !ok {
			return []departure.Stop{}, nil
		}
		return ps.SearchPlaces(ctx, term)
	}
	return e.provider.SearchStops(ctx, term)
}
