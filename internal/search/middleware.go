package search

import (
	"context"
	"strconv"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// Cached serves repeated queries from c. Errors are never cached.
func Cached(r Retriever, c cache.Cache, ttl time.Duration) Retriever {
	if c == nil {
		return r
	}
	return &cachedRetriever{next: r, cache: c, ttl: ttl}
}

type cachedRetriever struct {
	next  Retriever
	cache cache.Cache
	ttl   time.Duration
}

func (c *cachedRetriever) Name() string { return c.next.Name() }

func (c *cachedRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	key := cache.Key("search", c.next.Name(), strconv.Itoa(limit), query)

	var sources []model.Source
	if cache.GetJSON(c.cache, key, &sources) {
		return sources, nil
	}

	sources, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(c.cache, key, sources, c.ttl)
	return sources, nil
}

// Limited waits on l, keyed by the retriever name, before each query
func Limited(r Retriever, l *worker.Limiter) Retriever {
	if l == nil {
		return r
	}
	return &limitedRetriever{next: r, limiter: l}
}

type limitedRetriever struct {
	next    Retriever
	limiter *worker.Limiter
}

func (l *limitedRetriever) Name() string { return l.next.Name() }

func (l *limitedRetriever) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	if err := l.limiter.Wait(ctx, l.next.Name()); err != nil {
		return nil, err
	}
	return l.next.Search(ctx, query, limit)
}
