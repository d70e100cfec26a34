package search

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Multi queries several retrievers concurrently and merges their results in
// retriever order, dropping duplicate URLs.
type Multi struct {
	retrievers []Retriever
}

// NewMulti combines retrievers; order decides which duplicate wins
func NewMulti(retrievers ...Retriever) *Multi {
	return &Multi{retrievers: retrievers}
}

// Name lists the combined retrievers
func (m *Multi) Name() string {
	names := make([]string, len(m.retrievers))
	for i, r := range m.retrievers {
		names[i] = r.Name()
	}
	return strings.Join(names, "+")
}

// Search fails only when every retriever fails; partial failures are logged
func (m *Multi) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	if len(m.retrievers) == 0 {
		return nil, nil
	}

	results := make([][]model.Source, len(m.retrievers))
	errs := make([]error, len(m.retrievers))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range m.retrievers {
		i, r := i, r
		g.Go(func() error {
			sources, err := r.Search(gctx, query, limit)
			if err != nil {
				zap.L().Warn("search: retriever failed",
					zap.String("retriever", r.Name()),
					zap.String("query", query),
					zap.Error(err),
				)
				errs[i] = err
				return nil
			}
			results[i] = sources
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.Source
	failed := 0
	for i := range m.retrievers {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}

	if failed == len(m.retrievers) {
		return nil, eris.Wrap(errors.Join(errs...), "search: all retrievers failed")
	}

	merged = dedupeSources(merged)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
