package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every item concurrently and returns the results in input order.
// limit caps the number of in-flight calls; zero or negative means unlimited.
// fn must report failures through its result: a failing item never cancels its siblings.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = fn(gctx, i, item)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
