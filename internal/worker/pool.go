package worker

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers returns the pool size used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Map applies fn to every item with at most workers concurrent calls and
// returns the results in input order. A non-positive workers value means
// DefaultWorkers.
//
// fn must capture per-item failures in R. Map only returns an error when
// ctx is canceled; results for items that never ran are zero values.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) R) ([]R, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = fn(gctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
