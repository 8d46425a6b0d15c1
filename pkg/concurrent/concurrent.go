package concurrent

import (
	"context"

	"github.com/zeusync/engine/pkg/sequence"
	"golang.org/x/sync/errgroup"
)

// ParallelMap applies mapFn to each element in parallel, preserving input order in the result.
// The first error cancels the remaining work and is returned.
func ParallelMap[T any, R any](ctx context.Context, i *sequence.Iterator[T], workers int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	in := i.Collect()
	out := make([]R, len(in))

	group, groupCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}

	for idx, val := range in {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			r, err := mapFn(groupCtx, val)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
