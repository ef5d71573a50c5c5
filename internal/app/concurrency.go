package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PartialResult holds the outcome of one job of ParallelPartialLimit.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartialLimit runs fns with at most limit of them in flight and
// collects every outcome in input order. One failure never cancels the
// others. Jobs not yet started when ctx is done report ctx.Err().
func ParallelPartialLimit[T any](
	ctx context.Context,
	limit int,
	fns ...func(context.Context) (T, error),
) []PartialResult[T] {
	results := make([]PartialResult[T], len(fns))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, fn := range fns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = PartialResult[T]{Err: err}
				return nil
			}

			value, err := fn(ctx)
			results[i] = PartialResult[T]{Value: value, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// Tally counts successes and failures of a batch.
type Tally struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// TallyResults counts the entries of results with and without an error.
func TallyResults[T any](results []PartialResult[T]) Tally {
	var t Tally

	for _, r := range results {
		if r.Err != nil {
			t.Failed++
		} else {
			t.Succeeded++
		}
	}

	return t
}
