package workpool

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task, stored at the task's input index.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Run executes fn for every item on at most limit goroutines and waits for
// all of them. A failing task does not cancel its siblings; every item gets
// a Result. Items not yet started when ctx is cancelled report ctx.Err().
func Run[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if limit <= 0 {
		limit = 1
	}
	results := make([]Result[R], len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			results[i].Index = i
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			value, err := fn(ctx, item)
			results[i].Value = value
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Succeeded counts results without an error.
func Succeeded[R any](results []Result[R]) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Errors joins every task error in index order, or returns nil.
func Errors[R any](results []Result[R]) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
