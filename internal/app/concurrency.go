package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FanOut runs fn over items using at most workers goroutines and stops at the first error.
func FanOut[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	work := make(chan T)

	for range workers {
		g.Go(func() error {
			for item := range work {
				if err := fn(ctx, item); err != nil {
					return err
				}
			}

			return nil
		})
	}

	g.Go(func() error {
		defer close(work)

		for _, item := range items {
			select {
			case work <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fan out failed: %w", err)
	}

	return nil
}
