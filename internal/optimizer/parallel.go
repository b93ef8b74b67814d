package optimizer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"SharpeSentinel/internal/enumerator"
	"SharpeSentinel/internal/model"
	"SharpeSentinel/internal/portfolio"
)

type job struct {
	index int
	parts []int
}

// searchParallel fans the grid out to Workers goroutines, each keeping a
// local best, and merges them. Ties are resolved by enumeration index so the
// outcome matches the sequential fold.
func (o *Optimizer) searchParallel(ctx context.Context, m *portfolio.NormalizedPriceMatrix, enum *enumerator.Enumerator) (*model.BestResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, o.cfg.Workers*4)

	g.Go(func() error {
		defer close(jobs)
		for index := 0; ; index++ {
			parts, ok := enum.Next()
			if !ok {
				return nil
			}
			select {
			case jobs <- job{index: index, parts: parts}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	locals := make([]*bestTracker, o.cfg.Workers)
	for w := range locals {
		tracker := &bestTracker{best: model.NewSentinel(enum.N())}
		locals[w] = tracker
		g.Go(func() error {
			for j := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				c, err := o.score(m, j.index, j.parts)
				if err != nil {
					return err
				}
				tracker.offer(c)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := &bestTracker{best: model.NewSentinel(enum.N())}
	for _, l := range locals {
		merged.best.Evaluated += l.best.Evaluated
		merged.best.Skipped += l.best.Skipped
		if l.best.IsSentinel() {
			continue
		}
		c := candidate{
			index:  l.best.Index,
			parts:  l.best.Units,
			alloc:  l.best.Allocation,
			result: l.best.PerformanceResult,
		}
		if better(c, merged.best) {
			merged.best.Allocation = c.alloc
			merged.best.Units = c.parts
			merged.best.Index = c.index
			merged.best.PerformanceResult = c.result
		}
	}
	return merged.best, nil
}
