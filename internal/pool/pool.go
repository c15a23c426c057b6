// Package pool runs the task queue on a bounded set of workers.
//
// The model is a single shared queue with a shared-index pull: each worker
// atomically claims the next index until the queue is exhausted, so every
// item is executed by exactly one worker, exactly once. The one-time setup
// phase completes before any worker claims an item. A hard failure from any
// item is fatal to the run: workers stop claiming new items and the first
// error is returned once every in-flight item has finished.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MaxCIWorkers caps parallelism on CI runners, which report more parallelism
// than is actually usable.
const MaxCIWorkers = 4

// Workers resolves the effective worker count: an explicit override wins,
// otherwise the host's available parallelism, capped on CI.
func Workers(override int, ci bool) int {
	if override > 0 {
		return override
	}
	n := runtime.GOMAXPROCS(0)
	if ci && n > MaxCIWorkers {
		n = MaxCIWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run executes count items on workers goroutines after the setup phase.
// work receives the item index; item state lives with the caller. Run returns
// only after the queue is drained and every worker has finished its last
// dispatched item.
func Run(ctx context.Context, workers, count int, setup func(context.Context) error, work func(ctx context.Context, idx int) error) error {
	if workers < 1 {
		return fmt.Errorf("worker count %d < 1", workers)
	}
	if setup != nil {
		if err := setup(ctx); err != nil {
			return fmt.Errorf("setup phase: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	var next atomic.Int64
	for range workers {
		g.Go(func() error {
			for {
				// A sibling's hard failure cancels the group; stop claiming.
				if err := ctx.Err(); err != nil {
					return nil
				}
				idx := int(next.Add(1) - 1)
				if idx >= count {
					return nil
				}
				if err := work(ctx, idx); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}
