// Package batch runs independent operations with bounded parallelism.
//
// Batches are best-effort: one item's failure never aborts its siblings.
// Each item gets its own outcome, so callers can report partial failure.
package batch

import (
	"context"
	"sync"
)

// DefaultWidth is the worker width used when none is configured.
const DefaultWidth = 6

// Outcome is the per-item result of a batch run.
type Outcome[T, R any] struct {
	// Item is the input this outcome belongs to.
	Item T

	// Result is the operation's output when Err is nil.
	Result R

	// Err is the operation's failure, if any.
	Err error
}

// Run applies fn to every item with at most width concurrent workers and
// returns one outcome per item, in input order. A width below 1 falls
// back to DefaultWidth. Context cancellation fails the remaining items
// with ctx.Err() instead of starting them.
func Run[T, R any](ctx context.Context, items []T, width int, fn func(ctx context.Context, item T) (R, error)) []Outcome[T, R] {
	if width < 1 {
		width = DefaultWidth
	}

	outcomes := make([]Outcome[T, R], len(items))
	sem := make(chan struct{}, width)

	var wg sync.WaitGroup
	for i, item := range items {
		outcomes[i].Item = item

		// Checked before blocking on a worker slot so a cancelled batch
		// fails deterministically instead of racing the semaphore.
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}

		select {
		case <-ctx.Done():
			outcomes[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx].Result, outcomes[idx].Err = fn(ctx, it)
		}(i, item)
	}
	wg.Wait()

	return outcomes
}
