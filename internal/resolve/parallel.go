// Package resolve fans identifier lookups out over a bounded worker pool.
package resolve

import (
	"context"
	"runtime"
	"sync"
)

// WorkItem is one input queued for a worker.
type WorkItem[T any] struct {
	Seq   int
	Input T
}

// WorkResult holds the output for a single work item.
type WorkResult[T, R any] struct {
	Seq    int
	Input  T
	Output R
	Err    error
}

// DefaultWorkers returns the pool size used when none is configured:
// one less than the number of CPUs, at least one.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// Parallel applies fn to work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, DefaultWorkers() is used.
//
// A failing item does not stop the pool: its error is carried in its
// WorkResult. Once ctx is done, remaining items are drained without
// calling fn and reported with ctx's error.
func Parallel[T, R any](ctx context.Context, items <-chan WorkItem[T], workers int, fn func(context.Context, T) (R, error)) <-chan WorkResult[T, R] {
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	results := make(chan WorkResult[T, R], 2*workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				r := WorkResult[T, R]{Seq: item.Seq, Input: item.Input}
				if err := ctx.Err(); err != nil {
					r.Err = err
				} else {
					r.Output, r.Err = fn(ctx, item.Input)
				}
				results <- r
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect[T, R any](results <-chan WorkResult[T, R], fn func(WorkResult[T, R]) error) error {
	pending := make(map[int]WorkResult[T, R])
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// Feed returns a closed channel holding one work item per input,
// numbered in input order.
func Feed[T any](inputs []T) <-chan WorkItem[T] {
	ch := make(chan WorkItem[T], len(inputs))
	for i, in := range inputs {
		ch <- WorkItem[T]{Seq: i, Input: in}
	}
	close(ch)
	return ch
}

// Map applies fn to every input on a worker pool and returns the results
// in input order.
func Map[T, R any](ctx context.Context, inputs []T, workers int, fn func(context.Context, T) (R, error)) []WorkResult[T, R] {
	out := make([]WorkResult[T, R], 0, len(inputs))
	OrderedCollect(Parallel(ctx, Feed(inputs), workers, fn), func(r WorkResult[T, R]) error {
		out = append(out, r)
		return nil
	})
	return out
}
