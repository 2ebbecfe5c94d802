// Package worker provides the bounded-parallelism primitives shared by the
// retrieval and question-processing paths: an ordered work pool and a
// per-domain rate limiter.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by a Pool
type Job[T any] func(ctx context.Context) T

// Pool executes jobs with bounded parallelism, preserving input order in
// the results regardless of completion order.
type Pool[T any] struct {
	workers int
}

// NewPool creates a pool with the given worker count.
func NewPool[T any](workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T]{workers: workers}
}

// Run executes all jobs and returns their results in input order. A
// cancelled context stops unstarted jobs; already-running jobs see the
// cancellation through their own context.
func (p *Pool[T]) Run(ctx context.Context, jobs []Job[T]) []T {
	results := make([]T, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, job := range jobs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return results
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, j Job[T]) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = j(ctx)
		}(i, job)
	}

	wg.Wait()
	return results
}
