package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig bounds concurrent LLM calls.
type WorkerPoolConfig struct {
	MaxConcurrent int
}

// DefaultWorkerPoolConfig returns the default concurrency bound.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{MaxConcurrent: 8}
}

// WorkerPool runs batches of LLM calls with bounded parallelism. The pool
// holds no state between Process calls and is safe for reuse.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a pool. A non-positive MaxConcurrent falls back to
// the default bound.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultWorkerPoolConfig().MaxConcurrent
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("llm-worker-pool"),
	}
}

// WorkItem is one unit of work. The ID identifies the item in logs and in
// its WorkResult.
type WorkItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// WorkResult pairs a work item's ID with its outcome.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process runs every item, at most MaxConcurrent at a time, and returns one
// result per item in completion order. Item failures land in the result
// slice rather than stopping the run. Cancelling ctx fails every item not
// yet started with ctx.Err(); items already running see the cancellation
// through their own ctx.
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	workers := pool.config.MaxConcurrent
	if workers > len(items) {
		workers = len(items)
	}

	pending := make(chan WorkItem[T])
	resultsChan := make(chan WorkResult[T], len(items))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for item := range pending {
				result, err := item.Execute(ctx)
				resultsChan <- WorkResult[T]{ID: item.ID, Result: result, Err: err}
			}
		}()
	}

	go func() {
		defer close(pending)
		for i, item := range items {
			select {
			case pending <- item:
			case <-ctx.Done():
				for _, unstarted := range items[i:] {
					var zero T
					resultsChan <- WorkResult[T]{ID: unstarted.ID, Result: zero, Err: ctx.Err()}
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]WorkResult[T], 0, len(items))
	for result := range resultsChan {
		results = append(results, result)
		if onProgress != nil {
			onProgress(len(results), len(items))
		}
	}
	return results
}
