package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWorkerPool_Process_Success(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	items := []WorkItem[string]{
		{ID: "task1", Execute: func(ctx context.Context) (string, error) { return "result1", nil }},
		{ID: "task2", Execute: func(ctx context.Context) (string, error) { return "result2", nil }},
		{ID: "task3", Execute: func(ctx context.Context) (string, error) { return "result3", nil }},
	}

	results := Process(context.Background(), pool, items, nil)

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	// Verify all results are present (order may vary)
	resultsByID := make(map[string]string)
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("task %s failed: %v", r.ID, r.Err)
		}
		resultsByID[r.ID] = r.Result
	}

	if resultsByID["task1"] != "result1" || resultsByID["task2"] != "result2" || resultsByID["task3"] != "result3" {
		t.Errorf("unexpected results: %v", resultsByID)
	}
}

func TestWorkerPool_Process_WithErrors(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	wantErr := errors.New("task failed")
	items := []WorkItem[int]{
		{ID: "ok", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "fail", Execute: func(ctx context.Context) (int, error) { return 0, wantErr }},
		{ID: "ok2", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
	}

	results := Process(context.Background(), pool, items, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results even with failures, got %d", len(results))
	}

	var failures int
	for _, r := range results {
		if r.Err != nil {
			failures++
			if r.ID != "fail" {
				t.Errorf("unexpected failure for task %s: %v", r.ID, r.Err)
			}
		}
	}
	if failures != 1 {
		t.Errorf("expected exactly 1 failure, got %d", failures)
	}
}

func TestWorkerPool_Process_EmptyItems(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	results := Process(context.Background(), pool, []WorkItem[string]{}, nil)

	if results != nil {
		t.Errorf("expected nil results for empty items, got %v", results)
	}
}

func TestWorkerPool_Process_ContextCancellation(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	// First item blocks until cancellation, the rest wait on the semaphore.
	items := []WorkItem[string]{
		{ID: "blocker", Execute: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}},
		{ID: "queued1", Execute: func(ctx context.Context) (string, error) { return "done", nil }},
		{ID: "queued2", Execute: func(ctx context.Context) (string, error) { return "done", nil }},
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	results := Process(ctx, pool, items, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var cancelled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected at least one result with context.Canceled")
	}
}

func TestWorkerPool_Process_ConcurrencyLimit(t *testing.T) {
	const maxConcurrent = 2
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: maxConcurrent}, zap.NewNop())

	var current, peak int32
	var mu sync.Mutex

	items := make([]WorkItem[int], 8)
	for i := range items {
		items[i] = WorkItem[int]{
			ID: fmt.Sprintf("task%d", i),
			Execute: func(ctx context.Context) (int, error) {
				n := atomic.AddInt32(&current, 1)
				mu.Lock()
				if n > peak {
					peak = n
				}
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return 0, nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)

	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
	if peak > maxConcurrent {
		t.Errorf("expected at most %d concurrent tasks, observed %d", maxConcurrent, peak)
	}
}

func TestWorkerPool_Process_ProgressCallback(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	items := []WorkItem[int]{
		{ID: "a", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "b", Execute: func(ctx context.Context) (int, error) { return 2, nil }},
		{ID: "c", Execute: func(ctx context.Context) (int, error) { return 3, nil }},
	}

	var calls []int
	var lastTotal int
	Process(context.Background(), pool, items, func(completed, total int) {
		calls = append(calls, completed)
		lastTotal = total
	})

	if len(calls) != 3 {
		t.Fatalf("expected 3 progress callbacks, got %d", len(calls))
	}
	if calls[len(calls)-1] != 3 {
		t.Errorf("expected final completed count 3, got %d", calls[len(calls)-1])
	}
	if lastTotal != 3 {
		t.Errorf("expected total 3, got %d", lastTotal)
	}
}

func TestWorkerPool_ConfigDefault(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 0}, zap.NewNop())

	if pool.config.MaxConcurrent != 8 {
		t.Errorf("expected MaxConcurrent to default to 8, got %d", pool.config.MaxConcurrent)
	}
}

func TestDefaultWorkerPoolConfig(t *testing.T) {
	config := DefaultWorkerPoolConfig()

	if config.MaxConcurrent != 8 {
		t.Errorf("expected default MaxConcurrent 8, got %d", config.MaxConcurrent)
	}
}
