// Package workqueue runs background tasks with bounded concurrency,
// retry with exponential backoff, and progress tracking.
package workqueue

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/retry"
)

// RetryConfig defines retry behavior for failed tasks.
type RetryConfig struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration (cap)
	BackoffFactor  float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig returns the default retry configuration.
// Backoff schedule: 5s, 10s, 20s. Sync tasks rerun on the scheduler
// cadence anyway, so a failed run gives up quickly rather than
// retrying for hours.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     60 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Queue manages task execution with a fixed worker limit. The default
// of one worker serializes tasks, so at most one sync run (and its
// embedding traffic) is in flight at a time.
type Queue struct {
	mu      sync.Mutex
	tasks   []*TaskState
	pending []*TaskState

	workers int
	running int

	retryConfig RetryConfig
	logger      *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool

	// done is closed when all tasks reach a terminal state, and
	// replaced with a fresh channel when new work arrives afterwards.
	done       chan struct{}
	doneClosed bool

	// wg tracks running task goroutines
	wg sync.WaitGroup
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWorkers sets the number of tasks that may run concurrently.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n >= 1 {
			q.workers = n
		}
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) QueueOption {
	return func(q *Queue) {
		q.retryConfig = cfg
	}
}

// New creates a task queue. Call Cancel to release its resources.
func New(logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		workers:     1,
		retryConfig: DefaultRetryConfig(),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a task to the queue and starts it when a worker is free.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueueLocked(task)
}

// EnqueueUnique adds a task unless one with the same name is already
// pending, and reports whether the task was accepted. Scheduler ticks
// and manual sync requests collapse into a single queued run this way.
func (q *Queue) EnqueueUnique(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return false
	}
	for _, ts := range q.pending {
		if ts.Task.Name() == task.Name() {
			return false
		}
	}
	q.enqueueLocked(task)
	return true
}

func (q *Queue) enqueueLocked(task Task) {
	if q.cancelled {
		q.logger.Warn("Enqueue on cancelled queue ignored",
			zap.String("task_name", task.Name()))
		return
	}

	ts := NewTaskState(task)
	q.tasks = append(q.tasks, ts)
	q.pending = append(q.pending, ts)

	// New work after completion reopens the queue.
	if q.doneClosed {
		q.done = make(chan struct{})
		q.doneClosed = false
	}

	q.logger.Debug("Task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()))

	q.startPendingLocked()
}

// startPendingLocked starts pending tasks while workers are available.
// Caller must hold q.mu.
func (q *Queue) startPendingLocked() {
	for q.running < q.workers && len(q.pending) > 0 {
		ts := q.pending[0]
		q.pending = q.pending[1:]
		q.running++

		ts.SetStatus(TaskStatusRunning)
		q.wg.Add(1)
		go q.runTask(ts)
	}
}

// runTask executes a task, retrying on transient errors.
func (q *Queue) runTask(ts *TaskState) {
	defer q.wg.Done()

	taskID := ts.Task.ID()
	taskName := ts.Task.Name()

	var lastErr error
	for attempt := 0; attempt <= q.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := q.calculateBackoff(attempt)
			q.logger.Info("Retrying task",
				zap.String("task_id", taskID),
				zap.String("task_name", taskName),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))

			select {
			case <-q.ctx.Done():
				q.finishTask(ts, q.ctx.Err())
				return
			case <-time.After(backoff):
			}
		}

		err := ts.Task.Execute(q.ctx, q)
		if err == nil {
			q.finishTask(ts, nil)
			return
		}
		lastErr = err

		if errors.Is(err, context.Canceled) {
			break
		}
		if !retry.IsRetryable(err) {
			q.logger.Warn("Task failed with non-retryable error",
				zap.String("task_id", taskID),
				zap.String("task_name", taskName),
				zap.Error(err))
			break
		}
		if attempt >= q.retryConfig.MaxRetries {
			q.logger.Error("Task failed after max retries",
				zap.String("task_id", taskID),
				zap.String("task_name", taskName),
				zap.Int("retries", q.retryConfig.MaxRetries),
				zap.Error(err))
			break
		}
		ts.IncrementRetryCount()
	}

	q.finishTask(ts, lastErr)
}

// finishTask records the terminal state of a task and starts the next
// pending one.
func (q *Queue) finishTask(ts *TaskState, err error) {
	switch {
	case err == nil:
		ts.SetStatus(TaskStatusCompleted)
		q.logger.Info("Task completed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Int("retries", ts.GetRetryCount()))
	case errors.Is(err, context.Canceled):
		ts.SetError(err)
		ts.SetStatus(TaskStatusCancelled)
	default:
		ts.SetError(err)
		ts.SetStatus(TaskStatusFailed)
		q.logger.Error("Task failed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Error(err))
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.running--
	q.startPendingLocked()
	q.closeDoneIfIdleLocked()
}

// calculateBackoff returns the backoff duration for a retry attempt,
// with jitter to avoid thundering herd.
func (q *Queue) calculateBackoff(attempt int) time.Duration {
	backoff := float64(q.retryConfig.InitialBackoff) *
		math.Pow(q.retryConfig.BackoffFactor, float64(attempt-1))

	if backoff > float64(q.retryConfig.MaxBackoff) {
		backoff = float64(q.retryConfig.MaxBackoff)
	}

	// Up to 10% jitter.
	jitter := backoff * 0.1 * rand.Float64()
	return time.Duration(backoff + jitter)
}

// closeDoneIfIdleLocked closes the done channel when no task is running
// or pending. Caller must hold q.mu.
func (q *Queue) closeDoneIfIdleLocked() {
	if q.doneClosed || q.running > 0 || len(q.pending) > 0 {
		return
	}
	close(q.done)
	q.doneClosed = true
}

// GetTasks returns snapshots of all tasks in enqueue order.
func (q *Queue) GetTasks() []TaskSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshots := make([]TaskSnapshot, 0, len(q.tasks))
	for _, ts := range q.tasks {
		snapshots = append(snapshots, ts.Snapshot())
	}
	return snapshots
}

// Progress summarizes task counts by status.
type Progress struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Percentage returns completion as 0-100. Terminal tasks count as done
// regardless of outcome.
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return 100
	}
	finished := p.Completed + p.Failed + p.Cancelled
	return float64(finished) / float64(p.Total) * 100
}

// GetProgress returns current queue progress.
func (q *Queue) GetProgress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := Progress{Total: len(q.tasks)}
	for _, ts := range q.tasks {
		switch ts.GetStatus() {
		case TaskStatusPending:
			p.Pending++
		case TaskStatusRunning:
			p.Running++
		case TaskStatusCompleted:
			p.Completed++
		case TaskStatusFailed:
			p.Failed++
		case TaskStatusCancelled:
			p.Cancelled++
		}
	}
	return p
}

// IsComplete reports whether all tasks have reached a terminal state.
func (q *Queue) IsComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running == 0 && len(q.pending) == 0
}

// Wait blocks until all tasks finish or ctx is cancelled. Returns the
// first task failure, if any.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	q.closeDoneIfIdleLocked()
	done := q.done
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusFailed {
			return ts.GetError()
		}
	}
	return nil
}

// Cancel stops the queue. Pending tasks are marked cancelled and
// running tasks see their context cancelled.
func (q *Queue) Cancel() {
	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return
	}
	q.cancelled = true

	for _, ts := range q.pending {
		ts.SetError(context.Canceled)
		ts.SetStatus(TaskStatusCancelled)
	}
	q.pending = nil
	q.closeDoneIfIdleLocked()
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}
