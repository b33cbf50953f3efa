package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
)

// SchedulerStatus reports the state of the periodic sync scheduler.
type SchedulerStatus struct {
	Running         bool       `json:"running"`
	IntervalMinutes int        `json:"sync_interval_minutes"`
	NextRun         *time.Time `json:"next_run,omitempty"`
}

// Scheduler enqueues full sync runs on a fixed interval. An interval
// of zero disables scheduling entirely; manual sync requests still
// work through the queue.
type Scheduler struct {
	queue           *workqueue.Queue
	sync            SyncService
	interval        time.Duration
	intervalMinutes int
	logger          *zap.Logger

	mu      sync.Mutex
	running bool
	nextRun *time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a sync scheduler backed by the given queue.
func NewScheduler(queue *workqueue.Queue, syncService SyncService, cfg config.SyncConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		queue:           queue,
		sync:            syncService,
		interval:        time.Duration(cfg.IntervalMinutes) * time.Minute,
		intervalMinutes: cfg.IntervalMinutes,
		logger:          logger,
	}
}

// Start begins periodic scheduling and enqueues an initial sync so a
// fresh deployment has data before the first tick. No-op when the
// interval is zero or the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Sync scheduler disabled",
			zap.Int("interval_minutes", s.intervalMinutes))
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	next := time.Now().Add(s.interval)
	s.nextRun = &next
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.logger.Info("Sync scheduler started",
		zap.Int("interval_minutes", s.intervalMinutes))

	s.enqueueRun()
	go s.loop(ctx, done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			next := time.Now().Add(s.interval)
			s.nextRun = &next
			s.mu.Unlock()

			s.enqueueRun()
		}
	}
}

func (s *Scheduler) enqueueRun() {
	if s.queue.EnqueueUnique(NewSyncTask(s.sync, s.logger)) {
		s.logger.Debug("Sync run enqueued")
	} else {
		s.logger.Debug("Sync run already queued, skipping")
	}
}

// Stop halts scheduling and waits for the scheduling loop to exit.
// Queued or running sync tasks are not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.nextRun = nil
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("Sync scheduler stopped")
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Running:         s.running,
		IntervalMinutes: s.intervalMinutes,
	}
	if s.nextRun != nil {
		t := *s.nextRun
		status.NextRun = &t
	}
	return status
}
