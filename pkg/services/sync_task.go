package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
)

// SyncTaskName identifies full sync runs in the work queue. Scheduler
// ticks and manual sync requests share the name so duplicate pending
// runs collapse into one.
const SyncTaskName = "hr-full-sync"

// SyncTask runs a full upstream sync as a background queue task.
type SyncTask struct {
	workqueue.BaseTask
	sync   SyncService
	logger *zap.Logger
}

// NewSyncTask creates a sync task.
func NewSyncTask(sync SyncService, logger *zap.Logger) *SyncTask {
	return &SyncTask{
		BaseTask: workqueue.NewBaseTask(SyncTaskName),
		sync:     sync,
		logger:   logger,
	}
}

// Execute runs the full sync. A sync already in flight counts as
// success so the queue does not retry into the running one.
func (t *SyncTask) Execute(ctx context.Context, _ workqueue.TaskEnqueuer) error {
	result, err := t.sync.RunFull(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyRunning) {
			t.logger.Info("Sync already in progress, skipping queued run",
				zap.String("task_id", t.ID()))
			return nil
		}
		return err
	}

	t.logger.Info("Sync task finished",
		zap.String("task_id", t.ID()),
		zap.Int("total_records", result.Total()))
	return nil
}
