package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
)

// mockStatsServiceForHandler implements services.StatsService.
type mockStatsServiceForHandler struct {
	stats *models.Stats
	err   error
}

func (m *mockStatsServiceForHandler) Snapshot(ctx context.Context) (*models.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func TestStatsHandler_Stats(t *testing.T) {
	statsMock := &mockStatsServiceForHandler{
		stats: &models.Stats{
			Employees:   models.EmployeeStats{Total: 42, Active: 40, Blocked: 2},
			Departments: 5,
			Goals:       models.GoalStats{Total: 120, Pending: 30, InProgress: 50, Completed: 40},
			Projects:    models.ProjectStats{Total: 12, Active: 7},
			Skills:      200,
			Queries:     models.QueryLogStats{Total: 15, Successful: 14, Failed: 1, AvgDurationMs: 830},
			Timestamp:   time.Now().UTC(),
		},
	}

	queue := workqueue.New(zap.NewNop())
	task := newCompletedTask(t, queue)
	handler := NewStatsHandler(statsMock, queue, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 42, response.Employees.Total)
	assert.Equal(t, 2, response.Employees.Blocked)
	assert.Equal(t, 5, response.Departments)
	assert.Equal(t, 50, response.Goals.InProgress)
	assert.Equal(t, 7, response.Projects.Active)
	assert.Equal(t, 200, response.Skills)
	assert.Equal(t, 14, response.Queries.Successful)

	assert.Equal(t, 1, response.Queue.Total)
	assert.Equal(t, 1, response.Queue.Completed)
	assert.Equal(t, float64(100), response.Queue.PercentComplete)
	require.Len(t, response.Queue.RecentTasks, 1)
	assert.Equal(t, task.Name(), response.Queue.RecentTasks[0].Name)
	assert.Equal(t, workqueue.TaskStatusCompleted, response.Queue.RecentTasks[0].Status)
}

func TestStatsHandler_Stats_TruncatesTaskHistory(t *testing.T) {
	statsMock := &mockStatsServiceForHandler{stats: &models.Stats{Timestamp: time.Now().UTC()}}
	queue := workqueue.New(zap.NewNop())
	for i := 0; i < recentTaskLimit+5; i++ {
		newCompletedTask(t, queue)
	}
	handler := NewStatsHandler(statsMock, queue, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, recentTaskLimit+5, response.Queue.Total)
	assert.Len(t, response.Queue.RecentTasks, recentTaskLimit)
}

func TestStatsHandler_Stats_ServiceError(t *testing.T) {
	statsMock := &mockStatsServiceForHandler{err: errors.New("query timeout")}
	handler := NewStatsHandler(statsMock, workqueue.New(zap.NewNop()), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "internal_error", errResp["error"])
}

// newCompletedTask enqueues a no-op task and waits for it to finish.
func newCompletedTask(t *testing.T, queue *workqueue.Queue) *noopTask {
	t.Helper()
	task := &noopTask{BaseTask: workqueue.NewBaseTask("noop")}
	queue.Enqueue(task)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, queue.Wait(ctx))
	return task
}

type noopTask struct {
	workqueue.BaseTask
}

func (t *noopTask) Execute(ctx context.Context, _ workqueue.TaskEnqueuer) error {
	return nil
}
