package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/auth"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/services"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
)

// recentTaskLimit caps the task snapshots in the stats payload. The queue
// keeps every task since startup, the payload only carries the tail.
const recentTaskLimit = 10

// QueueStats reports work queue counts plus the most recent task runs.
type QueueStats struct {
	workqueue.Progress
	PercentComplete float64                  `json:"percent_complete"`
	RecentTasks     []workqueue.TaskSnapshot `json:"recent_tasks,omitempty"`
}

// StatsResponse merges mirrored entity counts with live queue state.
type StatsResponse struct {
	models.Stats
	Queue QueueStats `json:"queue"`
}

// StatsHandler reports record counts and background work state.
type StatsHandler struct {
	stats  services.StatsService
	queue  *workqueue.Queue
	logger *zap.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats services.StatsService, queue *workqueue.Queue, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, queue: queue, logger: logger}
}

// RegisterRoutes registers the stats handler's routes on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/stats", authMiddleware.RequireAuth(h.Stats))
}

// Stats handles GET /api/stats requests.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.stats.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("Failed to collect statistics", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve statistics"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	progress := h.queue.GetProgress()
	tasks := h.queue.GetTasks()
	if len(tasks) > recentTaskLimit {
		tasks = tasks[len(tasks)-recentTaskLimit:]
	}

	response := StatsResponse{
		Stats: *snapshot,
		Queue: QueueStats{
			Progress:        progress,
			PercentComplete: progress.Percentage(),
			RecentTasks:     tasks,
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode stats response", zap.Error(err))
	}
}
