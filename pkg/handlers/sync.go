package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/auth"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
	"github.com/crewstack/crewstack-engine/pkg/services"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
)

const defaultHistoryLimit = 20

// SyncEnqueueResponse is the POST /api/sync reply. Status is "queued" when
// this request added a run and "already_queued" when one was pending.
type SyncEnqueueResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SyncHistoryResponse lists recent sync runs, newest first.
type SyncHistoryResponse struct {
	TotalLogs int              `json:"total_logs"`
	Logs      []models.SyncLog `json:"logs"`
}

// SyncHandler exposes manual sync triggering and sync observability.
type SyncHandler struct {
	queue     *workqueue.Queue
	sync      services.SyncService
	scheduler SchedulerStatusProvider
	syncLogs  repositories.SyncLogRepository
	logger    *zap.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(
	queue *workqueue.Queue,
	sync services.SyncService,
	scheduler SchedulerStatusProvider,
	syncLogs repositories.SyncLogRepository,
	logger *zap.Logger,
) *SyncHandler {
	return &SyncHandler{
		queue:     queue,
		sync:      sync,
		scheduler: scheduler,
		syncLogs:  syncLogs,
		logger:    logger,
	}
}

// RegisterRoutes registers the sync handler's routes on the given mux.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/sync", authMiddleware.RequireAuth(h.Trigger))
	mux.HandleFunc("GET /api/sync/history", authMiddleware.RequireAuth(h.History))
	mux.HandleFunc("GET /api/scheduler", authMiddleware.RequireAuth(h.SchedulerStatus))
}

// Trigger handles POST /api/sync requests. The sync runs on the work queue
// rather than inline, so the response only acknowledges the request. A run
// already waiting in the queue absorbs the trigger.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Manual sync triggered")

	response := SyncEnqueueResponse{
		Status:  "queued",
		Message: "Data synchronization queued",
	}
	if !h.queue.EnqueueUnique(services.NewSyncTask(h.sync, h.logger)) {
		response.Status = "already_queued"
		response.Message = "A synchronization run is already queued"
	}

	if err := WriteJSON(w, http.StatusAccepted, response); err != nil {
		h.logger.Error("Failed to encode sync response", zap.Error(err))
	}
}

// History handles GET /api/sync/history requests. The limit query parameter
// bounds the number of returned runs and defaults to 20.
func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		limit = parsed
	}

	logs, err := h.syncLogs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list sync history", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve sync history"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := SyncHistoryResponse{
		TotalLogs: len(logs),
		Logs:      logs,
	}
	if response.Logs == nil {
		response.Logs = []models.SyncLog{}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode sync history response", zap.Error(err))
	}
}

// SchedulerStatus handles GET /api/scheduler requests.
func (h *SyncHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.scheduler.Status()); err != nil {
		h.logger.Error("Failed to encode scheduler status", zap.Error(err))
	}
}
