package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/logging"
	"github.com/crewstack/crewstack-engine/pkg/services"
)

// DBPinger reports whether the application database is reachable.
// *database.DB satisfies it through the embedded pgx pool.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SchedulerStatusProvider reports the state of the background sync scheduler.
type SchedulerStatusProvider interface {
	Status() services.SchedulerStatus
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse is the detailed component health report.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Database  string                   `json:"database"`
	Scheduler services.SchedulerStatus `json:"scheduler"`
	Timestamp time.Time                `json:"timestamp"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg       *config.Config
	db        DBPinger
	scheduler SchedulerStatusProvider
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given dependencies.
func NewHealthHandler(cfg *config.Config, db DBPinger, scheduler SchedulerStatusProvider, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, scheduler: scheduler, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
// All three endpoints are unauthenticated so probes work without tokens.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
	mux.HandleFunc("GET /api/health", h.APIHealth)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for load balancer health checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "crewstack-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

// APIHealth handles GET /api/health requests. It probes the application
// database and reports per-component state. The HTTP status is always 200,
// clients read the status field.
func (h *HealthHandler) APIHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "connected"
	status := "healthy"
	if err := h.db.Ping(ctx); err != nil {
		// Ping failures can embed the DSN, so the error is sanitized before
		// it reaches the log or the response body.
		msg := logging.SanitizeError(err)
		h.logger.Error("Database health check failed", zap.String("error", msg))
		dbStatus = "error: " + msg
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:    status,
		Database:  dbStatus,
		Scheduler: h.scheduler.Status(),
		Timestamp: time.Now().UTC(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
