package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
)

// APIInfoResponse describes the service and its endpoints.
type APIInfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

// InfoHandler serves the API self-description at the root path.
type InfoHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(cfg *config.Config, logger *zap.Logger) *InfoHandler {
	return &InfoHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the info handler's routes on the given mux.
func (h *InfoHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Info)
}

// Info handles GET / requests.
func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	response := APIInfoResponse{
		Name:        "crewstack-engine",
		Version:     h.cfg.Version,
		Description: "AI-powered API for querying employee data synced from the upstream HR system",
		Endpoints: map[string]string{
			"ask":          "POST /api/ask - Ask questions about employee data",
			"sync":         "POST /api/sync - Queue a data synchronization run",
			"sync-history": "GET /api/sync/history - Get sync operation history",
			"health":       "GET /api/health - Check API health status",
			"stats":        "GET /api/stats - Get database statistics",
			"scheduler":    "GET /api/scheduler - Get scheduler status",
			"mcp":          "POST /mcp - Model Context Protocol endpoint",
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode info response", zap.Error(err))
	}
}
