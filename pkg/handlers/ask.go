package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/auth"
	"github.com/crewstack/crewstack-engine/pkg/services"
)

// AskRequest is the POST /api/ask body.
type AskRequest struct {
	Question string `json:"question"`
}

// AskHandler answers natural language questions about the HR data.
type AskHandler struct {
	answer  services.AnswerService
	offline services.OfflineAnswerService
	logger  *zap.Logger
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(answer services.AnswerService, offline services.OfflineAnswerService, logger *zap.Logger) *AskHandler {
	return &AskHandler{answer: answer, offline: offline, logger: logger}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/ask", authMiddleware.RequireAuth(h.Ask))
}

// Ask handles POST /api/ask requests. The answering pipeline degrades
// internally, so an error here means even schema discovery failed and the
// question is re-routed through the keyword-matching offline path.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_question", "Question is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Received question", zap.String("question", question))

	result, err := h.answer.Answer(r.Context(), question)
	if err != nil {
		h.logger.Warn("Answer pipeline unavailable, using offline fallback", zap.Error(err))
		result = h.offline.Answer(r.Context(), question)
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode answer response", zap.Error(err))
	}
}
