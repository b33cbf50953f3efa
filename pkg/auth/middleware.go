package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware guards HTTP endpoints. It is thin and delegates token
// validation to AuthService. A disabled middleware passes every request
// through, which is the default so a local instance works without any
// token setup.
type Middleware struct {
	authService AuthService
	enabled     bool
	logger      *zap.Logger
}

// NewMiddleware creates an auth middleware. When enabled is false the
// authService may be nil.
func NewMiddleware(authService AuthService, enabled bool, logger *zap.Logger) *Middleware {
	return &Middleware{authService: authService, enabled: enabled, logger: logger}
}

// RequireAuth validates the bearer token and stores the claims in the
// request context for downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	if !m.enabled {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.logger.Warn("Rejected unauthenticated request",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// unauthorized writes the 401 envelope. The shape matches the REST error
// responses so clients can share decoding.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{Error: "unauthorized", Message: message})
}
