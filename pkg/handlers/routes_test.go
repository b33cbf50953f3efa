package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/auth"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
	"github.com/crewstack/crewstack-engine/pkg/testhelpers"
)

// newAPIMux wires every handler onto one mux behind the given middleware,
// mirroring the production route table.
func newAPIMux(t *testing.T, authMiddleware *auth.Middleware) *http.ServeMux {
	t.Helper()
	logger := zap.NewNop()
	queue := workqueue.New(logger)
	t.Cleanup(queue.Cancel)

	mux := http.NewServeMux()
	NewAskHandler(
		&mockAnswerServiceForHandler{result: &models.AnsweredQuery{Success: true}},
		&mockOfflineServiceForHandler{},
		logger,
	).RegisterRoutes(mux, authMiddleware)
	NewSyncHandler(queue, &mockSyncServiceForHandler{}, &mockSchedulerForHandler{}, &mockSyncLogRepoForHandler{}, logger).RegisterRoutes(mux, authMiddleware)
	NewStatsHandler(&mockStatsServiceForHandler{stats: &models.Stats{}}, queue, logger).RegisterRoutes(mux, authMiddleware)
	return mux
}

func TestRegisterRoutes_AuthDisabled(t *testing.T) {
	mux := newAPIMux(t, auth.NewMiddleware(nil, false, zap.NewNop()))

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/ask", `{"question":"how many employees"}`, http.StatusOK},
		{http.MethodPost, "/api/sync", "", http.StatusAccepted},
		{http.MethodGet, "/api/sync/history", "", http.StatusOK},
		{http.MethodGet, "/api/scheduler", "", http.StatusOK},
		{http.MethodGet, "/api/stats", "", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRegisterRoutes_AuthEnabled(t *testing.T) {
	service := auth.NewAuthService(testhelpers.TestAuthSecret, zap.NewNop())
	mux := newAPIMux(t, auth.NewMiddleware(service, true, zap.NewNop()))

	// No token.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", testhelpers.GenerateTestTokenWithBearer(t, "svc-reporting", time.Hour))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterRoutes_MethodNotAllowed(t *testing.T) {
	mux := newAPIMux(t, auth.NewMiddleware(nil, false, zap.NewNop()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ask", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
