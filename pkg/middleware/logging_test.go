package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// serveLogged runs one GET through RequestLogger and returns the single
// entry it logged.
func serveLogged(t *testing.T, handler http.HandlerFunc) observer.LoggedEntry {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	wrapped := RequestLogger(zap.New(core))(handler)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	return logs.All()[0]
}

func TestRequestLogger_LogsRequests(t *testing.T) {
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if entry.Message != "HTTP request" {
		t.Errorf("expected message 'HTTP request', got '%s'", entry.Message)
	}
	if entry.ContextMap()["method"] != "GET" {
		t.Errorf("expected method GET, got %v", entry.ContextMap()["method"])
	}
	if entry.ContextMap()["path"] != "/healthz" {
		t.Errorf("expected path /healthz, got %v", entry.ContextMap()["path"])
	}
}

func TestRequestLogger_NilLogger_PassesThrough(t *testing.T) {
	called := false
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequestLogger_CapturesStatusCode(t *testing.T) {
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if got := entry.ContextMap()["status"]; got != int64(http.StatusNotFound) {
		t.Errorf("expected status %d, got %v", http.StatusNotFound, got)
	}
}

func TestRequestLogger_CapturesResponseSize(t *testing.T) {
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
		w.Write([]byte(" world"))
	})

	if got := entry.ContextMap()["bytes"]; got != int64(len("hello world")) {
		t.Errorf("expected %d bytes, got %v", len("hello world"), got)
	}
}

func TestRequestLogger_HandlerWritesMultipleHeaders(t *testing.T) {
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if got := entry.ContextMap()["status"]; got != int64(http.StatusBadRequest) {
		t.Errorf("expected the first status %d to win, got %v", http.StatusBadRequest, got)
	}
}

func TestResponseWriter_PreventsDuplicateWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusCreated {
		t.Errorf("expected status to remain %d, got %d", http.StatusCreated, rw.statusCode)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected recorded status %d, got %d", http.StatusCreated, rec.Code)
	}
}

func TestResponseWriter_WriteTriggersWriteHeader(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rw.statusCode != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rw.statusCode)
	}
	if !rw.wroteHeader {
		t.Error("expected the implicit header write to be recorded")
	}
}

func TestResponseWriter_ExplicitWriteHeaderBeforeWrite(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	rw.WriteHeader(http.StatusAccepted)
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rw.statusCode != http.StatusAccepted {
		t.Errorf("expected status %d, got %d", http.StatusAccepted, rw.statusCode)
	}
}
