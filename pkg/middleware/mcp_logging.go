package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/logging"
)

// MCPRequestLogger returns middleware that logs MCP JSON-RPC calls.
// It intercepts request and response bodies to extract tool names,
// sanitized arguments, and error details. Pass nil logger to disable.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only POST carries JSON-RPC messages. GET opens the SSE
			// channel and must not be buffered.
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			call := parseCall(logger, body)
			logger.Debug("MCP request",
				zap.String("method", call.Method),
				zap.String("tool", call.Params.Name),
				zap.Any("arguments", sanitizeArguments(call.Params.Arguments)),
			)

			tap := &bodyCapture{ResponseWriter: w, buf: &bytes.Buffer{}}
			start := time.Now()
			next.ServeHTTP(tap, r)

			logOutcome(logger, call.Params.Name, tap.buf.Bytes(), time.Since(start))
		})
	}
}

// parseCall decodes as much of the request as the logger needs. A batch
// request is a JSON array and will not parse into a single call.
func parseCall(logger *zap.Logger, body []byte) jsonRPCRequest {
	var call jsonRPCRequest
	if err := json.Unmarshal(body, &call); err != nil {
		logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
	}
	return call
}

// logOutcome reports how the call went. Tool errors travel inside an HTTP
// 200 response, so the body is the only place they show up.
func logOutcome(logger *zap.Logger, tool string, body []byte, elapsed time.Duration) {
	var resp jsonRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
		return
	}

	if resp.Error != nil {
		logger.Warn("MCP tool error",
			zap.String("tool", tool),
			zap.Int("error_code", resp.Error.Code),
			zap.String("error_message", resp.Error.Message),
			zap.Duration("duration", elapsed),
		)
		return
	}

	logger.Debug("MCP response",
		zap.String("tool", tool),
		zap.Duration("duration", elapsed),
	)
}

// jsonRPCRequest is the subset of a tools/call request the logger reads.
type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

// jsonRPCResponse is the subset of a JSON-RPC response the logger reads.
type jsonRPCResponse struct {
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bodyCapture tees the response body so the outcome can be inspected after
// the handler runs.
type bodyCapture struct {
	http.ResponseWriter
	buf *bytes.Buffer
}

func (c *bodyCapture) Write(p []byte) (int, error) {
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

// sanitizeArguments redacts sensitive fields and truncates long values
// before tool arguments reach the log.
func sanitizeArguments(args map[string]any) map[string]any {
	sanitized := logging.SanitizeParameters(args)
	for k, v := range sanitized {
		if s, ok := v.(string); ok {
			sanitized[k] = logging.TruncateString(s, 200)
		}
	}
	return sanitized
}
