package llm

import (
	"context"
	"fmt"
	"time"
)

// ErrorType indicates which configuration field caused the error.
type ErrorType string

const (
	ErrorTypeNone        ErrorType = ""
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// TestResult reports the outcome of the startup connectivity probes. The
// chat probe decides overall success; a failed embedding probe degrades
// schema search but leaves the engine usable.
type TestResult struct {
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	LLMSuccess         bool      `json:"llm_success"`
	LLMMessage         string    `json:"llm_message,omitempty"`
	LLMErrorType       ErrorType `json:"llm_error_type,omitempty"`
	LLMResponseTimeMs  int64     `json:"llm_response_time_ms,omitempty"`
	EmbeddingSuccess   bool      `json:"embedding_success"`
	EmbeddingMessage   string    `json:"embedding_message,omitempty"`
	EmbeddingErrorType ErrorType `json:"embedding_error_type,omitempty"`
}

// ConnectionTester probes configured AI providers.
// This interface enables mocking in tests.
type ConnectionTester interface {
	// Test probes chat and embedding connectivity through the given clients.
	// A nil embedding client means embeddings are not configured.
	Test(ctx context.Context, chatClient LLMClient, embeddingClient LLMClient, embeddingModel string) *TestResult
}

type connectionTester struct {
	timeout time.Duration
}

// NewConnectionTester returns a tester that issues real API calls with a
// 30 second cap per probe.
func NewConnectionTester() ConnectionTester {
	return &connectionTester{timeout: 30 * time.Second}
}

// Test probes chat and embedding connectivity. Failures surface at startup
// instead of on the first question; the server starts either way.
func (t *connectionTester) Test(ctx context.Context, chatClient LLMClient, embeddingClient LLMClient, embeddingModel string) *TestResult {
	result := &TestResult{}

	if chatClient != nil {
		chat := t.probeChat(ctx, chatClient)
		result.LLMSuccess = chat.Success
		result.LLMMessage = chat.Message
		result.LLMErrorType = chat.ErrorType
		result.LLMResponseTimeMs = chat.ResponseTimeMs
	}

	if embeddingClient != nil {
		emb := t.probeEmbedding(ctx, embeddingClient, embeddingModel)
		result.EmbeddingSuccess = emb.Success
		result.EmbeddingMessage = emb.Message
		result.EmbeddingErrorType = emb.ErrorType
	}

	switch {
	case !result.LLMSuccess:
		result.Message = result.LLMMessage
	case result.EmbeddingSuccess:
		result.Success = true
		result.Message = "LLM and embedding connections successful"
	case embeddingClient == nil:
		result.Success = true
		result.Message = "LLM connection successful (embedding not configured)"
	default:
		result.Success = true
		result.Message = "LLM connection successful, embedding failed"
	}

	return result
}

type probeResult struct {
	Success        bool
	Message        string
	ErrorType      ErrorType
	ResponseTimeMs int64
}

func (t *connectionTester) probeChat(ctx context.Context, client LLMClient) probeResult {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.GenerateResponse(ctx, "Say 'ok' and nothing else.", "", 0, false)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		msg, errType := categorizeError("LLM", err)
		return probeResult{Message: msg, ErrorType: errType, ResponseTimeMs: elapsed}
	}
	if resp.Content == "" {
		return probeResult{Message: "LLM returned no response", ErrorType: ErrorTypeUnknown}
	}

	return probeResult{
		Success:        true,
		Message:        fmt.Sprintf("LLM connection successful (model: %s, %dms)", client.GetModel(), elapsed),
		ResponseTimeMs: elapsed,
	}
}

func (t *connectionTester) probeEmbedding(ctx context.Context, client LLMClient, model string) probeResult {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	embedding, err := client.CreateEmbedding(ctx, "test", model)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		msg, errType := categorizeError("Embedding", err)
		return probeResult{Message: msg, ErrorType: errType, ResponseTimeMs: elapsed}
	}
	if len(embedding) == 0 {
		return probeResult{Message: "Embedding returned no vectors", ErrorType: ErrorTypeUnknown}
	}

	return probeResult{
		Success:        true,
		Message:        fmt.Sprintf("Embedding successful (model: %s, %dms, %d dims)", client.GetModel(), elapsed, len(embedding)),
		ResponseTimeMs: elapsed,
	}
}

// categorizeError turns a probe failure into operator guidance naming the
// configuration field most likely at fault. Classification itself is
// ClassifyError's job.
func categorizeError(prefix string, err error) (string, ErrorType) {
	classified := ClassifyError(err)

	switch classified.Type {
	case ErrorTypeAuth:
		return prefix + ": Invalid API key", ErrorTypeAuth
	case ErrorTypeModel:
		return prefix + ": Model not found", ErrorTypeModel
	case ErrorTypeRateLimited:
		return prefix + ": Rate limited by the provider", ErrorTypeRateLimited
	case ErrorTypeEndpoint:
		switch {
		case classified.StatusCode == 404:
			return prefix + ": Endpoint not found - check base URL", ErrorTypeEndpoint
		case classified.StatusCode >= 500:
			return fmt.Sprintf("%s: Provider returned HTTP %d", prefix, classified.StatusCode), ErrorTypeEndpoint
		case classified.Message == "request timeout":
			return prefix + ": Connection timed out", ErrorTypeEndpoint
		default:
			return prefix + ": Connection failed - check base URL", ErrorTypeEndpoint
		}
	default:
		return fmt.Sprintf("%s: %s", prefix, err.Error()), classified.Type
	}
}

var _ ConnectionTester = (*connectionTester)(nil)
