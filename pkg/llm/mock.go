package llm

import (
	"context"
	"sync/atomic"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior. Call counters are atomic,
// so the mock is safe under the worker pool; a configured function that
// mutates test state must do its own locking.
type MockLLMClient struct {
	// GenerateResponseFunc backs GenerateResponse. Left nil, calls succeed
	// with an empty result.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64, thinking bool) (*GenerateResponseResult, error)

	// CreateEmbeddingFunc backs CreateEmbedding. Left nil, calls succeed
	// with a nil vector.
	CreateEmbeddingFunc func(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddingsFunc backs CreateEmbeddings. Left nil, calls succeed
	// with a nil slice.
	CreateEmbeddingsFunc func(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	generateResponseCalls atomic.Int32
	createEmbeddingCalls  atomic.Int32
	createEmbeddingsCalls atomic.Int32
}

// NewMockLLMClient creates a new mock with default model and endpoint.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, thinking bool) (*GenerateResponseResult, error) {
	m.generateResponseCalls.Add(1)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature, thinking)
	}
	return &GenerateResponseResult{}, nil
}

// CreateEmbedding implements LLMClient.
func (m *MockLLMClient) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	m.createEmbeddingCalls.Add(1)
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input, model)
	}
	return nil, nil
}

// CreateEmbeddings implements LLMClient.
func (m *MockLLMClient) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	m.createEmbeddingsCalls.Add(1)
	if m.CreateEmbeddingsFunc != nil {
		return m.CreateEmbeddingsFunc(ctx, inputs, model)
	}
	return nil, nil
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements LLMClient.
func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// GenerateResponseCalls returns how many times GenerateResponse ran.
func (m *MockLLMClient) GenerateResponseCalls() int {
	return int(m.generateResponseCalls.Load())
}

// CreateEmbeddingCalls returns how many times CreateEmbedding ran.
func (m *MockLLMClient) CreateEmbeddingCalls() int {
	return int(m.createEmbeddingCalls.Load())
}

// CreateEmbeddingsCalls returns how many times CreateEmbeddings ran.
func (m *MockLLMClient) CreateEmbeddingsCalls() int {
	return int(m.createEmbeddingsCalls.Load())
}

var _ LLMClient = (*MockLLMClient)(nil)
