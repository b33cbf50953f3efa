package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
)

func TestNewChatClient_ValidConfig(t *testing.T) {
	cfg := &config.AIConfig{
		Endpoint: "http://localhost:8000/v1",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
	}

	client, err := NewChatClient(cfg, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "gpt-4o-mini", client.GetModel())
	assert.Equal(t, "http://localhost:8000/v1", client.GetEndpoint())
}

func TestNewChatClient_MissingEndpoint(t *testing.T) {
	cfg := &config.AIConfig{Model: "gpt-4o-mini"}

	_, err := NewChatClient(cfg, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestNewComposerClient_DefaultsToChatStack(t *testing.T) {
	cfg := &config.AIConfig{
		Provider: "openai",
		Endpoint: "http://localhost:8000/v1",
		Model:    "gpt-4o-mini",
	}

	client, err := NewComposerClient(cfg, zap.NewNop())

	require.NoError(t, err)
	_, isAnthropic := client.(*AnthropicClient)
	assert.False(t, isAnthropic, "openai provider should reuse the chat stack")
	assert.Equal(t, "http://localhost:8000/v1", client.GetEndpoint())
}

func TestNewComposerClient_AnthropicProvider(t *testing.T) {
	cfg := &config.AIConfig{
		Provider:        "anthropic",
		Endpoint:        "http://localhost:8000/v1",
		Model:           "gpt-4o-mini",
		AnthropicModel:  "claude-sonnet-4-5-20250929",
		AnthropicAPIKey: "test-key",
	}

	client, err := NewComposerClient(cfg, zap.NewNop())

	require.NoError(t, err)
	_, isAnthropic := client.(*AnthropicClient)
	assert.True(t, isAnthropic, "anthropic provider should route through the Messages API")
	assert.Equal(t, "claude-sonnet-4-5-20250929", client.GetModel())
}

func TestNewComposerClient_AnthropicMissingKey(t *testing.T) {
	cfg := &config.AIConfig{
		Provider:       "anthropic",
		AnthropicModel: "claude-sonnet-4-5-20250929",
	}

	_, err := NewComposerClient(cfg, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestNewEmbeddingClient_UsesEmbeddingConfig(t *testing.T) {
	cfg := &config.AIConfig{
		Endpoint:          "http://llm:8000/v1",
		Model:             "gpt-4o-mini",
		APIKey:            "chat-key",
		EmbeddingEndpoint: "http://embeddings:9000/v1",
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingAPIKey:   "embedding-key",
	}

	client, err := NewEmbeddingClient(cfg, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "http://embeddings:9000/v1", client.GetEndpoint())
	assert.Equal(t, "text-embedding-3-small", client.GetModel())
}

func TestNewEmbeddingClient_FallsBackToChatConfig(t *testing.T) {
	cfg := &config.AIConfig{
		Endpoint:       "http://llm:8000/v1",
		Model:          "gpt-4o-mini",
		APIKey:         "chat-key",
		EmbeddingModel: "text-embedding-3-small",
	}

	client, err := NewEmbeddingClient(cfg, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "http://llm:8000/v1", client.GetEndpoint())
}
