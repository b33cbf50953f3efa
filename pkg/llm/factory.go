package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
)

// NewChatClient creates the OpenAI-compatible client used for routing,
// SQL generation, and repair. These stages need structured outputs and
// always run against the configured OpenAI-compatible endpoint.
func NewChatClient(cfg *config.AIConfig, logger *zap.Logger) (LLMClient, error) {
	client, err := NewClient(&Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}
	return client, nil
}

// NewComposerClient creates the client used for answer composition.
// The provider switch applies here: "anthropic" routes composition
// through the Messages API, anything else reuses the chat stack.
func NewComposerClient(cfg *config.AIConfig, logger *zap.Logger) (LLMClient, error) {
	if cfg.Provider == "anthropic" {
		client, err := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	}

	client, err := NewChatClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create composer client: %w", err)
	}
	return client, nil
}

// NewEmbeddingClient creates the client used for embeddings. Embeddings
// always go through an OpenAI-compatible endpoint regardless of the chat
// provider, falling back to the chat endpoint and key when no dedicated
// embedding endpoint is configured.
func NewEmbeddingClient(cfg *config.AIConfig, logger *zap.Logger) (LLMClient, error) {
	client, err := NewClient(&Config{
		Endpoint: cfg.EmbeddingBaseURL(),
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.EmbeddingKey(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return client, nil
}
