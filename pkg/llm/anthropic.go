package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const anthropicEndpoint = "https://api.anthropic.com/v1"

// anthropicMaxTokens caps completion length on the Messages API, which
// requires an explicit max_tokens on every request.
const anthropicMaxTokens = 2000

// AnthropicClient provides access to the Anthropic Messages API.
// It serves chat completions only. Anthropic has no embeddings API, so
// embedding calls return a configuration error; pair this client with an
// OpenAI-compatible embedding endpoint.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates a client for the Anthropic Messages API.
func NewAnthropicClient(apiKey string, model string, logger *zap.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		model:  model,
		logger: logger.Named("llm-anthropic"),
	}, nil
}

// GenerateResponse generates a chat completion via the Messages API.
// The thinking flag is ignored: extended thinking stays off so responses
// remain plain text.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
	thinking bool,
) (*GenerateResponseResult, error) {
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()

	temp := float32(temperature)
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
		Temperature: &temp,
	}
	if systemMessage != "" {
		req.System = systemMessage
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		llmErr := ClassifyError(err)
		if llmErr.Model == "" {
			llmErr.Model = c.model
		}
		if llmErr.Endpoint == "" {
			llmErr.Endpoint = anthropicEndpoint
		}
		return nil, llmErr
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			content = *block.Text
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	elapsed := time.Since(start)

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", elapsed))

	return &GenerateResponseResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// CreateEmbedding implements LLMClient. Anthropic does not serve
// embeddings; configure EMBEDDING_ENDPOINT with an OpenAI-compatible
// provider instead.
func (c *AnthropicClient) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	return nil, fmt.Errorf("anthropic does not provide an embeddings API; set EMBEDDING_ENDPOINT to an OpenAI-compatible provider")
}

// CreateEmbeddings implements LLMClient.
func (c *AnthropicClient) CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	return nil, fmt.Errorf("anthropic does not provide an embeddings API; set EMBEDDING_ENDPOINT to an OpenAI-compatible provider")
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the Anthropic API endpoint.
func (c *AnthropicClient) GetEndpoint() string {
	return anthropicEndpoint
}
