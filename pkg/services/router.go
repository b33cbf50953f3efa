package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/llm"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/prompts"
)

// QueryRouterService classifies questions into an answering strategy.
type QueryRouterService interface {
	// Classify decides whether a question is answered by SQL, by vector
	// search, or by both. It never fails: any classification problem
	// falls back to the SQL strategy with reason "fallback".
	Classify(ctx context.Context, question, schemaSummary string) models.RoutingDecision
}

type queryRouterService struct {
	llmClient llm.LLMClient
	logger    *zap.Logger
}

// NewQueryRouterService creates a query router backed by an LLM client.
func NewQueryRouterService(llmClient llm.LLMClient, logger *zap.Logger) QueryRouterService {
	return &queryRouterService{
		llmClient: llmClient,
		logger:    logger,
	}
}

func sqlFallbackDecision() models.RoutingDecision {
	return models.RoutingDecision{Kind: models.RoutingSQL, Reason: "fallback"}
}

func (s *queryRouterService) Classify(ctx context.Context, question, schemaSummary string) models.RoutingDecision {
	prompt := prompts.BuildQueryRoutingPrompt(question, schemaSummary)
	systemMessage := prompts.BuildQueryRoutingSystemMessage()

	result, err := s.llmClient.GenerateResponse(ctx, prompt, systemMessage, 0.0, false)
	if err != nil {
		s.logger.Warn("Query routing failed, falling back to SQL",
			zap.Error(err))
		return sqlFallbackDecision()
	}

	decision, err := llm.ParseJSONResponse[models.RoutingDecision](result.Content)
	if err != nil {
		s.logger.Warn("Failed to parse routing decision, falling back to SQL",
			zap.Error(err))
		return sqlFallbackDecision()
	}

	decision.Kind = models.RoutingKind(strings.ToLower(strings.TrimSpace(string(decision.Kind))))
	switch decision.Kind {
	case models.RoutingSQL, models.RoutingSemantic, models.RoutingHybrid:
		return decision
	default:
		s.logger.Warn("Router returned unknown query type, falling back to SQL",
			zap.String("type", string(decision.Kind)))
		return sqlFallbackDecision()
	}
}
