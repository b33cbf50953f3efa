package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/audit"
	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/prompts"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
)

// vectorSearchMarker is recorded as the query for answers produced without
// any executed SQL, from the vector index alone.
const vectorSearchMarker = "vector_search:hr_embeddings"

// AnswerService runs the question-answering pipeline: classify the
// question, gather evidence over the SQL and semantic legs, compose an
// answer, and log the exchange.
type AnswerService interface {
	// Answer processes one question synchronously. The returned error is
	// reserved for failures that make answering impossible, currently only
	// schema discovery. Everything downstream degrades inside the pipeline,
	// so callers that see an error should fall back to the offline handler.
	Answer(ctx context.Context, question string) (*models.AnsweredQuery, error)
}

type answerService struct {
	discoverer   datasource.SchemaDiscoverer
	executor     datasource.QueryExecutor
	router       QueryRouterService
	generator    SQLGenerationService
	composer     AnswerComposerService
	index        SemanticIndexService
	resolver     FallbackResolver
	queryLogRepo repositories.AIQueryLogRepository
	cfg          config.AnsweringConfig
	vectorCfg    config.VectorConfig
	auditor      *audit.SecurityAuditor
	logger       *zap.Logger
}

// NewAnswerService creates the pipeline orchestrator.
func NewAnswerService(
	discoverer datasource.SchemaDiscoverer,
	executor datasource.QueryExecutor,
	router QueryRouterService,
	generator SQLGenerationService,
	composer AnswerComposerService,
	index SemanticIndexService,
	resolver FallbackResolver,
	queryLogRepo repositories.AIQueryLogRepository,
	cfg config.AnsweringConfig,
	vectorCfg config.VectorConfig,
	logger *zap.Logger,
) AnswerService {
	return &answerService{
		discoverer:   discoverer,
		executor:     executor,
		router:       router,
		generator:    generator,
		composer:     composer,
		index:        index,
		resolver:     resolver,
		queryLogRepo: queryLogRepo,
		cfg:          cfg,
		vectorCfg:    vectorCfg,
		auditor:      audit.NewSecurityAuditor(logger),
		logger:       logger,
	}
}

func (s *answerService) Answer(ctx context.Context, question string) (*models.AnsweredQuery, error) {
	started := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	schema, err := s.discoverer.DiscoverSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover schema: %w", err)
	}
	schemaSummary := prompts.SummarizeSchema(schema)

	decision := s.router.Classify(ctx, question, schemaSummary)
	s.logger.Info("Routed question",
		zap.String("question", question),
		zap.String("query_type", string(decision.Kind)),
		zap.String("reason", decision.Reason))

	// The legs run strictly in sequence, SQL before semantic.
	var outcome *models.ExecutionOutcome
	if decision.Kind.UsesSQL() {
		outcome = s.runSQLPath(ctx, question, schemaSummary)
	}

	var matches []models.SemanticMatch
	if decision.Kind.UsesSemantic() && s.index.Enabled() {
		if err := s.index.EnsureIndexed(ctx); err != nil {
			s.logger.Warn("Vector index rebuild failed, searching anyway", zap.Error(err))
		}
		matches = s.index.Search(ctx, question, s.vectorCfg.SearchTopK)
	}

	var rows []map[string]any
	if outcome != nil {
		rows = outcome.Rows
	}

	answer := s.composer.Compose(ctx, question, rows, matches)

	// An empty SQL result hands the question to the fallback resolver. A
	// resolved message replaces the composed answer outright.
	if outcome != nil && len(rows) == 0 {
		if msg, ok := s.resolver.Resolve(ctx, question, outcome.Params); ok {
			answer = msg
		}
	}

	result := &models.AnsweredQuery{
		Success:     true,
		Question:    question,
		Answer:      answer,
		QueryType:   string(decision.Kind),
		QueryUsed:   s.queryUsed(decision.Kind, outcome),
		DataPoints:  len(rows) + len(matches),
		DataPreview: s.preview(rows, matches),
	}

	s.appendQueryLog(ctx, result, outcome, time.Since(started))
	return result, nil
}

func (s *answerService) queryUsed(kind models.RoutingKind, outcome *models.ExecutionOutcome) string {
	if outcome != nil && outcome.SQL != "" {
		return outcome.SQL
	}
	if kind.UsesSemantic() {
		return vectorSearchMarker
	}
	return ""
}

// preview caps the raw evidence attached to the response. SQL rows win
// over semantic matches when both are present.
func (s *answerService) preview(rows []map[string]any, matches []models.SemanticMatch) []map[string]any {
	limit := s.cfg.PreviewRows
	if limit <= 0 {
		limit = 10
	}
	if len(rows) > 0 {
		if len(rows) > limit {
			rows = rows[:limit]
		}
		return rows
	}
	if len(matches) == 0 {
		return nil
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	preview := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		preview = append(preview, map[string]any{
			"id":       m.ID,
			"content":  m.Content,
			"metadata": m.Metadata,
			"score":    m.Score,
		})
	}
	return preview
}

// appendQueryLog records the exchange. Logging never fails the request.
func (s *answerService) appendQueryLog(ctx context.Context, result *models.AnsweredQuery, outcome *models.ExecutionOutcome, took time.Duration) {
	entry := &models.AIQueryLogEntry{
		Question:    result.Question,
		QueryType:   result.QueryType,
		QueryUsed:   result.QueryUsed,
		ResultCount: result.DataPoints,
		Answer:      result.Answer,
		Success:     result.Success,
		DurationMs:  took.Milliseconds(),
	}
	if outcome != nil && len(outcome.Params) > 0 {
		entry.Parameters = models.JSONBMap(outcome.Params)
	}
	if err := s.queryLogRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append query log entry", zap.Error(err))
	}
}
