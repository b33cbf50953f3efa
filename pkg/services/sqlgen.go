package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/llm"
	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/prompts"
	sqlcheck "github.com/crewstack/crewstack-engine/pkg/sql"
)

const (
	sqlGenerationTemperature = 0.1
	sqlRepairTemperature     = 0.0
)

// SQLGenerationService turns questions into parameterized SELECT
// statements and repairs attempts that failed to execute.
type SQLGenerationService interface {
	// Generate produces a parameterized SELECT for the question. The
	// returned query binds every {{placeholder}} in its Parameters map.
	Generate(ctx context.Context, question, schemaSummary string) (*models.GeneratedQuery, error)

	// Repair produces a corrected query after a failed execution, feeding
	// the database error text back to the model. Callers invoke it at most
	// once per question.
	Repair(ctx context.Context, question, schemaSummary, failedSQL, dbError string) (*models.GeneratedQuery, error)
}

type sqlGenerationService struct {
	llmClient llm.LLMClient
	cfg       config.AnsweringConfig
	logger    *zap.Logger
}

// NewSQLGenerationService creates a SQL generation service.
func NewSQLGenerationService(llmClient llm.LLMClient, cfg config.AnsweringConfig, logger *zap.Logger) SQLGenerationService {
	return &sqlGenerationService{
		llmClient: llmClient,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *sqlGenerationService) Generate(ctx context.Context, question, schemaSummary string) (*models.GeneratedQuery, error) {
	prompt := prompts.BuildSQLGenerationPrompt(prompts.SQLGenerationContext{
		Question:         question,
		SchemaSummary:    schemaSummary,
		RowLimit:         s.cfg.RowLimit,
		EmployeeIDPrefix: s.cfg.EmployeeIDPrefix,
	})

	result, err := s.llmClient.GenerateResponse(ctx, prompt, prompts.BuildSQLGenerationSystemMessage(), sqlGenerationTemperature, false)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}

	query, err := s.parseGeneratedQuery(result.Content)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Generated SQL",
		zap.String("sql", query.SQL),
		zap.Int("parameters", len(query.Parameters)))
	return query, nil
}

func (s *sqlGenerationService) Repair(ctx context.Context, question, schemaSummary, failedSQL, dbError string) (*models.GeneratedQuery, error) {
	prompt := prompts.BuildSQLRepairPrompt(prompts.SQLRepairContext{
		Question:      question,
		SchemaSummary: schemaSummary,
		PreviousSQL:   failedSQL,
		ErrorMessage:  dbError,
		RowLimit:      s.cfg.RowLimit,
	})

	result, err := s.llmClient.GenerateResponse(ctx, prompt, prompts.BuildSQLRepairSystemMessage(), sqlRepairTemperature, false)
	if err != nil {
		return nil, fmt.Errorf("failed to repair SQL: %w", err)
	}

	query, err := s.parseGeneratedQuery(result.Content)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Repaired SQL",
		zap.String("sql", query.SQL),
		zap.Int("parameters", len(query.Parameters)))
	return query, nil
}

// parseGeneratedQuery decodes the model's JSON response and rejects
// queries the executor could never run: empty SQL, placeholders with no
// binding, and placeholders quoted inside string literals.
func (s *sqlGenerationService) parseGeneratedQuery(content string) (*models.GeneratedQuery, error) {
	query, err := llm.ParseJSONResponse[models.GeneratedQuery](content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL generation response: %w", err)
	}

	query.SQL = strings.TrimSpace(query.SQL)
	if query.SQL == "" {
		return nil, fmt.Errorf("model returned empty SQL")
	}
	if query.Parameters == nil {
		query.Parameters = map[string]any{}
	}

	if missing := sqlcheck.MissingParameters(query.SQL, query.Parameters); len(missing) > 0 {
		return nil, fmt.Errorf("generated SQL has unbound placeholders: %s", strings.Join(missing, ", "))
	}
	if quoted := sqlcheck.FindParametersInStringLiterals(query.SQL); len(quoted) > 0 {
		return nil, fmt.Errorf("generated SQL quotes placeholders inside string literals: %s", strings.Join(quoted, ", "))
	}

	return &query, nil
}
