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
)

// composeSemanticTemperature applies when the only evidence is semantic
// matches; composeTemperature covers every other mix.
const (
	composeTemperature         = 0.4
	composeSemanticTemperature = 0.7
)

// AnswerComposerService renders the final natural-language answer from the
// evidence the pipeline gathered.
type AnswerComposerService interface {
	// Compose writes the answer for a question given SQL rows and semantic
	// matches. LLM failures degrade to a deterministic summary line; it
	// never returns an empty string.
	Compose(ctx context.Context, question string, rows []map[string]any, matches []models.SemanticMatch) string
}

type answerComposerService struct {
	llmClient llm.LLMClient
	cfg       config.AnsweringConfig
	logger    *zap.Logger
}

// NewAnswerComposerService creates an answer composer.
func NewAnswerComposerService(llmClient llm.LLMClient, cfg config.AnsweringConfig, logger *zap.Logger) AnswerComposerService {
	return &answerComposerService{
		llmClient: llmClient,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *answerComposerService) Compose(ctx context.Context, question string, rows []map[string]any, matches []models.SemanticMatch) string {
	prompt := prompts.BuildAnswerCompositionPrompt(prompts.AnswerCompositionContext{
		Question:        question,
		SQLRows:         rows,
		SemanticMatches: matches,
		PreviewRows:     s.cfg.PreviewRows,
	})

	temperature := composeTemperature
	if len(rows) == 0 && len(matches) > 0 {
		temperature = composeSemanticTemperature
	}

	result, err := s.llmClient.GenerateResponse(ctx, prompt, prompts.BuildAnswerCompositionSystemMessage(), temperature, false)
	if err != nil {
		s.logger.Warn("Answer composition failed, using summary line", zap.Error(err))
		return s.summaryLine(len(rows) + len(matches))
	}

	answer := strings.TrimSpace(llm.StripThinking(result.Content))
	if answer == "" {
		return s.summaryLine(len(rows) + len(matches))
	}
	return answer
}

func (s *answerComposerService) summaryLine(total int) string {
	if total == 0 {
		return "No matching records were found."
	}
	preview := s.cfg.PreviewRows
	if preview <= 0 {
		preview = 10
	}
	return fmt.Sprintf("Found %d result(s). Displaying up to the first %d in the data preview.", total, preview)
}
