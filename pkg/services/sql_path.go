package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/audit"
	"github.com/crewstack/crewstack-engine/pkg/logging"
	"github.com/crewstack/crewstack-engine/pkg/models"
	sqlcheck "github.com/crewstack/crewstack-engine/pkg/sql"
)

// runSQLPath generates, normalizes, screens, and executes SQL for the
// question, with exactly one repair pass on failure. It never returns an
// error: generation and execution failures degrade to an empty outcome so
// the rest of the pipeline, including the fallback chain, still runs.
func (s *answerService) runSQLPath(ctx context.Context, question, schemaSummary string) *models.ExecutionOutcome {
	generated, err := s.generator.Generate(ctx, question, schemaSummary)
	if err != nil {
		s.logger.Warn("SQL generation failed, continuing with no rows", zap.Error(err))
		return &models.ExecutionOutcome{}
	}

	outcome, execErr := s.executeGenerated(ctx, question, generated)
	if execErr == nil {
		return outcome
	}
	s.logger.Warn("SQL execution failed, attempting repair",
		zap.String("sql", logging.SanitizeQuery(generated.SQL)),
		zap.Error(execErr))

	repaired, err := s.generator.Repair(ctx, question, schemaSummary, generated.SQL, execErr.Error())
	if err != nil {
		s.logger.Warn("SQL repair failed, continuing with no rows", zap.Error(err))
		return &models.ExecutionOutcome{SQL: generated.SQL, Params: generated.Parameters, Repaired: true}
	}

	outcome, execErr = s.executeGenerated(ctx, question, repaired)
	if execErr != nil {
		s.logger.Warn("Repaired SQL failed, continuing with no rows",
			zap.String("sql", logging.SanitizeQuery(repaired.SQL)),
			zap.Error(execErr))
		return &models.ExecutionOutcome{SQL: repaired.SQL, Params: repaired.Parameters, Repaired: true}
	}
	outcome.Repaired = true
	return outcome
}

// executeGenerated runs one generated query: rewrite text matching for
// the executor's dialect, wrap LIKE-bound parameters in wildcards, then
// screen and execute. Screening failures surface as errors so the repair
// pass can feed them back to the generator, and as security audit events.
func (s *answerService) executeGenerated(ctx context.Context, question string, generated *models.GeneratedQuery) (*models.ExecutionOutcome, error) {
	sqlText := sqlcheck.EnsureCaseInsensitiveMatching(generated.SQL, s.executor.Dialect())
	params := sqlcheck.EnsureWildcardParameters(sqlText, generated.Parameters)

	normalized, err := sqlcheck.ValidateSelectOnly(sqlText)
	if err != nil {
		s.auditor.LogStatementRejected(ctx, question, sqlText, err.Error())
		return nil, err
	}
	if hits := sqlcheck.CheckAllParameters(params); len(hits) > 0 {
		names := make([]string, 0, len(hits))
		details := make([]audit.InjectionDetails, 0, len(hits))
		for _, hit := range hits {
			names = append(names, hit.ParamName)
			details = append(details, audit.InjectionDetails{
				ParamName:   hit.ParamName,
				ParamValue:  hit.ParamValue,
				Fingerprint: hit.Fingerprint,
			})
		}
		s.auditor.LogInjectionAttempt(ctx, question, details)
		return nil, fmt.Errorf("parameters rejected by injection screening: %s", strings.Join(names, ", "))
	}

	result, err := s.executor.ExecuteQuery(ctx, normalized, params, s.rowLimit())
	if err != nil {
		return nil, err
	}
	return &models.ExecutionOutcome{
		SQL:     normalized,
		Params:  params,
		Columns: result.Columns,
		Rows:    result.Rows,
	}, nil
}

func (s *answerService) rowLimit() int {
	if s.cfg.RowLimit > 0 {
		return s.cfg.RowLimit
	}
	return 50
}
