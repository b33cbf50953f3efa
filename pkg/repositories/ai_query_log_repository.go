package repositories

import (
	"context"
	"fmt"

	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// AIQueryLogRepository defines data access for the append-only question log.
type AIQueryLogRepository interface {
	// Append records one answered question. The entry's ID and CreatedAt
	// are filled in from the inserted row.
	Append(ctx context.Context, entry *models.AIQueryLogEntry) error

	// List returns recent question records, newest first.
	List(ctx context.Context, limit, offset int) ([]models.AIQueryLogEntry, error)

	// Count returns the total number of recorded questions.
	Count(ctx context.Context) (int, error)

	// Stats returns success and duration aggregates over the whole log.
	Stats(ctx context.Context) (*models.QueryLogStats, error)
}

// aiQueryLogRepository implements AIQueryLogRepository using PostgreSQL.
type aiQueryLogRepository struct {
	db *database.DB
}

// NewAIQueryLogRepository creates a new AI query log repository.
func NewAIQueryLogRepository(db *database.DB) AIQueryLogRepository {
	return &aiQueryLogRepository{db: db}
}

// Append records one answered question.
func (r *aiQueryLogRepository) Append(ctx context.Context, entry *models.AIQueryLogEntry) error {
	query := `
		INSERT INTO ai_query_logs (question, query_type, query_used, parameters, result_count, answer, success, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	parameters := entry.Parameters
	if parameters == nil {
		parameters = models.JSONBMap{}
	}

	err := r.db.QueryRow(ctx, query,
		entry.Question,
		entry.QueryType,
		entry.QueryUsed,
		parameters,
		entry.ResultCount,
		entry.Answer,
		entry.Success,
		entry.DurationMs,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append query log: %w", err)
	}
	return nil
}

// List returns recent question records, newest first.
func (r *aiQueryLogRepository) List(ctx context.Context, limit, offset int) ([]models.AIQueryLogEntry, error) {
	query := `
		SELECT id, question, query_type, query_used, parameters, result_count, answer, success, duration_ms, created_at
		FROM ai_query_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, query, listLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	defer rows.Close()

	var entries []models.AIQueryLogEntry
	for rows.Next() {
		var e models.AIQueryLogEntry
		if err := rows.Scan(&e.ID, &e.Question, &e.QueryType, &e.QueryUsed, &e.Parameters, &e.ResultCount, &e.Answer, &e.Success, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query logs: %w", err)
	}
	return entries, nil
}

// Count returns the total number of recorded questions.
func (r *aiQueryLogRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ai_query_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count query logs: %w", err)
	}
	return count, nil
}

// Stats returns success and duration aggregates over the whole log.
func (r *aiQueryLogRepository) Stats(ctx context.Context) (*models.QueryLogStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COUNT(*) FILTER (WHERE NOT success),
		       COALESCE(AVG(duration_ms), 0)
		FROM ai_query_logs`

	var stats models.QueryLogStats
	err := r.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Successful, &stats.Failed, &stats.AvgDurationMs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate query log stats: %w", err)
	}
	return &stats, nil
}

var _ AIQueryLogRepository = (*aiQueryLogRepository)(nil)
