package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// GoalRepository defines data access for synced performance goals.
type GoalRepository interface {
	// UpsertBatch inserts or updates goals by business key.
	// Returns the number of rows written.
	UpsertBatch(ctx context.Context, goals []models.Goal) (int, error)

	// ListAll retrieves every goal ordered by business key.
	ListAll(ctx context.Context) ([]models.Goal, error)

	// Stats counts goals by status.
	Stats(ctx context.Context) (*models.GoalStats, error)
}

// goalRepository implements GoalRepository using PostgreSQL.
type goalRepository struct {
	db *database.DB
}

// NewGoalRepository creates a new goal repository.
func NewGoalRepository(db *database.DB) GoalRepository {
	return &goalRepository{db: db}
}

// UpsertBatch inserts or updates goals by business key.
func (r *goalRepository) UpsertBatch(ctx context.Context, goals []models.Goal) (int, error) {
	if len(goals) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO goals (goal_id, title, description, assigned_to_employee_id, assigned_by_employee_id, status, progress_percentage, weight, priority, category, target_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (goal_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			assigned_to_employee_id = EXCLUDED.assigned_to_employee_id,
			assigned_by_employee_id = EXCLUDED.assigned_by_employee_id,
			status = EXCLUDED.status,
			progress_percentage = EXCLUDED.progress_percentage,
			weight = EXCLUDED.weight,
			priority = EXCLUDED.priority,
			category = EXCLUDED.category,
			target_date = EXCLUDED.target_date,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, goal := range goals {
		batch.Queue(query,
			goal.GoalID,
			goal.Title,
			goal.Description,
			goal.AssignedToEmployeeID,
			goal.AssignedByEmployeeID,
			goal.Status,
			goal.ProgressPercentage,
			goal.Weight,
			goal.Priority,
			goal.Category,
			goal.TargetDate,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range goals {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert goal %s: %w", goals[i].GoalID, err)
		}
	}

	return len(goals), nil
}

// ListAll retrieves every goal ordered by business key.
func (r *goalRepository) ListAll(ctx context.Context) ([]models.Goal, error) {
	query := `
		SELECT id, goal_id, title, description, assigned_to_employee_id, assigned_by_employee_id, status, progress_percentage, weight, priority, category, target_date, created_at, updated_at
		FROM goals
		ORDER BY goal_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		var goal models.Goal
		err := rows.Scan(
			&goal.ID,
			&goal.GoalID,
			&goal.Title,
			&goal.Description,
			&goal.AssignedToEmployeeID,
			&goal.AssignedByEmployeeID,
			&goal.Status,
			&goal.ProgressPercentage,
			&goal.Weight,
			&goal.Priority,
			&goal.Category,
			&goal.TargetDate,
			&goal.CreatedAt,
			&goal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// Stats counts goals by status.
func (r *goalRepository) Stats(ctx context.Context) (*models.GoalStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3)
		FROM goals`

	var stats models.GoalStats
	err := r.db.QueryRow(ctx, query,
		models.GoalStatusPending,
		models.GoalStatusInProgress,
		models.GoalStatusCompleted,
	).Scan(&stats.Total, &stats.Pending, &stats.InProgress, &stats.Completed)
	if err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}
	return &stats, nil
}

var _ GoalRepository = (*goalRepository)(nil)
