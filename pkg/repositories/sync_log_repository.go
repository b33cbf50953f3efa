package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// SyncLogRepository defines data access for sync run records.
type SyncLogRepository interface {
	// Start opens a sync log row in the running state and returns its id.
	Start(ctx context.Context, syncType string) (uuid.UUID, error)

	// Finish closes a sync log row with its final status and counters.
	Finish(ctx context.Context, id uuid.UUID, status string, recordsSynced int, errorMessage string) error

	// List returns the most recent sync runs, newest first.
	List(ctx context.Context, limit int) ([]models.SyncLog, error)
}

// syncLogRepository implements SyncLogRepository using PostgreSQL.
type syncLogRepository struct {
	db *database.DB
}

// NewSyncLogRepository creates a new sync log repository.
func NewSyncLogRepository(db *database.DB) SyncLogRepository {
	return &syncLogRepository{db: db}
}

// Start opens a sync log row in the running state and returns its id.
func (r *syncLogRepository) Start(ctx context.Context, syncType string) (uuid.UUID, error) {
	query := `
		INSERT INTO sync_logs (sync_type, status, sync_started_at)
		VALUES ($1, $2, NOW())
		RETURNING id`

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, syncType, models.SyncStatusRunning).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to start sync log for %s: %w", syncType, err)
	}
	return id, nil
}

// Finish closes a sync log row with its final status and counters. An empty
// errorMessage is stored as NULL.
func (r *syncLogRepository) Finish(ctx context.Context, id uuid.UUID, status string, recordsSynced int, errorMessage string) error {
	query := `
		UPDATE sync_logs
		SET status = $2,
		    records_synced = $3,
		    error_message = NULLIF($4, ''),
		    sync_completed_at = NOW()
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status, recordsSynced, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish sync log %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("sync log %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// List returns the most recent sync runs, newest first.
func (r *syncLogRepository) List(ctx context.Context, limit int) ([]models.SyncLog, error) {
	query := `
		SELECT id, sync_type, status, records_synced, error_message, sync_started_at, sync_completed_at
		FROM sync_logs
		ORDER BY sync_started_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []models.SyncLog
	for rows.Next() {
		var l models.SyncLog
		if err := rows.Scan(&l.ID, &l.SyncType, &l.Status, &l.RecordsSynced, &l.ErrorMessage, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync logs: %w", err)
	}
	return logs, nil
}

var _ SyncLogRepository = (*syncLogRepository)(nil)
