package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync statuses recorded on sync log rows.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
	SyncStatusPartial = "partial"
)

// SyncLog records one synchronization pass for one entity type.
// Rows are append-only.
type SyncLog struct {
	ID            uuid.UUID  `json:"id"`
	SyncType      string     `json:"sync_type"`
	Status        string     `json:"status"`
	RecordsSynced int        `json:"records_synced"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"sync_started_at"`
	CompletedAt   *time.Time `json:"sync_completed_at,omitempty"`
}

// SyncResult summarizes a full sync run: entity type to records synced.
type SyncResult map[string]int

// Total returns the number of records synced across all entity types.
func (r SyncResult) Total() int {
	total := 0
	for _, n := range r {
		total += n
	}
	return total
}
