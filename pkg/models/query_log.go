package models

import (
	"time"

	"github.com/google/uuid"
)

// AIQueryLogEntry is one append-only record of an answered question:
// what was asked, how it was routed, what ran, and what came back.
type AIQueryLogEntry struct {
	ID          uuid.UUID `json:"id"`
	Question    string    `json:"question"`
	QueryType   string    `json:"query_type"`
	QueryUsed   string    `json:"query_used,omitempty"`
	Parameters  JSONBMap  `json:"parameters,omitempty"`
	ResultCount int       `json:"result_count"`
	Answer      string    `json:"answer"`
	Success     bool      `json:"success"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
