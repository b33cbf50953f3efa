package models

import "time"

// EmbeddingDocument is one vector index entry before embedding: the text
// rendered for an HR entity plus the metadata stored alongside it.
// ID is "kind:natural_id", e.g. "employee:LCL16110165" or "goal:G-1042",
// so repeated indexing of the same entity overwrites in place.
type EmbeddingDocument struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Content  string   `json:"content"`
	Metadata JSONBMap `json:"metadata"`
}

// EmbeddingRecord is a stored vector index row as returned by searches.
type EmbeddingRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Metadata  JSONBMap  `json:"metadata"`
	UpdatedAt time.Time `json:"updated_at"`
}
