package models

// RoutingKind enumerates the strategies for answering a question.
type RoutingKind string

const (
	RoutingSQL      RoutingKind = "sql"
	RoutingSemantic RoutingKind = "semantic"
	RoutingHybrid   RoutingKind = "hybrid"
)

// UsesSQL reports whether the strategy includes a SQL execution leg.
func (k RoutingKind) UsesSQL() bool {
	return k == RoutingSQL || k == RoutingHybrid
}

// UsesSemantic reports whether the strategy includes a vector search leg.
func (k RoutingKind) UsesSemantic() bool {
	return k == RoutingSemantic || k == RoutingHybrid
}

// RoutingDecision is the router's classification of a question.
// The JSON field names are the model's response contract.
type RoutingDecision struct {
	Kind   RoutingKind `json:"type"`
	Reason string      `json:"reason"`
}

// GeneratedQuery is the model's SQL generation output: a parameterized
// SELECT plus its named bindings. Placeholders use {{name}} syntax.
type GeneratedQuery struct {
	SQL        string         `json:"sql"`
	Parameters map[string]any `json:"parameters"`
	Notes      string         `json:"notes,omitempty"`
}

// ExecutionOutcome is the result of the execute-with-repair step. A second
// execution failure is absorbed upstream into an empty outcome, so Rows may
// be empty either because the query matched nothing or because both
// attempts failed. Params holds the bound parameters after wildcard
// normalization; the fallback resolver reads the manager name from them.
type ExecutionOutcome struct {
	SQL      string
	Params   map[string]any
	Columns  []string
	Rows     []map[string]any
	Repaired bool
}

// SemanticMatch is one vector index hit. Score is the cosine distance of
// the stored embedding from the query (lower is closer).
type SemanticMatch struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Kind returns the entity kind recorded in the match metadata, if any.
func (m *SemanticMatch) Kind() string {
	if m.Metadata == nil {
		return ""
	}
	if kind, ok := m.Metadata["type"].(string); ok {
		return kind
	}
	return ""
}

// MetadataString returns a string metadata value by key, or "".
func (m *SemanticMatch) MetadataString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	if v, ok := m.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Candidate sources recorded on FallbackCandidate.
const (
	CandidateSourceExact    = "exact"
	CandidateSourceSemantic = "semantic"
	CandidateSourceFuzzy    = "fuzzy"
)

// FallbackCandidate is a manager candidate considered during fallback
// resolution, tagged with the strategy that produced it. Score carries the
// fuzzy token-set ratio for fuzzy candidates and is zero otherwise.
type FallbackCandidate struct {
	EmployeeID  string `json:"employee_id"`
	FullName    string `json:"full_name"`
	Designation string `json:"designation,omitempty"`
	Source      string `json:"source"`
	Score       int    `json:"score,omitempty"`
}

// AnsweredQuery is the answering pipeline's result and the /api/ask
// response body. QueryUsed holds the executed SQL for SQL-backed answers
// or a vector-search marker for purely semantic ones.
type AnsweredQuery struct {
	Success     bool             `json:"success"`
	Question    string           `json:"question"`
	Answer      string           `json:"answer"`
	QueryType   string           `json:"query_type,omitempty"`
	QueryUsed   string           `json:"query_used,omitempty"`
	DataPoints  int              `json:"data_points"`
	DataPreview []map[string]any `json:"data_preview,omitempty"`
	Error       string           `json:"error,omitempty"`
}
