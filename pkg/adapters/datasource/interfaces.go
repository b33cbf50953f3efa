package datasource

import "context"

// ConnectionTester tests database connectivity.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable, the credentials
	// work, and the session is on the configured database.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// SchemaDiscoverer reads the live database layout.
// Each implementation owns its connection and must be closed when done.
type SchemaDiscoverer interface {
	// DiscoverSchema returns every user table with its ordered columns and
	// outgoing foreign key edges. Failures wrap apperrors.ErrSchemaUnavailable
	// so callers abort instead of generating SQL against an unknown layout.
	DiscoverSchema(ctx context.Context) (*SchemaDescription, error)

	// Close releases the database connection.
	Close() error
}

// MaxQueryLimit is the hard cap on rows returned by ExecuteQuery, applied
// even when the caller passes a larger limit.
const MaxQueryLimit = 1000

// QueryExecutor executes read-only SQL against a datasource.
// Each implementation owns its connection and must be closed when done.
type QueryExecutor interface {
	// ExecuteQuery runs a SELECT statement with named {{placeholder}}
	// bindings and returns bounded results. Placeholder substitution is
	// shared across dialects; each adapter rewrites the positional form to
	// whatever its driver expects. The query is ALWAYS wrapped with a
	// dialect-specific limit:
	//   - PostgreSQL: SELECT * FROM (query) AS _limited LIMIT n
	//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited
	//
	// Limit behavior:
	//   - limit <= 0: uses MaxQueryLimit (1000)
	//   - limit > MaxQueryLimit: capped to MaxQueryLimit (1000)
	//   - otherwise: uses specified limit
	ExecuteQuery(ctx context.Context, sqlQuery string, params map[string]any, limit int) (*QueryResult, error)

	// ValidateQuery checks SQL syntax server-side without executing the
	// statement.
	ValidateQuery(ctx context.Context, sqlQuery string) error

	// Dialect returns the identifier the SQL normalizer keys on
	// ("postgres" or "mssql").
	Dialect() string

	// QuoteIdentifier quotes a table, column, or schema name using the
	// dialect's quoting rules, escaping embedded quote characters.
	QuoteIdentifier(name string) string

	// Close releases any resources held by the executor.
	Close() error
}

// QueryResult holds the results from executing a query. An empty Rows slice
// is a valid result, distinct from an execution error.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}
