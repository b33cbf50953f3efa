package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	sqlcheck "github.com/crewstack/crewstack-engine/pkg/sql"
)

// QueryExecutor provides PostgreSQL query execution.
type QueryExecutor struct {
	pool *pgxpool.Pool
}

// NewQueryExecutor creates a PostgreSQL query executor with its own
// connection pool.
func NewQueryExecutor(ctx context.Context, cfg *Config) (*QueryExecutor, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &QueryExecutor{pool: pool}, nil
}

// ExecuteQuery runs a SELECT with named {{placeholder}} bindings and returns
// bounded results. See datasource.QueryExecutor for limit behavior.
func (e *QueryExecutor) ExecuteQuery(ctx context.Context, sqlQuery string, params map[string]any, limit int) (*datasource.QueryResult, error) {
	positional, args, err := sqlcheck.SubstituteParameters(sqlQuery, params)
	if err != nil {
		return nil, fmt.Errorf("bind parameters: %w", err)
	}

	// The wrapping subselect enforces the row cap even when the generated
	// SQL carries its own LIMIT.
	effectiveLimit := limit
	if effectiveLimit <= 0 || effectiveLimit > datasource.MaxQueryLimit {
		effectiveLimit = datasource.MaxQueryLimit
	}
	bounded := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", positional, effectiveLimit)

	rows, err := e.pool.Query(ctx, bounded, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	columns := make([]string, len(descs))
	for i, d := range descs {
		columns[i] = string(d.Name)
	}

	collected := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     collected,
		RowCount: len(collected),
	}, nil
}

// ValidateQuery asks the planner to parse and plan the query without
// executing it.
func (e *QueryExecutor) ValidateQuery(ctx context.Context, sqlQuery string) error {
	if _, err := e.pool.Exec(ctx, "EXPLAIN "+sqlQuery); err != nil {
		return fmt.Errorf("invalid SQL: %w", err)
	}
	return nil
}

// Dialect returns the normalizer identifier for PostgreSQL.
func (e *QueryExecutor) Dialect() string {
	return "postgres"
}

// QuoteIdentifier double-quotes an identifier, doubling any embedded quotes.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Close releases the connection pool.
func (e *QueryExecutor) Close() error {
	if e.pool != nil {
		e.pool.Close()
	}
	return nil
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
