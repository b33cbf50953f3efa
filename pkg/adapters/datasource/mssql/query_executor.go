package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	sqlcheck "github.com/crewstack/crewstack-engine/pkg/sql"
)

var positionalParam = regexp.MustCompile(`\$(\d+)`)

// QueryExecutor provides SQL Server query execution.
type QueryExecutor struct {
	config *Config
	db     *sql.DB
}

// NewQueryExecutor creates a SQL Server query executor with its own
// connection.
func NewQueryExecutor(ctx context.Context, cfg *Config) (*QueryExecutor, error) {
	adapter, err := NewAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &QueryExecutor{
		config: cfg,
		db:     adapter.DB(),
	}, nil
}

// ExecuteQuery runs a SELECT with named {{placeholder}} bindings and returns
// bounded results. See datasource.QueryExecutor for limit behavior.
func (e *QueryExecutor) ExecuteQuery(ctx context.Context, sqlQuery string, params map[string]any, limit int) (*datasource.QueryResult, error) {
	positional, args, err := sqlcheck.SubstituteParameters(sqlQuery, params)
	if err != nil {
		return nil, fmt.Errorf("bind parameters: %w", err)
	}

	// The shared substitution emits PostgreSQL-style $1, $2 placeholders;
	// SQL Server wants named @p1, @p2 parameters.
	converted := convertPostgreSQLParamsToMSSQL(positional)

	// TOP in the wrapping subselect enforces the row cap even when the
	// generated SQL carries its own TOP clause.
	effectiveLimit := limit
	if effectiveLimit <= 0 || effectiveLimit > datasource.MaxQueryLimit {
		effectiveLimit = datasource.MaxQueryLimit
	}
	bounded := fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", effectiveLimit, converted)

	named := make([]any, len(args))
	for i, arg := range args {
		named[i] = sql.Named(fmt.Sprintf("p%d", i+1), arg)
	}

	rows, err := e.db.QueryContext(ctx, bounded, named...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	collected := make([]map[string]any, 0)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			val := values[i]
			// The driver hands text columns back as []byte.
			if b, ok := val.([]byte); ok && isStringType(types[i].DatabaseTypeName()) {
				val = string(b)
			}
			row[col] = val
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

// convertPostgreSQLParamsToMSSQL rewrites PostgreSQL-style positional
// parameters ($1, $2) as the named @p1, @p2 form the sqlserver driver binds.
func convertPostgreSQLParamsToMSSQL(query string) string {
	return positionalParam.ReplaceAllString(query, "@p$1")
}

// ValidateQuery prepares the statement server-side without executing it,
// which surfaces syntax and reference errors.
func (e *QueryExecutor) ValidateQuery(ctx context.Context, sqlQuery string) error {
	stmt, err := e.db.PrepareContext(ctx, sqlQuery)
	if err != nil {
		return fmt.Errorf("invalid SQL: %w", err)
	}
	return stmt.Close()
}

// Dialect returns the normalizer identifier for SQL Server.
func (e *QueryExecutor) Dialect() string {
	return "mssql"
}

// QuoteIdentifier brackets an identifier, doubling any embedded closing
// bracket.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return quoteName(name)
}

// Close releases the database connection.
func (e *QueryExecutor) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
