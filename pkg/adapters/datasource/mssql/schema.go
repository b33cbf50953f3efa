package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/logging"
)

// SchemaDiscoverer provides SQL Server schema discovery.
type SchemaDiscoverer struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a SQL Server schema discoverer with its own
// connection. If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug("Opening schema discovery connection",
		zap.String("target", logging.SanitizeConnectionString(buildConnectionString(cfg))))

	adapter, err := NewAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &SchemaDiscoverer{
		config: cfg,
		db:     adapter.DB(),
		logger: logger,
	}, nil
}

// Close releases the database connection.
func (s *SchemaDiscoverer) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DiscoverSchema returns every user table with its ordered columns and
// foreign key edges. Tables are enumerated in name order and columns in
// column_id order, so the rendered schema summary is stable across calls.
func (s *SchemaDiscoverer) DiscoverSchema(ctx context.Context) (*datasource.SchemaDescription, error) {
	tables, err := s.discoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, err)
	}

	columns, err := s.discoverColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, err)
	}

	foreignKeys, err := s.discoverForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, err)
	}

	desc := &datasource.SchemaDescription{
		Tables: make([]datasource.TableSchema, 0, len(tables)),
	}
	for _, name := range tables {
		desc.Tables = append(desc.Tables, datasource.TableSchema{
			Name:        name,
			Columns:     columns[name],
			ForeignKeys: foreignKeys[name],
		})
	}

	s.logger.Debug("Discovered datasource schema", zap.Int("tables", len(desc.Tables)))

	return desc, nil
}

// discoverTables returns all user table names (excludes system tables).
func (s *SchemaDiscoverer) discoverTables(ctx context.Context) ([]string, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT t.name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0
	ORDER BY t.name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// discoverColumns returns the columns of every user table keyed by table
// name, in column_id order.
func (s *SchemaDiscoverer) discoverColumns(ctx context.Context) (map[string][]string, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT t.name AS table_name, c.name AS column_name
	FROM sys.tables t
	INNER JOIN sys.columns c ON c.object_id = t.object_id
	WHERE t.is_ms_shipped = 0
	ORDER BY t.name, c.column_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string][]string)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns[table] = append(columns[table], column)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// discoverForeignKeys returns the outgoing foreign key edges of every user
// table keyed by table name.
func (s *SchemaDiscoverer) discoverForeignKeys(ctx context.Context) (map[string][]datasource.ForeignKeyEdge, error) {
	const query = `
	SET NOCOUNT ON;
	SELECT
	    fk.name AS constraint_name,
	    OBJECT_NAME(fk.parent_object_id) AS source_table,
	    OBJECT_NAME(fk.referenced_object_id) AS target_table,
	    COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
	    COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	WHERE fk.is_ms_shipped = 0
	ORDER BY source_table, fk.name, fkc.constraint_column_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	edges := make(map[string][]datasource.ForeignKeyEdge)
	for rows.Next() {
		var constraint, sourceTable, targetTable, sourceColumn, targetColumn string
		if err := rows.Scan(&constraint, &sourceTable, &targetTable, &sourceColumn, &targetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}

		list := edges[sourceTable]
		// Columns of a composite key arrive as consecutive rows of the same
		// constraint.
		if n := len(list); n > 0 && list[n-1].ConstraintName == constraint {
			list[n-1].Columns = append(list[n-1].Columns, sourceColumn)
			list[n-1].ReferredColumns = append(list[n-1].ReferredColumns, targetColumn)
		} else {
			list = append(list, datasource.ForeignKeyEdge{
				ConstraintName:  constraint,
				Columns:         []string{sourceColumn},
				ReferredTable:   targetTable,
				ReferredColumns: []string{targetColumn},
			})
		}
		edges[sourceTable] = list
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return edges, nil
}

var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
