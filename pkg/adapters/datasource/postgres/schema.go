package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/logging"
)

// SchemaDiscoverer provides PostgreSQL schema discovery.
type SchemaDiscoverer struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a PostgreSQL schema discoverer with its own
// connection pool. If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := buildConnectionString(cfg)
	logger.Debug("Opening schema discovery connection",
		zap.String("target", logging.SanitizeConnectionString(connStr)))

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &SchemaDiscoverer{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close releases the connection pool.
func (d *SchemaDiscoverer) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// DiscoverSchema returns every user table with its ordered columns and
// foreign key edges. Tables are enumerated in name order and columns in
// ordinal position, so the rendered schema summary is stable across calls.
func (d *SchemaDiscoverer) DiscoverSchema(ctx context.Context) (*datasource.SchemaDescription, error) {
	tables, err := d.discoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, err)
	}

	columns, err := d.discoverColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSchemaUnavailable, err)
	}

	foreignKeys, err := d.discoverForeignKeys(ctx)
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

	d.logger.Debug("Discovered datasource schema", zap.Int("tables", len(desc.Tables)))

	return desc, nil
}

// discoverTables returns all user table names (excludes system schemas).
func (d *SchemaDiscoverer) discoverTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT t.table_name
		FROM information_schema.tables t
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY t.table_name
	`

	rows, err := d.pool.Query(ctx, query)
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
// name, in ordinal position order.
func (d *SchemaDiscoverer) discoverColumns(ctx context.Context) (map[string][]string, error) {
	const query = `
		SELECT c.table_name, c.column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema
			AND t.table_name = c.table_name
		WHERE t.table_type = 'BASE TABLE'
		  AND c.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY c.table_name, c.ordinal_position
	`

	rows, err := d.pool.Query(ctx, query)
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
// table keyed by table name. pg_constraint is queried directly because
// information_schema.constraint_column_usage does not preserve the column
// pairing of composite keys.
func (d *SchemaDiscoverer) discoverForeignKeys(ctx context.Context) (map[string][]datasource.ForeignKeyEdge, error) {
	const query = `
		SELECT
			con.conname,
			src.relname AS source_table,
			tgt.relname AS target_table,
			sa.attname AS source_column,
			ta.attname AS target_column
		FROM pg_constraint con
		JOIN pg_class src ON src.oid = con.conrelid
		JOIN pg_class tgt ON tgt.oid = con.confrelid
		JOIN pg_namespace n ON n.oid = src.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(src_attnum, tgt_attnum, ord)
		JOIN pg_attribute sa ON sa.attrelid = con.conrelid AND sa.attnum = k.src_attnum
		JOIN pg_attribute ta ON ta.attrelid = con.confrelid AND ta.attnum = k.tgt_attnum
		WHERE con.contype = 'f'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY src.relname, con.conname, k.ord
	`

	rows, err := d.pool.Query(ctx, query)
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
