package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/config"
)

// Adapter provides SQL Server connectivity using SQL authentication.
type Adapter struct {
	config *Config
	db     *sql.DB
}

// buildConnectionString assembles a sqlserver:// URL for the go-mssqldb
// driver. Credentials are URL-escaped so special characters survive parsing.
// Loopback hosts are rewritten when the engine itself runs in a container.
func buildConnectionString(cfg *Config) string {
	query := url.Values{
		"database": {cfg.Database},
		"encrypt":  {strconv.FormatBool(cfg.Encrypt)},
	}
	if cfg.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Set("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     config.ResolveHostForDocker(cfg.Host) + ":" + strconv.Itoa(cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// NewAdapter opens a SQL Server connection and verifies it immediately.
func NewAdapter(ctx context.Context, cfg *Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("sqlserver", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Adapter{config: cfg, db: db}, nil
}

// TestConnection verifies the database is reachable with valid credentials
// and that the session landed on the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var one int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to check current database: %w", err)
	}
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q",
			a.config.Database, currentDB)
	}

	return nil
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for use by the schema discoverer and
// query executor.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
