package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/config"
)

// Adapter provides PostgreSQL connectivity for the datasource role.
type Adapter struct {
	config *Config
	pool   *pgxpool.Pool
}

// buildConnectionString renders the config as a postgresql:// URL. Building
// through url.URL escapes each component, so passwords with @, /, or #
// survive parsing. Loopback hosts are rewritten when the engine itself runs
// in a container.
func buildConnectionString(cfg *Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     config.ResolveHostForDocker(cfg.Host) + ":" + strconv.Itoa(cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}

// NewAdapter opens a connection pool for the configured database. Pool
// creation is lazy in pgx, so bad credentials surface on first use rather
// than here.
func NewAdapter(ctx context.Context, cfg *Config) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Adapter{config: cfg, pool: pool}, nil
}

// TestConnection verifies reachability, credentials, and that the session
// landed on the configured database rather than a default one.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var one int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	var current string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	// Postgres database names are case-sensitive, but the comparison is
	// relaxed to match the MSSQL adapter's behavior.
	if !strings.EqualFold(current, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, current)
	}
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
