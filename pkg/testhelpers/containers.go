package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/database"
)

// TestImage is the PostgreSQL image used for integration tests. The
// embeddings migration needs the pgvector extension, so the stock postgres
// image is not enough.
const TestImage = "pgvector/pgvector:pg17"

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

// EngineDB holds the engine database connection with migrations applied.
// Use this for testing handlers, services, and repositories against a real
// database.
type EngineDB struct {
	DB      *database.DB
	ConnStr string
}

// Both setups run at most once per test binary; every test in the run
// shares the same container.
var (
	testDB   = sync.OnceValues(setupTestDB)
	engineDB = sync.OnceValues(setupEngineDB)
)

func skipWithoutDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
}

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The pool connects to the engine database before migrations; use
// GetEngineDB for a migrated connection.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipWithoutDocker(t)

	db, err := testDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	return db
}

// GetEngineDB returns a shared engine database for integration tests.
// The database has migrations applied and is reused across all tests.
func GetEngineDB(t *testing.T) *EngineDB {
	t.Helper()
	skipWithoutDocker(t)

	db, err := engineDB()
	if err != nil {
		t.Fatalf("Failed to setup engine database: %v", err)
	}
	return db
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        TestImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "crewstack_engine_test",
				"POSTGRES_USER":     "crewstack",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	connStr, err := containerConnStr(ctx, container)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// The ready log line can beat the postmaster's final restart.
	for range 10 {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	return &TestDB{Container: container, Pool: pool, ConnStr: connStr}, nil
}

// containerConnStr builds the DSN for the container's mapped port.
func containerConnStr(ctx context.Context, c testcontainers.Container) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}
	return fmt.Sprintf("postgres://crewstack:test_password@%s:%s/crewstack_engine_test?sslmode=disable",
		host, port.Port()), nil
}

func setupEngineDB() (*EngineDB, error) {
	tdb, err := testDB()
	if err != nil {
		return nil, err
	}

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", tdb.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, migrationsDir(), zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Vector types can only be registered once migrations have created the
	// extension, which is why this pool opens after RunMigrations.
	db, err := database.NewConnection(context.Background(), &database.Config{
		URL:            tdb.ConnStr,
		MaxConnections: 5,
		RegisterVector: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to engine database: %w", err)
	}

	return &EngineDB{DB: db, ConnStr: tdb.ConnStr}, nil
}

// migrationsDir resolves the migrations directory relative to this source
// file so integration tests work from any package directory.
func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
