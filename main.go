package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	_ "github.com/crewstack/crewstack-engine/pkg/adapters/datasource/mssql"
	_ "github.com/crewstack/crewstack-engine/pkg/adapters/datasource/postgres"
	"github.com/crewstack/crewstack-engine/pkg/auth"
	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/handlers"
	"github.com/crewstack/crewstack-engine/pkg/hrsource"
	"github.com/crewstack/crewstack-engine/pkg/llm"
	"github.com/crewstack/crewstack-engine/pkg/logging"
	"github.com/crewstack/crewstack-engine/pkg/mcp"
	"github.com/crewstack/crewstack-engine/pkg/mcp/tools"
	"github.com/crewstack/crewstack-engine/pkg/middleware"
	"github.com/crewstack/crewstack-engine/pkg/repositories"
	"github.com/crewstack/crewstack-engine/pkg/services"
	"github.com/crewstack/crewstack-engine/pkg/services/workqueue"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Engine exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting crewstack-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.Bool("vector_enabled", cfg.Vector.Enabled),
		zap.Int("sync_interval_minutes", cfg.Sync.IntervalMinutes))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Migrations run on the stdlib driver before the pool opens so the
	// vector extension exists by the time pgvector types register.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		migrationDB.Close()
		return err
	}
	if err := migrationDB.Close(); err != nil {
		return fmt.Errorf("failed to close migration connection: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		RegisterVector: cfg.Vector.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// The datasource is where generated SQL executes. In the default
	// single-database deployment it is the application database itself.
	ds := cfg.EffectiveDatasource()
	tester, err := datasource.NewConnectionTester(ctx, &ds)
	if err != nil {
		return fmt.Errorf("failed to create datasource connection: %w", err)
	}
	if err := tester.TestConnection(ctx); err != nil {
		// Connection errors can embed the DSN, so they are sanitized
		// before logging.
		logger.Warn("Datasource unreachable at startup, generated queries will fail until it recovers",
			zap.String("type", ds.Type),
			zap.String("error", logging.SanitizeError(err)))
	}
	discoverer, err := datasource.NewSchemaDiscoverer(ctx, &ds, logger)
	if err != nil {
		return fmt.Errorf("failed to create schema discoverer: %w", err)
	}
	executor, err := datasource.NewQueryExecutor(ctx, &ds)
	if err != nil {
		return fmt.Errorf("failed to create query executor: %w", err)
	}

	chatClient, err := llm.NewChatClient(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}
	composerClient, err := llm.NewComposerClient(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create composer client: %w", err)
	}
	embedder, err := llm.NewEmbeddingClient(&cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}

	// AI connectivity is probed in the background so a down provider holds
	// up nothing at startup.
	go func() {
		var embeddingClient llm.LLMClient
		if cfg.Vector.Enabled {
			embeddingClient = embedder
		}
		result := llm.NewConnectionTester().Test(ctx, chatClient, embeddingClient, cfg.AI.EmbeddingModel)
		switch {
		case !result.Success:
			logger.Warn("LLM unreachable at startup, questions fall back to keyword answering until it recovers",
				zap.String("error", result.LLMMessage),
				zap.String("error_type", string(result.LLMErrorType)))
		case embeddingClient != nil && !result.EmbeddingSuccess:
			logger.Warn("Embedding endpoint unreachable at startup, semantic search degrades to keyword matching",
				zap.String("error", result.EmbeddingMessage),
				zap.String("error_type", string(result.EmbeddingErrorType)))
		default:
			logger.Info("AI connectivity verified",
				zap.String("detail", result.Message),
				zap.Int64("llm_response_ms", result.LLMResponseTimeMs))
		}
	}()

	employeeRepo := repositories.NewEmployeeRepository(db)
	departmentRepo := repositories.NewDepartmentRepository(db)
	goalRepo := repositories.NewGoalRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	skillRepo := repositories.NewSkillRepository(db)
	syncLogRepo := repositories.NewSyncLogRepository(db)
	queryLogRepo := repositories.NewAIQueryLogRepository(db)
	embeddingRepo := repositories.NewEmbeddingRepository(db)

	index := services.NewSemanticIndexService(
		embeddingRepo, employeeRepo, goalRepo, projectRepo, skillRepo,
		embedder, cfg.Vector, logger)
	router := services.NewQueryRouterService(chatClient, logger)
	generator := services.NewSQLGenerationService(chatClient, cfg.Answering, logger)
	composer := services.NewAnswerComposerService(composerClient, cfg.Answering, logger)
	resolver := services.NewFallbackResolver(
		employeeRepo, projectRepo, departmentRepo, index,
		cfg.Answering, cfg.Vector, logger)
	answerSvc := services.NewAnswerService(
		discoverer, executor, router, generator, composer, index, resolver,
		queryLogRepo, cfg.Answering, cfg.Vector, logger)
	offlineSvc := services.NewOfflineAnswerService(executor, cfg.Answering, logger)
	statsSvc := services.NewStatsService(
		employeeRepo, departmentRepo, goalRepo, projectRepo, skillRepo,
		queryLogRepo, logger)

	sourceClient := hrsource.NewClient(cfg.Sync, logger)
	syncSvc := services.NewSyncService(
		sourceClient, employeeRepo, departmentRepo, goalRepo, projectRepo,
		skillRepo, syncLogRepo, index, cfg.Sync, logger)

	queue := workqueue.New(logger)
	scheduler := services.NewScheduler(queue, syncSvc, cfg.Sync, logger)
	scheduler.Start(ctx)

	var authService auth.AuthService
	if cfg.Auth.Enabled {
		authService = auth.NewAuthService(cfg.Auth.Secret, logger)
	}
	authMiddleware := auth.NewMiddleware(authService, cfg.Auth.Enabled, logger)

	mux := http.NewServeMux()
	handlers.NewInfoHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(cfg, db, scheduler, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(answerSvc, offlineSvc, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSyncHandler(queue, syncSvc, scheduler, syncLogRepo, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewStatsHandler(statsSvc, queue, logger).RegisterRoutes(mux, authMiddleware)

	mcpServer := mcp.NewServer("crewstack-engine", cfg.Version, logger)
	tools.RegisterAskTool(mcpServer.MCP(), &tools.AskToolDeps{
		Answer:  answerSvc,
		Offline: offlineSvc,
		Logger:  logger,
	})
	tools.RegisterPeopleTool(mcpServer.MCP(), &tools.PeopleToolDeps{
		Index:     index,
		Employees: employeeRepo,
		Logger:    logger,
	})
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)
	mcpHTTP := middleware.MCPRequestLogger(logger)(mcpServer.NewStreamableHTTPServer())
	mux.Handle("/mcp", authMiddleware.RequireAuth(mcpHTTP.ServeHTTP))

	handler := middleware.CORS()(
		middleware.RequestLogger(logger)(
			middleware.Recovery(logger)(mux)))

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("mcp_endpoint", "/mcp"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	scheduler.Stop()
	queue.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Engine stopped")
	return nil
}
