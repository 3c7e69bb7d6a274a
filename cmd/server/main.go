package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/guichet/internal"
	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/catalog"
	"github.com/DukeRupert/guichet/internal/handler"
	"github.com/DukeRupert/guichet/internal/jobs"
	"github.com/DukeRupert/guichet/internal/metrics"
	"github.com/DukeRupert/guichet/internal/middleware"
	"github.com/DukeRupert/guichet/internal/screen"
	"github.com/DukeRupert/guichet/internal/storage"
	"github.com/DukeRupert/guichet/internal/worker"
)

// entityRoutes is the part of a handler.EntityHandler the server needs,
// independent of the entity type.
type entityRoutes interface {
	Path() string
	ExportSource() jobs.Source
	Run(ctx context.Context, interval time.Duration)
	RegisterRoutes(mux *http.ServeMux, page, limit func(http.Handler) http.Handler)
}

func newEntity[T any](schema *screen.Schema[T], client *backend.Client, deps handler.Deps, config handler.ScreenConfig) entityRoutes {
	return handler.NewEntityHandler(schema, backend.NewResource[T](client, schema.Path), deps, config)
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Backend client
	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("backend client initialization failed: %w", err)
	}

	// Storage for exports and archived reports
	store, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local: storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		S3: storage.S3Config{
			AccountID:       cfg.R2AccountID,
			Endpoint:        cfg.R2Endpoint,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Export job queue: Postgres when configured, in memory otherwise
	queue, db, err := openQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// ==========================================================================
	// Entity screens
	// ==========================================================================

	nav := catalog.Entries()
	deps := handler.Deps{
		Renderer:   renderer,
		Logger:     logger,
		Nav:        nav,
		References: client,
		Queue:      queue,
		Storage:    store,
	}
	screenCfg := handler.ScreenConfig{
		PageSize: cfg.SearchPageSize,
		Debounce: cfg.SearchDebounce,
		IdleTTL:  cfg.ScreenIdleTTL,
	}
	entities := []entityRoutes{
		newEntity(catalog.Banques(), client, deps, screenCfg),
		newEntity(catalog.Devises(), client, deps, screenCfg),
		newEntity(catalog.Journals(), client, deps, screenCfg),
		newEntity(catalog.Engins(), client, deps, screenCfg),
		newEntity(catalog.Tarifs(), client, deps, screenCfg),
		newEntity(catalog.Employes(), client, deps, screenCfg),
		newEntity(catalog.Restructurations(), client, deps, screenCfg),
	}

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		sources := make([]jobs.Source, 0, len(entities))
		for _, e := range entities {
			sources = append(sources, e.ExportSource())
		}

		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout
		if workerCfg.StaleJobThreshold <= workerCfg.JobTimeout {
			workerCfg.StaleJobThreshold = 5 * workerCfg.JobTimeout
		}

		bgWorker, err = worker.New(queue, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewExportHandler(sources, store, logger))
		bgWorker.Start(ctx)
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := !cfg.IsDevelopment()
	sessions := middleware.NewSessionMiddleware(cfg.LoginURL, logger)
	csrfMw := middleware.NewCSRFMiddleware(isSecure, logger)
	requestLogger := middleware.NewRequestLoggingMiddleware(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	limit := func(next http.Handler) http.Handler { return next }
	var exportLimiter *middleware.RateLimiter
	if cfg.ExportRateLimit > 0 {
		exportLimiter = middleware.NewRateLimiter(cfg.ExportRateLimit, time.Minute, logger)
		defer exportLimiter.Close()
		limit = middleware.NewRateLimitMiddleware(exportLimiter, middleware.SessionKey, logger).Limit
	}

	page := middleware.Stack(sessions.Load, sessions.Require, csrfMw.Handler)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	checks := map[string]handler.Pinger{}
	if db != nil {
		checks["database"] = db
	}
	mux.Handle("GET /health", handler.NewHealthHandler(checks, logger))

	// Prometheus metrics
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Screens
	mux.Handle("GET /{$}", page(handler.NewHomeHandler(renderer, nav, logger)))
	for _, e := range entities {
		e.RegisterRoutes(mux, page, limit)
	}
	handler.NewExportHandler(queue, store, renderer, logger).RegisterRoutes(mux, page)

	var sweepers sync.WaitGroup
	for _, e := range entities {
		sweepers.Add(1)
		go func() {
			defer sweepers.Done()
			e.Run(ctx, time.Minute)
		}()
	}

	root := middleware.Stack(requestLogger.Handler, securityHeaders.Handler, metrics.Middleware)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "backend", cfg.BackendBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a failed listener
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", "error", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if bgWorker != nil {
		bgWorker.Stop()
	}
	sweepers.Wait()

	logger.Info("Graceful shutdown complete")
	return nil
}

// openQueue opens the Postgres job queue when DATABASE_URL is set, running
// migrations first. Without it, jobs live in memory and die with the process.
func openQueue(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (worker.Queue, *sql.DB, error) {
	if cfg.DatabaseUrl == "" {
		logger.Info("DATABASE_URL not set; export jobs use an in-memory queue")
		return worker.NewMemoryQueue(), nil, nil
	}

	db, err := internal.OpenDatabase(ctx, cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := internal.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")
	return worker.NewPostgresQueue(db), db, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
