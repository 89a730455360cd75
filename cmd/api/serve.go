package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"reqapi/docs"
	"reqapi/internal/audit"
	"reqapi/internal/config"
	"reqapi/internal/database"
	"reqapi/internal/database/migration"
	"reqapi/internal/generation"
	handlers "reqapi/internal/http/handler"
	"reqapi/internal/http/middleware"
	"reqapi/internal/metrics"
	"reqapi/internal/otel"
	"reqapi/internal/repository"
	"reqapi/internal/repository/postgres"
	"reqapi/internal/repository/sqlite"
	"reqapi/internal/service"
	"reqapi/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error("tracing_init_failed", zap.Error(err))
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Initialize the SQL connection (with pooling via database/sql)
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("db_connect_failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		dialect, err := migration.ForDriver(cfg.Database.Driver)
		if err != nil {
			return err
		}
		if err := migration.EnsureMigrated(ctx, db, dialect, log); err != nil {
			return err
		}
	}

	subSvc, reg, err := buildSubmissionService(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	app, err := newApp(cfg, db, subSvc, reg, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("server_starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server_failed", zap.Error(err))
		}
		return err
	case <-ctx.Done():
		log.Info("server_stopping")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(sctx)
	}
}

// buildSubmissionService wires the store, generator, audit log and optional
// object storage into the submission pipeline.
func buildSubmissionService(ctx context.Context, cfg *config.AppConfig, db *sql.DB, log *zap.Logger) (service.SubmissionService, *prometheus.Registry, error) {
	var repo repository.RequirementRepository
	switch cfg.Database.Driver {
	case database.DriverSQLite:
		repo = sqlite.NewRequirementSQLite(db)
	default:
		repo = postgres.NewRequirementPostgres(db)
	}

	var files storage.Storage
	if cfg.MinIO.Enabled() {
		sctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout())
		s, err := storage.NewMinIO(sctx, cfg.MinIO)
		cancel()
		if err != nil {
			log.Error("storage_init_failed", zap.Error(err))
			return nil, nil, fmt.Errorf("initialize object storage: %w", err)
		}
		files = s
	}

	gen, err := generation.New(ctx, cfg.Generation, tracedClient(cfg.Generation.Timeout()))
	if err != nil {
		log.Error("generation_init_failed", zap.String("provider", cfg.Generation.Provider), zap.Error(err))
		return nil, nil, fmt.Errorf("initialize generation client: %w", err)
	}

	auditLog, err := audit.NewSheetsLogger(ctx, cfg.Audit, tracedClient(cfg.Audit.Timeout()))
	if err != nil {
		log.Error("audit_init_failed", zap.Error(err))
		return nil, nil, fmt.Errorf("initialize audit logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	subMetrics, err := metrics.NewSubmission(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register submission metrics: %w", err)
	}

	svc := service.NewSubmissionService(repo, gen, auditLog, files, service.Options{
		Timeouts: service.Timeouts{
			Store:      cfg.StoreTimeout(),
			Generation: cfg.Generation.Timeout(),
			Audit:      cfg.Audit.Timeout(),
		},
		Metrics: subMetrics,
		Logger:  log,
	})
	return svc, reg, nil
}

func newApp(cfg *config.AppConfig, db *sql.DB, subSvc service.SubmissionService, reg *prometheus.Registry, log *zap.Logger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(cors.New())
	app.Use(prom.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, db, subSvc, log, middleware.RateLimit(cfg.RateLimit))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	return app, nil
}

// tracedClient returns an outbound client whose spans join the inbound request trace.
func tracedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}
