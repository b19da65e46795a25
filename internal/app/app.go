package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bohdanadamenko/mini-time-tracker/internal/config"
	"github.com/bohdanadamenko/mini-time-tracker/internal/db"
	"github.com/bohdanadamenko/mini-time-tracker/internal/entry"
	"github.com/bohdanadamenko/mini-time-tracker/internal/health"
	"github.com/bohdanadamenko/mini-time-tracker/internal/kafka"
	"github.com/bohdanadamenko/mini-time-tracker/internal/logger"
	"github.com/bohdanadamenko/mini-time-tracker/internal/messaging"
	"github.com/bohdanadamenko/mini-time-tracker/internal/metrics"
	"github.com/bohdanadamenko/mini-time-tracker/internal/middleware"
	"github.com/bohdanadamenko/mini-time-tracker/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	telemetry *telemetry.Telemetry
	publisher io.Closer
}

func New(ctx context.Context) (*App, error) {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "commit", GitCommit, "build_time", BuildTime)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	tel, err := telemetry.Init(ctx, cfg.Telemetry, ServiceName, Version, cfg.Env, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	m, err := metrics.New(tel.Meter())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := metrics.RegisterRuntime(tel.Meter()); err != nil {
		slogLogger.Warn("failed to register runtime metrics", "error", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := m.Database.RegisterDB(database.DB, tel.Meter()); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}

	if err := db.RunMigrations(ctx, database,
		[]interface{}{(*entry.Entry)(nil)},
		db.Index{Name: "time_entries_date_idx", Model: (*entry.Entry)(nil), Columns: []string{"date"}},
	); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    slogLogger,
		db:        database,
		telemetry: tel,
	}

	publisher := app.newPublisher(cfg.Events)

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.RealIP)
	app.router.Use(middleware.RequestLogger(slogLogger))
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler := health.NewHandler(database, slogLogger)
	if checker, ok := publisher.(health.Checker); ok {
		healthHandler.AddChecker("events", checker)
	}
	healthHandler.RegisterRoutes(app.router)

	entryRepo := entry.NewRepository(database, m)
	entryService := entry.NewService(entryRepo, publisher, slogLogger, m, entry.Options{
		MaxHoursPerDay:  decimal.NewFromFloat(cfg.Entries.MaxHoursPerDay),
		DefaultPageSize: cfg.Entries.DefaultPageSize,
		MaxPageSize:     cfg.Entries.MaxPageSize,
	})
	entryHandler := entry.NewHandler(entryService, slogLogger)
	entryHandler.RegisterRoutes(app.router)

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      app.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	slogLogger.Info("application initialized successfully")

	return app, nil
}

// newPublisher connects the configured broker. A broker that cannot be reached
// disables events rather than blocking startup.
func (a *App) newPublisher(cfg config.EventsConfig) entry.EventPublisher {
	switch cfg.Driver {
	case "nats":
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, entry events disabled", "error", err)
			return nil
		}
		a.publisher = producer
		return producer
	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize kafka producer, entry events disabled", "error", err)
			return nil
		}
		a.publisher = producer
		return producer
	default:
		a.logger.Info("entry events disabled")
		return nil
	}
}

func (a *App) Run() error {
	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	errs := []error{a.server.Shutdown(ctx)}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.telemetry.Shutdown(ctx))
	db.Close(a.db)

	return errors.Join(errs...)
}
