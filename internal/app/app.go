package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"school-service/common/logger"
	commonmetrics "school-service/common/metrics"
	"school-service/common/telemetry"
	"school-service/internal/academic"
	"school-service/internal/aggregate"
	"school-service/internal/attendance"
	"school-service/internal/auth"
	"school-service/internal/config"
	"school-service/internal/db"
	"school-service/internal/enrollment"
	"school-service/internal/expense"
	"school-service/internal/fee"
	"school-service/internal/guardian"
	"school-service/internal/health"
	"school-service/internal/messaging"
	"school-service/internal/metrics"
	"school-service/internal/middleware"
	"school-service/internal/notification"
	"school-service/internal/ranking"
	"school-service/internal/reporting"
	"school-service/internal/schema"
	"school-service/internal/student"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config        *config.Config
	router        chi.Router
	server        *http.Server
	logger        *slog.Logger
	db            *bun.DB
	telemetry     *telemetry.Telemetry
	producer      notification.Producer
	notifications *notification.Service
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

	tel, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	}, slogLogger)
	if err != nil {
		return nil, err
	}

	domainMetrics, err := metrics.New(otel.Meter(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize domain metrics: %w", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := tel.Metrics.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}
	database.AddQueryHook(tel.Metrics.Database)

	if err := schema.Migrate(ctx, database); err != nil {
		db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	producer := newProducer(cfg, slogLogger, tel.Metrics)

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    slogLogger,
		db:        database,
		telemetry: tel,
		producer:  producer,
	}

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(middleware.RequestLogging(slogLogger))
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	healthHandler := health.NewHandler(database, tel.Metrics)
	healthHandler.RegisterRoutes(app.router)

	maintainer := aggregate.NewMaintainer(database, slogLogger, domainMetrics)

	guardianRepo := guardian.NewRepository(database, tel.Metrics)
	studentRepo := student.NewRepository(database, tel.Metrics)
	feeRepo := fee.NewRepository(database, tel.Metrics)

	handlers := []interface{ RegisterRoutes(chi.Router) }{
		guardian.NewHandler(guardian.NewService(guardianRepo), slogLogger),
		student.NewHandler(student.NewService(studentRepo), slogLogger, domainMetrics),
		fee.NewHandler(fee.NewService(database, feeRepo, maintainer), slogLogger),
		expense.NewHandler(expense.NewService(expense.NewRepository(database, tel.Metrics)), slogLogger),
		academic.NewHandler(
			academic.NewService(database, academic.NewRepository(database, tel.Metrics), maintainer, slogLogger),
			slogLogger,
		),
		attendance.NewHandler(
			attendance.NewService(attendance.NewRepository(database, tel.Metrics), maintainer),
			slogLogger,
		),
		aggregate.NewHandler(maintainer, slogLogger),
		enrollment.NewHandler(
			enrollment.NewCoordinator(
				database,
				guardianRepo,
				studentRepo,
				feeRepo,
				enrollment.NewFSPhotoStore(cfg.Enrollment.PhotoDir),
				maintainer,
				domainMetrics,
				slogLogger,
				enrollment.WithMaxPhotoBytes(cfg.Enrollment.MaxPhotoBytes),
			),
			slogLogger,
		),
		reporting.NewHandler(
			reporting.NewEngine(database, ranking.NewRepository(database, tel.Metrics)),
			slogLogger,
			domainMetrics,
		),
	}

	app.notifications = notification.NewService(database, guardianRepo, producer, slogLogger, domainMetrics)
	handlers = append(handlers, notification.NewHandler(app.notifications, slogLogger))

	validator := auth.NewValidator(cfg.Auth.JWTSecret)

	// Create protected routes group for /api endpoints
	app.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(validator, slogLogger))
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
	})

	slogLogger.Info("application initialized successfully")

	return app, nil
}

// newProducer picks the notification transport. An unreachable broker does
// not stop the service; messages are then only logged.
func newProducer(cfg *config.Config, log *slog.Logger, m *commonmetrics.Metrics) notification.Producer {
	switch cfg.Notifications.Backend {
	case "nats":
		p, err := messaging.NewNATSProducer(cfg.NATS.URL, cfg.NATS.Subject, log, m)
		if err == nil {
			return p
		}
		log.Warn("failed to initialize NATS producer", "error", err)
	case "kafka":
		p, err := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log, m)
		if err == nil {
			return p
		}
		log.Warn("failed to initialize kafka producer", "error", err)
	}
	return messaging.NewLogProducer(log)
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var firstErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}

	if err := a.notifications.Wait(ctx); err != nil {
		a.logger.Warn("pending notifications not flushed", "error", err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Warn("failed to close producer", "error", err)
	}

	db.Close(a.db)

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
