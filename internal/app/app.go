package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"membership-service/common/logger"
	commonmetrics "membership-service/common/metrics"
	"membership-service/common/telemetry"
	"membership-service/internal/alumni"
	"membership-service/internal/asset"
	"membership-service/internal/config"
	"membership-service/internal/db"
	"membership-service/internal/event"
	"membership-service/internal/health"
	"membership-service/internal/kafka"
	"membership-service/internal/member"
	"membership-service/internal/messaging"
	"membership-service/internal/metrics"
	"membership-service/internal/middleware"
	"membership-service/internal/notification"
	"membership-service/internal/position"
	"membership-service/internal/professor"
	"membership-service/internal/store"
	"membership-service/internal/submission"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type App struct {
	config       *config.Config
	router       chi.Router
	server       *http.Server
	grpcServer   *grpc.Server
	healthServer *grpchealth.Server
	telemetry    *telemetry.Telemetry
	notifier     *notification.Notifier
	closeDB      func(context.Context) error
	logger       *slog.Logger
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses JSON format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "git_commit", GitCommit, "build_time", BuildTime)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env, "database", cfg.Database.Driver, "broker", cfg.Notifications.Broker)

	ctx := context.Background()

	tel, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Endpoint:       cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		ExportInterval: cfg.Telemetry.ExportInterval(),
	}, slogLogger)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		telemetry: tel,
		logger:    slogLogger,
	}

	backend := app.openBackend(ctx, tel.Metrics)
	if err := tel.Metrics.Health.RegisterDependencies(ctx, otel.Meter(ServiceName), []string{backend.Driver()}); err != nil {
		slogLogger.Warn("failed to register dependency gauges", "error", err)
	}

	domainMetrics, err := metrics.New(otel.Meter(ServiceName))
	if err != nil {
		log.Fatalf("failed to initialize domain metrics: %v", err)
	}

	alumniColl := mustOpen[alumni.Alumni](ctx, backend, "alumni", "email")
	professorColl := mustOpen[professor.Professor](ctx, backend, "professors", "email")
	positionColl := mustOpen[position.Holder](ctx, backend, "positions", "email")
	eventColl := mustOpen[event.Event](ctx, backend, "events")
	upcomingColl := mustOpen[event.UpcomingEvent](ctx, backend, "upcoming_events")
	memberColl := mustOpen[member.Member](ctx, backend, "members", "email", "bits_id")

	// Image host
	assets, err := asset.NewCloudinary(cfg.Assets, slogLogger)
	if err != nil {
		log.Fatalf("failed to initialize asset store: %v", err)
	}
	cleaner := asset.NewCleaner(assets, cfg.Assets.DeleteTimeout(), slogLogger)

	app.notifier = newNotifier(cfg.Notifications, tel.Metrics, slogLogger)

	coordinator := submission.NewCoordinator(assets, cleaner, app.notifier, domainMetrics, slogLogger, submission.Options{
		UploadTimeout:     cfg.Assets.UploadTimeout(),
		PersistTimeout:    cfg.Submission.PersistTimeout(),
		UploadConcurrency: cfg.Submission.UploadConcurrency,
	})

	maxBytes := cfg.Assets.MaxBytes

	alumniHandler := alumni.NewHandler(alumni.NewService(alumniColl, coordinator), maxBytes, slogLogger, domainMetrics)
	professorHandler := professor.NewHandler(professor.NewService(professorColl, coordinator), maxBytes, slogLogger, domainMetrics)
	positionHandler := position.NewHandler(position.NewService(positionColl, coordinator), maxBytes, slogLogger, domainMetrics)
	eventService := event.NewService(eventColl, upcomingColl, coordinator, cleaner, app.notifier, cfg.UpcomingEvent.ReplaceStrategy, slogLogger)
	eventHandler := event.NewHandler(eventService, maxBytes, slogLogger, domainMetrics)
	memberService := member.NewService(memberColl, coordinator, cleaner, app.notifier)
	memberHandler := member.NewHandler(memberService, maxBytes, slogLogger, domainMetrics)
	assetHandler := asset.NewHandler(cleaner, slogLogger)

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.RequestLogger(slogLogger))
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints
	healthHandler := health.NewHandler(backend, backend.Driver(), tel.Metrics.Health, slogLogger)
	healthHandler.RegisterRoutes(app.router)

	app.router.Route("/api", func(r chi.Router) {
		alumniHandler.RegisterRoutes(r)
		professorHandler.RegisterRoutes(r)
		positionHandler.RegisterRoutes(r)
		eventHandler.RegisterRoutes(r)
		memberHandler.RegisterRoutes(r)
		assetHandler.RegisterRoutes(r)
	})

	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      app.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// gRPC server carries the standard health service for cluster probes
	app.grpcServer = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(tel.Metrics.Grpc.UnaryServerInterceptor()),
	)
	app.healthServer = grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(app.grpcServer, app.healthServer)
	app.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	app.healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	slogLogger.Info("application initialized successfully")

	return app
}

func (a *App) openBackend(ctx context.Context, m *commonmetrics.Metrics) *store.Backend {
	switch a.config.Database.Driver {
	case config.DriverPostgres:
		database, err := db.New(ctx, a.config.Database.Postgres, a.logger)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		if err := m.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
			a.logger.Warn("failed to register pool metrics", "error", err)
		}
		a.closeDB = func(context.Context) error {
			db.Close(database)
			return nil
		}
		return store.NewBunBackend(database, m, a.logger)
	default:
		client, err := db.NewMongo(ctx, a.config.Database.Mongo, a.logger)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		a.closeDB = client.Close
		return store.NewMongoBackend(client.Database, m, a.logger)
	}
}

func mustOpen[T any](ctx context.Context, backend *store.Backend, name string, uniqueKeys ...string) store.Collection[T] {
	coll, err := store.Open[T](ctx, backend, name, uniqueKeys...)
	if err != nil {
		log.Fatalf("failed to open collection %s: %v", name, err)
	}
	return coll
}

func newNotifier(cfg config.NotificationsConfig, m *commonmetrics.Metrics, logger *slog.Logger) *notification.Notifier {
	switch cfg.Broker {
	case config.BrokerNATS:
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			logger.Warn("failed to initialize NATS producer, notices disabled", "error", err)
			return notification.NewNotifier(nil, cfg.NATS.Subject, m, logger)
		}
		logger.Info("NATS producer initialized successfully", "subject", cfg.NATS.Subject)
		return notification.NewNotifier(producer, cfg.NATS.Subject, m, logger)
	case config.BrokerKafka:
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Warn("failed to initialize Kafka producer, notices disabled", "error", err)
			return notification.NewNotifier(nil, cfg.Kafka.Topic, m, logger)
		}
		logger.Info("Kafka producer initialized successfully", "topic", cfg.Kafka.Topic)
		return notification.NewNotifier(producer, cfg.Kafka.Topic, m, logger)
	default:
		logger.Info("notification broker disabled")
		return notification.NewNotifier(nil, "", m, logger)
	}
}

func (a *App) Run() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Grpc.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	var g errgroup.Group

	g.Go(func() error {
		a.logger.Info("gRPC server starting", "port", a.config.Grpc.Port)
		return a.grpcServer.Serve(lis)
	})

	g.Go(func() error {
		a.logger.Info("server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.healthServer.Shutdown()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	a.grpcServer.GracefulStop()

	// Pending notices drain before the broker connection closes
	if err := a.notifier.Close(); err != nil {
		a.logger.Error("notifier close error", "error", err)
	}

	if a.closeDB != nil {
		if err := a.closeDB(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
