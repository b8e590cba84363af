package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parking/internal/app"
	"parking/internal/config"
	"parking/internal/events"
	"parking/internal/middleware"
	"parking/internal/repository"
	"parking/internal/repository/memory"
	"parking/internal/repository/postgres"
	"parking/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.App)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	var store repository.Store
	switch cfg.App.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.NewStore()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := app.Migrate(ctx, db, logger); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
		store = postgres.NewStore(db)
		logger.Info("connected to PostgreSQL", zap.String("db", cfg.Database.DBName))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher service.EventPublisher
	if cfg.Events.QueueURL != "" {
		sqsPublisher, err := events.NewSQSPublisherFromEnv(ctx, cfg.Events.Region, cfg.Events.QueueURL)
		if err != nil {
			logger.Fatal("failed to configure event publisher", zap.Error(err))
		}
		publisher = sqsPublisher
		logger.Info("publishing booking events", zap.String("queue_url", cfg.Events.QueueURL))
	}

	server := wireServer(store, redisClient, publisher, nrApp, cfg, logger)

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	store repository.Store,
	redisClient *redis.Client,
	publisher service.EventPublisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *zap.Logger,
) *http.Server {
	services := app.NewServices(store, redisClient, publisher, cfg.Booking, service.SystemClock{}, logger)

	router := app.NewRouter(app.RouterDeps{
		Handlers:      services.Handlers(logger),
		Authenticator: middleware.NewAuthenticator(cfg.Auth.JWTSecret),
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
		Logger:        logger,
		CORSOrigin:    cfg.App.CORSOrigin,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
