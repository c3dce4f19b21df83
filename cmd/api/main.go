package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/care-access/internal/api/http"
	"github.com/spec-kit/care-access/internal/api/http/handlers"
	"github.com/spec-kit/care-access/internal/auth"
	"github.com/spec-kit/care-access/internal/config"
	"github.com/spec-kit/care-access/internal/emergency"
	"github.com/spec-kit/care-access/internal/events"
	"github.com/spec-kit/care-access/internal/observability"
	"github.com/spec-kit/care-access/internal/persistence"
	"github.com/spec-kit/care-access/internal/repository"
	"github.com/spec-kit/care-access/internal/service"
	"github.com/spec-kit/care-access/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, zap.String("service", cfg.App.Name), zap.String("version", cfg.App.Version))
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("postgres is required for patient affiliation lookups")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		if cfg.Emergency.Store == config.StoreRedis {
			logger.Fatal("redis is required by the emergency token store", zap.Error(err))
		}
		logger.Warn("redis unreachable, sessions resolve as unauthenticated until it recovers", zap.Error(err))
	}
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, logger.Named("audit"), cfg.Notification)
	audit.RegisterHandlers()
	defer audit.Wait()

	codec := auth.NewSessionCodec(cfg.Auth.SessionSecret)
	sessionStore := auth.NewRedisSessionStore(redis.Client)
	resolver := auth.NewDefaultSessionResolver(auth.ResolverDeps{
		Codec:  codec,
		Store:  sessionStore,
		Logger: logger.Named("auth"),
	})
	authMiddleware := auth.NewAuthMiddleware(resolver, logger.Named("auth"), metrics, cfg.Auth.CookieSecure)
	sessions := auth.NewSessions(sessionStore, codec, cfg.Auth.SessionTTL())

	tokenStore, err := emergency.NewTokenStore(cfg.Emergency, pg.SQLDB(), redis.Client)
	if err != nil {
		logger.Fatal("failed to init emergency token store", zap.Error(err))
	}
	emergencyService := emergency.NewService(emergency.ServiceDeps{
		Store:    tokenStore,
		Patients: repository.NewPatientRepository(pg.PoolHandle()),
		Events:   dispatcher,
		Metrics:  metrics,
		Logger:   logger.Named("emergency"),
	}, emergency.OptionsFrom(cfg.Emergency))
	worker.StartTokenPurger(ctx, emergencyService, cfg.Emergency.PurgeInterval(), emergencyService.Retention(), logger.Named("purger"))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
		),
		Sessions:       handlers.NewSessionHandler(sessions, authMiddleware),
		Emergency:      handlers.NewEmergencyHandler(emergencyService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
