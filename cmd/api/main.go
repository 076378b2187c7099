package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/broadcast-ops/fault-tracker/internal/api/http"
	"github.com/broadcast-ops/fault-tracker/internal/api/http/handlers"
	"github.com/broadcast-ops/fault-tracker/internal/auth"
	"github.com/broadcast-ops/fault-tracker/internal/config"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/events"
	"github.com/broadcast-ops/fault-tracker/internal/observability"
	"github.com/broadcast-ops/fault-tracker/internal/persistence"
	"github.com/broadcast-ops/fault-tracker/internal/repository"
	"github.com/broadcast-ops/fault-tracker/internal/service"
	"github.com/broadcast-ops/fault-tracker/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	userService := service.NewUserService(*cfg, userRepo)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Dispatcher:       dispatcher,
		Cache:            redis,
	}, logger)
	notificationService.RegisterHandlers()

	newIssueService := func(spec domain.Spec) *service.IssueService {
		return service.NewIssueService(spec, service.IssueDependencies{
			IssueRepo:  repository.NewIssueRepository(pool, spec),
			UserRepo:   userRepo,
			Dispatcher: dispatcher,
		})
	}
	casService := newIssueService(domain.CASSpec)
	channelService := newIssueService(domain.ChannelSpec)
	frequencyService := newIssueService(domain.FrequencySpec)

	avatarStore, err := upload.NewAvatarStore(cfg.Upload)
	if err != nil {
		logger.Fatal("failed to init avatar store", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(userService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	app.Static(cfg.Upload.BaseURL, cfg.Upload.Dir)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:           handlers.NewUsersHandler(userService, avatarStore),
		CASIssues:       handlers.NewIssuesHandler(casService, userService),
		ChannelIssues:   handlers.NewIssuesHandler(channelService, userService),
		FrequencyIssues: handlers.NewIssuesHandler(frequencyService, userService),
		Notifications:   handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware:  authMiddleware,
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
