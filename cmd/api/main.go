package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/groomhub/notify-engine/internal/config"
	"github.com/groomhub/notify-engine/internal/handler"
	"github.com/groomhub/notify-engine/internal/infra/postgresql"
	"github.com/groomhub/notify-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/groomhub/notify-engine/internal/infra/redis"
	"github.com/groomhub/notify-engine/internal/observability"
	"github.com/groomhub/notify-engine/internal/provider"
	"github.com/groomhub/notify-engine/internal/repository"
	"github.com/groomhub/notify-engine/internal/service"
	"github.com/groomhub/notify-engine/internal/settings"
	"github.com/groomhub/notify-engine/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	services, err := buildServices(cfg, db, rdb, metrics, logger)
	if err != nil {
		logger.Fatal("service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := registerRoutes(app, cfg, services); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	logger.Info("notify-engine api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type appServices struct {
	dispatch    *service.DispatchService
	retries     *service.RetryService
	quota       *service.QuotaService
	connections *service.ConnectionService
	tracking    *service.TrackingService
	reminders   *service.ReminderService
}

func buildServices(
	cfg *config.Config,
	db *gorm.DB,
	rdb *goredis.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*appServices, error) {
	attemptRepo := repository.NewGormAttemptRepo(db)
	retryRepo := repository.NewGormRetryRepo(db)
	connectionRepo := repository.NewGormConnectionRepo(db)
	trackingRepo := repository.NewGormTrackingRepo(db)
	customerRepo := repository.NewGormCustomerRepo(db)

	settingsCache, err := settings.NewCache(
		repository.NewGormSettingsSource(db),
		time.Duration(cfg.SettingsTTLSeconds)*time.Second,
		logger,
	)
	if err != nil {
		return nil, err
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return nil, err
	}
	quotaCounter, err := infraredis.NewRedisQuotaCounter(rdb)
	if err != nil {
		return nil, err
	}

	gateway, err := provider.NewMessagingGatewayProvider(cfg.GatewayURL, cfg.GatewayAPIKey)
	if err != nil {
		return nil, err
	}

	connectionSvc, err := service.NewConnectionService(connectionRepo, logger)
	if err != nil {
		return nil, err
	}
	connectionSvc.SetMetrics(metrics)

	retrySvc, err := service.NewRetryService(retryRepo, attemptRepo, logger)
	if err != nil {
		return nil, err
	}
	retrySvc.SetMetrics(metrics)

	trackingSvc, err := service.NewTrackingService(trackingRepo, cfg.BookingPortalURL, cfg.FallbackRedirect, logger)
	if err != nil {
		return nil, err
	}
	trackingSvc.SetMetrics(metrics)

	quotaSvc, err := service.NewQuotaService(quotaCounter, settingsCache, logger)
	if err != nil {
		return nil, err
	}
	quotaSvc.SetMetrics(metrics)

	dispatchSvc, err := service.NewDispatchService(
		attemptRepo, connectionSvc, retrySvc, trackingSvc, quotaSvc, gateway, limiter, logger,
	)
	if err != nil {
		return nil, err
	}
	dispatchSvc.SetMetrics(metrics)
	retrySvc.SetResender(dispatchSvc)

	reminderSvc, err := service.NewReminderService(
		customerRepo, connectionRepo, dispatchSvc, settingsCache, cfg.ReminderSweepLimit, logger,
	)
	if err != nil {
		return nil, err
	}

	return &appServices{
		dispatch:    dispatchSvc,
		retries:     retrySvc,
		quota:       quotaSvc,
		connections: connectionSvc,
		tracking:    trackingSvc,
		reminders:   reminderSvc,
	}, nil
}

func registerRoutes(app *fiber.App, cfg *config.Config, services *appServices) error {
	if err := handler.RegisterNotificationRoutes(app, services.dispatch); err != nil {
		return err
	}
	if err := handler.RegisterRetryRoutes(app, services.retries, cfg.RetrySweepLimit); err != nil {
		return err
	}
	if err := handler.RegisterQuotaRoutes(app, services.quota); err != nil {
		return err
	}
	if err := handler.RegisterConnectionRoutes(app, services.connections); err != nil {
		return err
	}
	if err := handler.RegisterTrackingRoutes(app, services.tracking); err != nil {
		return err
	}
	return handler.RegisterReminderRoutes(app, services.reminders)
}
