// The sweeper runs the retry and reminder sweeps once and exits. The schedule
// lives outside the process (cron, a Kubernetes CronJob), never in it.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/groomhub/notify-engine/internal/config"
	"github.com/groomhub/notify-engine/internal/infra/postgresql"
	"github.com/groomhub/notify-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/groomhub/notify-engine/internal/infra/redis"
	"github.com/groomhub/notify-engine/internal/observability"
	"github.com/groomhub/notify-engine/internal/provider"
	"github.com/groomhub/notify-engine/internal/repository"
	"github.com/groomhub/notify-engine/internal/service"
	"github.com/groomhub/notify-engine/internal/settings"
	"go.uber.org/zap"
)

func main() {
	var (
		skipRetries   = flag.Bool("skip-retries", false, "skip the retry sweep")
		skipReminders = flag.Bool("skip-reminders", false, "skip the reminder sweep")
		timeout       = flag.Duration("timeout", 10*time.Minute, "overall sweep deadline")
	)
	flag.Parse()

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
		logger.Fatal("settings cache init failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}
	quotaCounter, err := infraredis.NewRedisQuotaCounter(rdb)
	if err != nil {
		logger.Fatal("quota counter init failed", zap.Error(err))
	}
	gateway, err := provider.NewMessagingGatewayProvider(cfg.GatewayURL, cfg.GatewayAPIKey)
	if err != nil {
		logger.Fatal("gateway provider init failed", zap.Error(err))
	}

	connectionSvc, err := service.NewConnectionService(connectionRepo, logger)
	if err != nil {
		logger.Fatal("connection service init failed", zap.Error(err))
	}
	retrySvc, err := service.NewRetryService(retryRepo, attemptRepo, logger)
	if err != nil {
		logger.Fatal("retry service init failed", zap.Error(err))
	}
	trackingSvc, err := service.NewTrackingService(trackingRepo, cfg.BookingPortalURL, cfg.FallbackRedirect, logger)
	if err != nil {
		logger.Fatal("tracking service init failed", zap.Error(err))
	}
	quotaSvc, err := service.NewQuotaService(quotaCounter, settingsCache, logger)
	if err != nil {
		logger.Fatal("quota service init failed", zap.Error(err))
	}
	dispatchSvc, err := service.NewDispatchService(
		attemptRepo, connectionSvc, retrySvc, trackingSvc, quotaSvc, gateway, limiter, logger,
	)
	if err != nil {
		logger.Fatal("dispatch service init failed", zap.Error(err))
	}
	retrySvc.SetResender(dispatchSvc)

	reminderSvc, err := service.NewReminderService(
		customerRepo, connectionRepo, dispatchSvc, settingsCache, cfg.ReminderSweepLimit, logger,
	)
	if err != nil {
		logger.Fatal("reminder service init failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if !*skipRetries {
		result, err := retrySvc.Sweep(ctx, time.Now().UTC(), cfg.RetrySweepLimit)
		if err != nil {
			logger.Fatal("retry sweep failed", zap.Error(err))
		}
		logger.Info("retry sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
			zap.Int("exhausted", result.Exhausted),
		)
	}

	if !*skipReminders {
		stats, err := reminderSvc.SweepDue(ctx, time.Now().UTC())
		if err != nil {
			logger.Fatal("reminder sweep failed", zap.Error(err))
		}
		logger.Info("reminder sweep finished",
			zap.Int("due", stats.Due),
			zap.Int("dispatched", stats.Dispatched),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}
}
