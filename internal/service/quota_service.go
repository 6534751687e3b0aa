package service

import (
	"context"
	"fmt"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/observability"
	"github.com/groomhub/notify-engine/internal/quota"
	"github.com/groomhub/notify-engine/internal/settings"
	"go.uber.org/zap"
)

// QuotaService tracks gateway API usage against the configurable daily
// limit. Tracking is advisory: a counter failure never blocks a send, and
// reaching the limit raises severity rather than cutting notifications off.
type QuotaService struct {
	counter  quota.Counter
	settings *settings.Cache
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewQuotaService(counter quota.Counter, cache *settings.Cache, logger *zap.Logger) (*QuotaService, error) {
	if counter == nil {
		return nil, fmt.Errorf("quota counter is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("settings cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuotaService{
		counter:  counter,
		settings: cache,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *QuotaService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// RecordCall counts one gateway API call against today's quota. Errors are
// logged and swallowed so quota bookkeeping cannot fail a notification.
func (s *QuotaService) RecordCall(ctx context.Context) {
	day := domain.QuotaDay(s.now())

	count, err := s.counter.Incr(ctx, day)
	if err != nil {
		s.logger.Warn("failed to record quota usage",
			zap.String("day", day),
			zap.Error(err),
		)
		return
	}

	values, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to load quota settings", zap.Error(err))
		return
	}

	percent := usagePercent(count, values.QuotaDailyLimit)
	if s.metrics != nil {
		s.metrics.SetQuotaUsedPercent(percent)
	}

	severity := domain.QuotaSeverityFor(percent, values.QuotaWarnThresholds)
	if severity != domain.QuotaSeverityOK {
		s.logger.Warn("daily quota threshold crossed",
			zap.String("day", day),
			zap.Int64("count", count),
			zap.Int64("limit", values.QuotaDailyLimit),
			zap.String("severity", severity.String()),
		)
	}
}

// Status reports today's usage, limit and severity.
func (s *QuotaService) Status(ctx context.Context) (domain.QuotaStatus, error) {
	day := domain.QuotaDay(s.now())

	values, err := s.settings.Get(ctx)
	if err != nil {
		return domain.QuotaStatus{}, fmt.Errorf("failed to load quota settings: %w", err)
	}

	count, err := s.counter.Get(ctx, day)
	if err != nil {
		return domain.QuotaStatus{}, fmt.Errorf("failed to read quota counter: %w", err)
	}

	percent := usagePercent(count, values.QuotaDailyLimit)

	return domain.QuotaStatus{
		Date:     day,
		Count:    count,
		Limit:    values.QuotaDailyLimit,
		Percent:  percent,
		Severity: domain.QuotaSeverityFor(percent, values.QuotaWarnThresholds),
	}, nil
}

func usagePercent(count, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(count) / float64(limit) * 100
}
