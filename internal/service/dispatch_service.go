package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/observability"
	"github.com/groomhub/notify-engine/internal/provider"
	"github.com/groomhub/notify-engine/internal/ratelimit"
	"github.com/groomhub/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// DispatchService sends notifications through the messaging gateway and
// records every attempt. A provider failure is absorbed into the attempt's
// status and the retry queue; it never propagates to the caller.
type DispatchService struct {
	attempts    repository.AttemptRepository
	connections *ConnectionService
	retries     *RetryService
	tracking    *TrackingService
	quota       *QuotaService
	provider    provider.Provider
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewDispatchService(
	attempts repository.AttemptRepository,
	connections *ConnectionService,
	retries *RetryService,
	tracking *TrackingService,
	quota *QuotaService,
	prov provider.Provider,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*DispatchService, error) {
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if connections == nil {
		return nil, fmt.Errorf("connection service is required")
	}
	if retries == nil {
		return nil, fmt.Errorf("retry service is required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking service is required")
	}
	if quota == nil {
		return nil, fmt.Errorf("quota service is required")
	}
	if prov == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		attempts:    attempts,
		connections: connections,
		retries:     retries,
		tracking:    tracking,
		quota:       quota,
		provider:    prov,
		limiter:     limiter,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Dispatch validates and sends a notification, persisting the attempt with
// its outcome. The returned attempt reflects the result; an error is returned
// only for invalid input, a paused or missing connection, or a storage
// failure.
func (s *DispatchService) Dispatch(ctx context.Context, attempt *domain.NotificationAttempt) (*domain.NotificationAttempt, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if attempt == nil {
		return nil, fmt.Errorf("%w: attempt is required", domain.ErrValidation)
	}

	if strings.TrimSpace(attempt.ID) == "" {
		attempt.ID = uuid.NewString()
	}
	attempt.Recipient = strings.TrimSpace(attempt.Recipient)
	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	conn, err := s.connections.Get(ctx, attempt.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn.State == domain.ConnectionPaused {
		return nil, fmt.Errorf("%w: connection %s is paused", domain.ErrConflict, conn.ID)
	}
	if conn.Channel != attempt.Channel {
		return nil, fmt.Errorf("%w: connection %s does not serve channel %s",
			domain.ErrValidation, conn.ID, attempt.Channel)
	}

	resp, sendErr := s.send(ctx, attempt)

	if sendErr == nil {
		attempt.Status = domain.AttemptStatusSent
		if resp != nil && resp.MessageID != "" {
			attempt.ProviderMessageID = &resp.MessageID
		}
		if err := s.attempts.Create(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to store attempt: %w", err)
		}

		s.recordSuccess(ctx, attempt, conn.ID)
		return attempt, nil
	}

	class := provider.Classify(sendErr)
	statusCode := provider.StatusCodeFromError(sendErr)

	if class == domain.ErrorClassTransient {
		attempt.Status = domain.AttemptStatusRetrying
	} else {
		attempt.Status = domain.AttemptStatusFailed
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to store attempt: %w", err)
	}

	if err := s.connections.RecordFailure(ctx, conn.ID); err != nil {
		s.logger.Error("failed to record connection failure",
			zap.String("connectionId", conn.ID),
			zap.Error(err),
		)
	}

	if _, err := s.retries.Enqueue(ctx, attempt, class, statusCode, sendErr.Error()); err != nil {
		s.logger.Error("failed to enqueue retry",
			zap.String("attemptId", attempt.ID),
			zap.Error(err),
		)
	}

	s.logger.Warn("notification send failed",
		zap.String("attemptId", attempt.ID),
		zap.String("channel", attempt.Channel.String()),
		zap.String("errorClass", class.String()),
		zap.Error(sendErr),
	)

	return attempt, nil
}

// Resend re-sends a stored attempt. Retry queue bookkeeping is the caller's
// job: the attempt status and provider message ID are only updated on
// success, never the retry entry.
func (s *DispatchService) Resend(ctx context.Context, attemptID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return err
	}

	conn, err := s.connections.Get(ctx, attempt.ConnectionID)
	if err != nil {
		return err
	}
	if conn.State == domain.ConnectionPaused {
		return fmt.Errorf("connection %s is paused", conn.ID)
	}

	resp, sendErr := s.send(ctx, attempt)
	if sendErr != nil {
		if err := s.connections.RecordFailure(ctx, conn.ID); err != nil {
			s.logger.Error("failed to record connection failure",
				zap.String("connectionId", conn.ID),
				zap.Error(err),
			)
		}
		return sendErr
	}

	if resp != nil && resp.MessageID != "" {
		if err := s.attempts.SetProviderMessageID(ctx, attempt.ID, resp.MessageID); err != nil {
			s.logger.Error("failed to store provider message id",
				zap.String("attemptId", attempt.ID),
				zap.Error(err),
			)
		}
	}
	s.recordSuccess(ctx, attempt, conn.ID)

	return nil
}

// GetAttempt returns a stored attempt together with its pending retry entry,
// if one exists.
func (s *DispatchService) GetAttempt(ctx context.Context, id string) (*domain.NotificationAttempt, *domain.RetryEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: attempt id is required", domain.ErrValidation)
	}

	attempt, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.retries.entries.GetByAttemptID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return attempt, nil, nil
		}
		return nil, nil, err
	}

	return attempt, entry, nil
}

func (s *DispatchService) ListAttempts(ctx context.Context, params repository.AttemptListParams) ([]domain.NotificationAttempt, int64, error) {
	return s.attempts.List(ctx, params)
}

// send throttles, calls the provider, and does the per-call bookkeeping that
// applies to every gateway API call regardless of outcome.
func (s *DispatchService) send(ctx context.Context, attempt *domain.NotificationAttempt) (*provider.ProviderResponse, error) {
	if err := s.limiter.Wait(ctx, attempt.Channel.String()); err != nil {
		return nil, err
	}

	start := s.now()
	resp, err := s.provider.Send(ctx, attempt)
	if s.metrics != nil {
		s.metrics.ObserveSendDuration(attempt.Channel.String(), time.Since(start))
	}

	s.quota.RecordCall(ctx)

	return resp, err
}

func (s *DispatchService) recordSuccess(ctx context.Context, attempt *domain.NotificationAttempt, connID string) {
	if err := s.connections.RecordSuccess(ctx, connID); err != nil {
		s.logger.Error("failed to reset connection failures",
			zap.String("connectionId", connID),
			zap.Error(err),
		)
	}

	if s.metrics != nil {
		s.metrics.IncNotificationSent(attempt.Channel.String())
	}

	if attempt.TemplateType.Trackable() {
		if _, err := s.tracking.CreateLink(ctx, attempt.CustomerID, attempt.ID); err != nil {
			s.logger.Error("failed to create tracking link",
				zap.String("attemptId", attempt.ID),
				zap.Error(err),
			)
		}
	}
}
