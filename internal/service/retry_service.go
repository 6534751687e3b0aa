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
	"github.com/groomhub/notify-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	failureReasonPermanent = "permanent_error"
	failureReasonExhausted = "retry_exhausted"
)

// Resender re-sends a previously stored attempt without touching the retry
// queue; the retry service owns the follow-up bookkeeping.
type Resender interface {
	Resend(ctx context.Context, attemptID string) error
}

// SweepResult summarizes one pass over the due retry entries.
type SweepResult struct {
	Processed int
	Succeeded int
	Failed    int
	Exhausted int
}

// RetryService holds notifications that failed transiently and re-attempts
// them on the fixed backoff schedule. Entries are removed, never flagged,
// once terminal.
type RetryService struct {
	entries  repository.RetryRepository
	attempts repository.AttemptRepository
	resender Resender
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewRetryService(
	entries repository.RetryRepository,
	attempts repository.AttemptRepository,
	logger *zap.Logger,
) (*RetryService, error) {
	if entries == nil {
		return nil, fmt.Errorf("retry repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryService{
		entries:  entries,
		attempts: attempts,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SetResender wires the dispatch path used by Sweep. Set after construction
// because the dispatcher also depends on this service for enqueueing.
func (s *RetryService) SetResender(resender Resender) {
	if s == nil {
		return
	}
	s.resender = resender
}

func (s *RetryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Enqueue records the outcome of a failed send. Permanent failures are never
// queued: they are reported as terminal immediately. Transient failures enter
// the queue with a zero retry count and the first backoff wait.
func (s *RetryService) Enqueue(
	ctx context.Context,
	attempt *domain.NotificationAttempt,
	class domain.ErrorClass,
	statusCode *int,
	lastError string,
) (*domain.RetryEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if attempt == nil || strings.TrimSpace(attempt.ID) == "" {
		return nil, fmt.Errorf("%w: attempt is required", domain.ErrValidation)
	}
	if !class.IsValid() {
		return nil, fmt.Errorf("%w: invalid error class %q", domain.ErrValidation, class)
	}

	if class == domain.ErrorClassPermanent {
		s.reportTerminal(attempt.ID, attempt.Channel, failureReasonPermanent, statusCode, lastError)
		return nil, nil
	}

	now := s.now().UTC()
	entry := &domain.RetryEntry{
		ID:          uuid.NewString(),
		AttemptID:   attempt.ID,
		RetryCount:  0,
		NextRetryAt: now.Add(domain.RetryBackoff(0)),
		StatusCode:  statusCode,
		LastError:   lastError,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to enqueue retry entry: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncRetryScheduled(attempt.Channel.String())
	}
	s.logger.Info("notification queued for retry",
		zap.String("attemptId", attempt.ID),
		zap.String("entryId", entry.ID),
		zap.Time("nextRetryAt", entry.NextRetryAt),
	)

	return entry, nil
}

// DueForRetry returns entries whose next retry time has passed, oldest due
// first.
func (s *RetryService) DueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.RetryEntry, error) {
	if limit < 1 {
		limit = 100
	}
	return s.entries.GetDue(ctx, now, limit)
}

func (s *RetryService) List(ctx context.Context, limit int) ([]domain.RetryEntry, error) {
	return s.entries.List(ctx, limit)
}

// RecordResult applies a re-send outcome. Success removes the entry and marks
// the attempt sent. Failure increments the count; at MaxRetries the entry is
// removed and the attempt reported as a terminal failure, otherwise the next
// retry time follows the backoff table.
func (s *RetryService) RecordResult(ctx context.Context, entryID string, success bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(entryID) == "" {
		return fmt.Errorf("%w: entry id is required", domain.ErrValidation)
	}

	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	if success {
		if err := s.entries.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("failed to remove retry entry: %w", err)
		}
		if err := s.attempts.UpdateStatus(ctx, entry.AttemptID, domain.AttemptStatusSent); err != nil {
			return fmt.Errorf("failed to mark attempt sent: %w", err)
		}
		return nil
	}

	entry.RetryCount++
	if entry.Exhausted() {
		if err := s.entries.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("failed to remove exhausted retry entry: %w", err)
		}
		if err := s.attempts.UpdateStatus(ctx, entry.AttemptID, domain.AttemptStatusFailed); err != nil {
			return fmt.Errorf("failed to mark attempt failed: %w", err)
		}

		channel := domain.Channel("")
		if attempt, getErr := s.attempts.GetByID(ctx, entry.AttemptID); getErr == nil {
			channel = attempt.Channel
		}
		s.reportTerminal(entry.AttemptID, channel, failureReasonExhausted, entry.StatusCode, entry.LastError)
		if s.metrics != nil {
			s.metrics.IncRetryExhausted(channel.String())
		}
		return nil
	}

	nextRetryAt := s.now().UTC().Add(domain.RetryBackoff(entry.RetryCount))
	if err := s.entries.Reschedule(ctx, entry.ID, entry.RetryCount, nextRetryAt); err != nil {
		return fmt.Errorf("failed to reschedule retry entry: %w", err)
	}
	if s.metrics != nil {
		channel := domain.Channel("")
		if attempt, getErr := s.attempts.GetByID(ctx, entry.AttemptID); getErr == nil {
			channel = attempt.Channel
		}
		s.metrics.IncRetryScheduled(channel.String())
	}

	return nil
}

// Sweep processes due entries in due order. It is invoked by an external
// schedule, never by an in-process timer.
func (s *RetryService) Sweep(ctx context.Context, now time.Time, limit int) (SweepResult, error) {
	var result SweepResult

	if s.resender == nil {
		return result, fmt.Errorf("resender is not configured")
	}

	due, err := s.DueForRetry(ctx, now, limit)
	if err != nil {
		return result, fmt.Errorf("failed to fetch due retries: %w", err)
	}

	for i := range due {
		entry := due[i]
		result.Processed++

		sendErr := s.resender.Resend(ctx, entry.AttemptID)
		if errors.Is(sendErr, domain.ErrNotFound) {
			// Attempt row is gone; the entry is an orphan.
			if delErr := s.entries.Delete(ctx, entry.ID); delErr != nil && !errors.Is(delErr, domain.ErrNotFound) {
				s.logger.Error("failed to remove orphaned retry entry",
					zap.String("entryId", entry.ID),
					zap.Error(delErr),
				)
			}
			result.Failed++
			continue
		}

		wasLastChance := entry.RetryCount == domain.MaxRetries-1
		if err := s.RecordResult(ctx, entry.ID, sendErr == nil); err != nil {
			s.logger.Error("failed to record retry result",
				zap.String("entryId", entry.ID),
				zap.Bool("success", sendErr == nil),
				zap.Error(err),
			)
			result.Failed++
			continue
		}

		if sendErr == nil {
			result.Succeeded++
			continue
		}

		result.Failed++
		if wasLastChance {
			result.Exhausted++
		}
	}

	return result, nil
}

func (s *RetryService) reportTerminal(
	attemptID string,
	channel domain.Channel,
	reason string,
	statusCode *int,
	lastError string,
) {
	fields := []zap.Field{
		zap.String("attemptId", attemptID),
		zap.String("reason", reason),
	}
	if statusCode != nil {
		fields = append(fields, zap.Int("statusCode", *statusCode))
	}
	if strings.TrimSpace(lastError) != "" {
		fields = append(fields, zap.String("lastError", lastError))
	}
	s.logger.Error("notification failed terminally, manual action required", fields...)

	if s.metrics != nil {
		s.metrics.IncNotificationFailed(channel.String(), reason)
	}
}
