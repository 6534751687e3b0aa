package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/repository"
	"github.com/groomhub/notify-engine/internal/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const reminderConcurrency = 8

// Dispatcher sends a prepared notification attempt.
type Dispatcher interface {
	Dispatch(ctx context.Context, attempt *domain.NotificationAttempt) (*domain.NotificationAttempt, error)
}

// ReminderStats summarizes one reminder sweep.
type ReminderStats struct {
	Due        int
	Dispatched int
	Skipped    int
	Failed     int
}

// ReminderService finds customers whose breed grooming interval has elapsed
// and dispatches a reminder to each. Sweeps run on an external schedule.
type ReminderService struct {
	customers   repository.CustomerRepository
	connections repository.ConnectionRepository
	dispatcher  Dispatcher
	settings    *settings.Cache
	logger      *zap.Logger
	sweepLimit  int
}

func NewReminderService(
	customers repository.CustomerRepository,
	connections repository.ConnectionRepository,
	dispatcher Dispatcher,
	cache *settings.Cache,
	sweepLimit int,
	logger *zap.Logger,
) (*ReminderService, error) {
	if customers == nil {
		return nil, fmt.Errorf("customer repository is required")
	}
	if connections == nil {
		return nil, fmt.Errorf("connection repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("settings cache is required")
	}
	if sweepLimit < 1 {
		sweepLimit = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderService{
		customers:   customers,
		connections: connections,
		dispatcher:  dispatcher,
		settings:    cache,
		logger:      logger,
		sweepLimit:  sweepLimit,
	}, nil
}

// SweepDue dispatches reminders for every due customer. Dispatches fan out
// with bounded concurrency; a failure for one customer never stops the sweep.
func (s *ReminderService) SweepDue(ctx context.Context, asOf time.Time) (ReminderStats, error) {
	var stats ReminderStats

	values, err := s.settings.Get(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load reminder settings: %w", err)
	}
	if !values.RemindersEnabled {
		s.logger.Info("reminder sweep skipped, reminders disabled")
		return stats, nil
	}

	due, err := s.customers.DueForReminder(ctx, asOf, s.sweepLimit)
	if err != nil {
		return stats, fmt.Errorf("failed to find due customers: %w", err)
	}
	stats.Due = len(due)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reminderConcurrency)

	for i := range due {
		customer := due[i]
		g.Go(func() error {
			outcome := s.remind(gctx, &customer, asOf)
			mu.Lock()
			switch outcome {
			case reminderDispatched:
				stats.Dispatched++
			case reminderSkipped:
				stats.Skipped++
			case reminderFailed:
				stats.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	s.logger.Info("reminder sweep finished",
		zap.Int("due", stats.Due),
		zap.Int("dispatched", stats.Dispatched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

type reminderOutcome int

const (
	reminderDispatched reminderOutcome = iota
	reminderSkipped
	reminderFailed
)

func (s *ReminderService) remind(ctx context.Context, customer *domain.Customer, asOf time.Time) reminderOutcome {
	recipient := strings.TrimSpace(customer.Recipient())
	if recipient == "" {
		s.logger.Warn("customer has no contact address for preferred channel",
			zap.String("customerId", customer.ID),
			zap.String("channel", customer.PreferredChannel.String()),
		)
		return reminderSkipped
	}

	conn, err := s.connections.GetActiveByChannel(ctx, customer.PreferredChannel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("no active connection for channel",
				zap.String("channel", customer.PreferredChannel.String()),
			)
			return reminderSkipped
		}
		s.logger.Error("failed to find connection for reminder",
			zap.String("customerId", customer.ID),
			zap.Error(err),
		)
		return reminderFailed
	}

	attempt := &domain.NotificationAttempt{
		CustomerID:   customer.ID,
		ConnectionID: conn.ID,
		Channel:      customer.PreferredChannel,
		TemplateType: domain.TemplateBreedReminder,
		Recipient:    recipient,
		Payload:      renderReminderPayload(customer),
	}

	result, err := s.dispatcher.Dispatch(ctx, attempt)
	if err != nil {
		s.logger.Error("failed to dispatch reminder",
			zap.String("customerId", customer.ID),
			zap.Error(err),
		)
		return reminderFailed
	}

	if err := s.customers.TouchReminderSent(ctx, customer.ID, asOf); err != nil {
		s.logger.Error("failed to record reminder timestamp",
			zap.String("customerId", customer.ID),
			zap.Error(err),
		)
	}

	if result.Status == domain.AttemptStatusFailed {
		return reminderFailed
	}
	return reminderDispatched
}

func renderReminderPayload(customer *domain.Customer) string {
	name := customer.Name
	if name == "" {
		name = "there"
	}
	dog := customer.DogName
	if dog == "" {
		dog = "your dog"
	}

	return fmt.Sprintf(
		"Hi %s! %s is due for a groom. %s coats do best on a regular schedule. Book your next appointment today.",
		name, dog, customer.Breed,
	)
}
