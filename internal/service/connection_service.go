package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/observability"
	"github.com/groomhub/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// ConnectionService tracks provider connection health. Ten consecutive
// failures pause a connection; only an explicit admin resume reactivates it.
type ConnectionService struct {
	connections repository.ConnectionRepository
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewConnectionService(connections repository.ConnectionRepository, logger *zap.Logger) (*ConnectionService, error) {
	if connections == nil {
		return nil, fmt.Errorf("connection repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConnectionService{
		connections: connections,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *ConnectionService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *ConnectionService) Get(ctx context.Context, id string) (*domain.ProviderConnection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: connection id is required", domain.ErrValidation)
	}
	return s.connections.GetByID(ctx, id)
}

func (s *ConnectionService) List(ctx context.Context) ([]domain.ProviderConnection, error) {
	return s.connections.List(ctx)
}

// RecordSuccess resets the consecutive failure counter. A paused connection
// stays paused; success while paused never resumes it.
func (s *ConnectionService) RecordSuccess(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: connection id is required", domain.ErrValidation)
	}
	return s.connections.ResetFailures(ctx, id)
}

// RecordFailure increments the consecutive failure counter and pauses the
// connection once the threshold is reached.
func (s *ConnectionService) RecordFailure(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: connection id is required", domain.ErrValidation)
	}

	failures, err := s.connections.IncrementFailures(ctx, id)
	if err != nil {
		return err
	}
	if failures < domain.PauseThreshold {
		return nil
	}

	paused, err := s.connections.Pause(ctx, id, s.now().UTC())
	if err != nil {
		return err
	}
	if !paused {
		// Already paused, nothing to report again.
		return nil
	}

	conn, getErr := s.connections.GetByID(ctx, id)
	channel := ""
	if getErr == nil {
		channel = conn.Channel.String()
	}

	s.logger.Warn("provider connection paused after consecutive failures",
		zap.String("connectionId", id),
		zap.String("channel", channel),
		zap.Int("failures", failures),
	)
	if s.metrics != nil {
		s.metrics.IncConnectionPaused(channel)
	}

	return nil
}

// Resume reactivates a paused connection and resets its failure counter.
// Resuming an active connection is a conflict.
func (s *ConnectionService) Resume(ctx context.Context, id string) (*domain.ProviderConnection, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: connection id is required", domain.ErrValidation)
	}

	resumed, err := s.connections.Resume(ctx, id)
	if err != nil {
		return nil, err
	}
	if !resumed {
		return nil, fmt.Errorf("%w: connection %s is not paused", domain.ErrConflict, id)
	}

	s.logger.Info("provider connection resumed", zap.String("connectionId", id))
	return s.connections.GetByID(ctx, id)
}
