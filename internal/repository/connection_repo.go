package repository

import (
	"context"
	"errors"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type ConnectionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ProviderConnection, error)
	GetActiveByChannel(ctx context.Context, channel domain.Channel) (*domain.ProviderConnection, error)
	List(ctx context.Context) ([]domain.ProviderConnection, error)
	// IncrementFailures bumps the consecutive-failure counter and returns the
	// new value.
	IncrementFailures(ctx context.Context, id string) (int, error)
	ResetFailures(ctx context.Context, id string) error
	// Pause transitions ACTIVE->PAUSED. Returns false without error when the
	// connection was already paused.
	Pause(ctx context.Context, id string, at time.Time) (bool, error)
	// Resume transitions PAUSED->ACTIVE and resets the counter. Returns false
	// without error when the connection was not paused.
	Resume(ctx context.Context, id string) (bool, error)
}

type GormConnectionRepo struct {
	db *gorm.DB
}

func NewGormConnectionRepo(db *gorm.DB) *GormConnectionRepo {
	return &GormConnectionRepo{db: db}
}

func (r *GormConnectionRepo) GetByID(ctx context.Context, id string) (*domain.ProviderConnection, error) {
	var model ConnectionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return connectionModelToDomain(&model), nil
}

func (r *GormConnectionRepo) GetActiveByChannel(ctx context.Context, channel domain.Channel) (*domain.ProviderConnection, error) {
	var model ConnectionModel
	err := r.db.WithContext(ctx).
		Where("channel = ? AND state = ?", channel, domain.ConnectionActive).
		Order("created_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return connectionModelToDomain(&model), nil
}

func (r *GormConnectionRepo) List(ctx context.Context) ([]domain.ProviderConnection, error) {
	var models []ConnectionModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	connections := make([]domain.ProviderConnection, 0, len(models))
	for i := range models {
		connections = append(connections, *connectionModelToDomain(&models[i]))
	}

	return connections, nil
}

func (r *GormConnectionRepo) IncrementFailures(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.WithContext(ctx).
		Raw(`UPDATE provider_connections
		     SET consecutive_failures = consecutive_failures + 1, updated_at = NOW()
		     WHERE id = ?
		     RETURNING consecutive_failures`, id).
		Scan(&count).Error
	if err != nil {
		return 0, err
	}
	if count == 0 {
		// RETURNING yields no row for a missing id; Scan leaves the zero value.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return 0, getErr
		}
	}
	return count, nil
}

func (r *GormConnectionRepo) ResetFailures(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&ConnectionModel{}).
		Where("id = ?", id).
		Update("consecutive_failures", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormConnectionRepo) Pause(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ConnectionModel{}).
		Where("id = ? AND state = ?", id, domain.ConnectionActive).
		Updates(map[string]any{
			"state":     domain.ConnectionPaused,
			"paused_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormConnectionRepo) Resume(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ConnectionModel{}).
		Where("id = ? AND state = ?", id, domain.ConnectionPaused).
		Updates(map[string]any{
			"state":                domain.ConnectionActive,
			"consecutive_failures": 0,
			"paused_at":            nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
