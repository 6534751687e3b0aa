package repository

import (
	"context"
	"errors"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type RetryRepository interface {
	Create(ctx context.Context, e *domain.RetryEntry) error
	GetByID(ctx context.Context, id string) (*domain.RetryEntry, error)
	GetByAttemptID(ctx context.Context, attemptID string) (*domain.RetryEntry, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.RetryEntry, error)
	List(ctx context.Context, limit int) ([]domain.RetryEntry, error)
	Reschedule(ctx context.Context, id string, retryCount int, nextRetryAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type GormRetryRepo struct {
	db *gorm.DB
}

func NewGormRetryRepo(db *gorm.DB) *GormRetryRepo {
	return &GormRetryRepo{db: db}
}

func (r *GormRetryRepo) Create(ctx context.Context, e *domain.RetryEntry) error {
	model := retryEntryModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *retryEntryModelToDomain(model)
	}
	return nil
}

func (r *GormRetryRepo) GetByID(ctx context.Context, id string) (*domain.RetryEntry, error) {
	var model RetryEntryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return retryEntryModelToDomain(&model), nil
}

func (r *GormRetryRepo) GetByAttemptID(ctx context.Context, attemptID string) (*domain.RetryEntry, error) {
	var model RetryEntryModel
	err := r.db.WithContext(ctx).First(&model, "attempt_id = ?", attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return retryEntryModelToDomain(&model), nil
}

// GetDue returns entries ready for a re-send, oldest due first. Ties fall back
// to insertion order.
func (r *GormRetryRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.RetryEntry, error) {
	var models []RetryEntryModel
	err := r.db.WithContext(ctx).
		Where("next_retry_at <= ? AND retry_count < ?", now, domain.MaxRetries).
		Order("next_retry_at ASC, created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.RetryEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *retryEntryModelToDomain(&models[i]))
	}

	return entries, nil
}

func (r *GormRetryRepo) List(ctx context.Context, limit int) ([]domain.RetryEntry, error) {
	if limit < 1 {
		limit = 100
	}

	var models []RetryEntryModel
	err := r.db.WithContext(ctx).
		Order("next_retry_at ASC, created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.RetryEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *retryEntryModelToDomain(&models[i]))
	}

	return entries, nil
}

func (r *GormRetryRepo) Reschedule(ctx context.Context, id string, retryCount int, nextRetryAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&RetryEntryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRetryRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&RetryEntryModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
