package repository

import (
	"context"
	"errors"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// DueForReminder returns customers whose breed grooming interval has
	// elapsed since their last appointment and who have not been reminded
	// since that appointment.
	DueForReminder(ctx context.Context, asOf time.Time, limit int) ([]domain.Customer, error)
	TouchReminderSent(ctx context.Context, id string, at time.Time) error
}

type GormCustomerRepo struct {
	db *gorm.DB
}

func NewGormCustomerRepo(db *gorm.DB) *GormCustomerRepo {
	return &GormCustomerRepo{db: db}
}

func (r *GormCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	var model CustomerModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return customerModelToDomain(&model), nil
}

func (r *GormCustomerRepo) DueForReminder(ctx context.Context, asOf time.Time, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 500
	}

	var models []CustomerModel
	err := r.db.WithContext(ctx).
		Where(`reminder_interval_days > 0
		       AND last_appointment_at IS NOT NULL
		       AND last_appointment_at + make_interval(days => reminder_interval_days) <= ?
		       AND (last_reminder_at IS NULL OR last_reminder_at < last_appointment_at)`, asOf).
		Order("last_appointment_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	customers := make([]domain.Customer, 0, len(models))
	for i := range models {
		customers = append(customers, *customerModelToDomain(&models[i]))
	}

	return customers, nil
}

func (r *GormCustomerRepo) TouchReminderSent(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("id = ?", id).
		Update("last_reminder_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
