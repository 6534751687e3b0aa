package repository

import (
	"context"
	"errors"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type AttemptListParams struct {
	Status       *domain.AttemptStatus
	Channel      *domain.Channel
	TemplateType *domain.TemplateType
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

type AttemptRepository interface {
	Create(ctx context.Context, a *domain.NotificationAttempt) error
	GetByID(ctx context.Context, id string) (*domain.NotificationAttempt, error)
	List(ctx context.Context, params AttemptListParams) ([]domain.NotificationAttempt, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.AttemptStatus) error
	SetProviderMessageID(ctx context.Context, id string, providerMsgID string) error
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Create(ctx context.Context, a *domain.NotificationAttempt) error {
	model := attemptModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *attemptModelToDomain(model)
	}
	return nil
}

func (r *GormAttemptRepo) GetByID(ctx context.Context, id string) (*domain.NotificationAttempt, error) {
	var model AttemptModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return attemptModelToDomain(&model), nil
}

func (r *GormAttemptRepo) List(ctx context.Context, params AttemptListParams) ([]domain.NotificationAttempt, int64, error) {
	query := r.db.WithContext(ctx).Model(&AttemptModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.TemplateType != nil {
		query = query.Where("template_type = ?", *params.TemplateType)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []AttemptModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	attempts := make([]domain.NotificationAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, total, nil
}

func (r *GormAttemptRepo) UpdateStatus(ctx context.Context, id string, status domain.AttemptStatus) error {
	result := r.db.WithContext(ctx).
		Model(&AttemptModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormAttemptRepo) SetProviderMessageID(ctx context.Context, id string, providerMsgID string) error {
	return r.db.WithContext(ctx).
		Model(&AttemptModel{}).
		Where("id = ?", id).
		Update("provider_message_id", providerMsgID).Error
}
