package repository

import (
	"context"
	"errors"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type TrackingRepository interface {
	Create(ctx context.Context, l *domain.TrackingLink) error
	GetByID(ctx context.Context, id string) (*domain.TrackingLink, error)
	// MarkClicked stamps the first click timestamp. Returns false without
	// error when a click was already recorded.
	MarkClicked(ctx context.Context, id string, at time.Time) (bool, error)
	// LatestUnlinked returns the most recently created unlinked link for the
	// customer with created_at in [since, until].
	LatestUnlinked(ctx context.Context, customerID string, since, until time.Time) (*domain.TrackingLink, error)
	// LinkBooking attaches a booking to the link, first write wins. Returns
	// false without error when the link was already consumed.
	LinkBooking(ctx context.Context, id string, bookingID string, at time.Time) (bool, error)
}

type GormTrackingRepo struct {
	db *gorm.DB
}

func NewGormTrackingRepo(db *gorm.DB) *GormTrackingRepo {
	return &GormTrackingRepo{db: db}
}

func (r *GormTrackingRepo) Create(ctx context.Context, l *domain.TrackingLink) error {
	model := trackingLinkModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *trackingLinkModelToDomain(model)
	}
	return nil
}

func (r *GormTrackingRepo) GetByID(ctx context.Context, id string) (*domain.TrackingLink, error) {
	var model TrackingLinkModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return trackingLinkModelToDomain(&model), nil
}

func (r *GormTrackingRepo) MarkClicked(ctx context.Context, id string, at time.Time) (bool, error) {
	// clicked_at IS NULL makes the write idempotent under concurrent clicks.
	result := r.db.WithContext(ctx).
		Model(&TrackingLinkModel{}).
		Where("id = ? AND clicked_at IS NULL", id).
		Update("clicked_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTrackingRepo) LatestUnlinked(ctx context.Context, customerID string, since, until time.Time) (*domain.TrackingLink, error) {
	var model TrackingLinkModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND booking_id IS NULL AND created_at >= ? AND created_at <= ?", customerID, since, until).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return trackingLinkModelToDomain(&model), nil
}

func (r *GormTrackingRepo) LinkBooking(ctx context.Context, id string, bookingID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&TrackingLinkModel{}).
		Where("id = ? AND booking_id IS NULL", id).
		Updates(map[string]any{
			"booking_id": bookingID,
			"linked_at":  at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
