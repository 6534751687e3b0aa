package repository

import (
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
)

// AttemptModel is the persistence model for notification_attempts.
type AttemptModel struct {
	ID                string               `gorm:"type:uuid;primaryKey"`
	CustomerID        string               `gorm:"type:uuid;not null"`
	ConnectionID      string               `gorm:"type:uuid;not null"`
	Channel           domain.Channel       `gorm:"type:varchar(10);not null"`
	TemplateType      domain.TemplateType  `gorm:"type:varchar(32);not null"`
	Recipient         string               `gorm:"type:varchar(255);not null"`
	Payload           string               `gorm:"type:text;not null"`
	Status            domain.AttemptStatus `gorm:"type:varchar(20);not null"`
	ProviderMessageID *string              `gorm:"type:varchar(255)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (AttemptModel) TableName() string {
	return "notification_attempts"
}

// RetryEntryModel is the persistence model for retry_queue.
type RetryEntryModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	AttemptID   string    `gorm:"type:uuid;not null"`
	RetryCount  int       `gorm:"not null;default:0"`
	NextRetryAt time.Time `gorm:"type:timestamptz;not null"`
	StatusCode  *int      `gorm:"type:int"`
	LastError   string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RetryEntryModel) TableName() string {
	return "retry_queue"
}

// TrackingLinkModel is the persistence model for tracking_links.
type TrackingLinkModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	CustomerID string `gorm:"type:uuid;not null"`
	AttemptID  string `gorm:"type:uuid;not null"`
	ClickedAt  *time.Time
	BookingID  *string `gorm:"type:uuid"`
	LinkedAt   *time.Time
	CreatedAt  time.Time
}

func (TrackingLinkModel) TableName() string {
	return "tracking_links"
}

// ConnectionModel is the persistence model for provider_connections.
type ConnectionModel struct {
	ID                  string                 `gorm:"type:uuid;primaryKey"`
	Channel             domain.Channel         `gorm:"type:varchar(10);not null"`
	Label               string                 `gorm:"type:varchar(255);not null"`
	State               domain.ConnectionState `gorm:"type:varchar(10);not null"`
	ConsecutiveFailures int                    `gorm:"not null;default:0"`
	PausedAt            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (ConnectionModel) TableName() string {
	return "provider_connections"
}

// CustomerModel is the persistence model for customers.
type CustomerModel struct {
	ID                   string         `gorm:"type:uuid;primaryKey"`
	Name                 string         `gorm:"type:varchar(255);not null"`
	DogName              string         `gorm:"type:varchar(255)"`
	Breed                string         `gorm:"type:varchar(128)"`
	Email                string         `gorm:"type:varchar(255)"`
	Phone                string         `gorm:"type:varchar(32)"`
	PreferredChannel     domain.Channel `gorm:"type:varchar(10);not null;default:EMAIL"`
	ReminderIntervalDays int            `gorm:"not null;default:0"`
	LastAppointmentAt    *time.Time
	LastReminderAt       *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (CustomerModel) TableName() string {
	return "customers"
}

// SettingModel is the persistence model for settings key/value rows.
type SettingModel struct {
	Key       string `gorm:"type:varchar(128);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (SettingModel) TableName() string {
	return "settings"
}

func attemptModelFromDomain(a *domain.NotificationAttempt) *AttemptModel {
	if a == nil {
		return nil
	}

	return &AttemptModel{
		ID:                a.ID,
		CustomerID:        a.CustomerID,
		ConnectionID:      a.ConnectionID,
		Channel:           a.Channel,
		TemplateType:      a.TemplateType,
		Recipient:         a.Recipient,
		Payload:           a.Payload,
		Status:            a.Status,
		ProviderMessageID: a.ProviderMessageID,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func attemptModelToDomain(m *AttemptModel) *domain.NotificationAttempt {
	if m == nil {
		return nil
	}

	return &domain.NotificationAttempt{
		ID:                m.ID,
		CustomerID:        m.CustomerID,
		ConnectionID:      m.ConnectionID,
		Channel:           m.Channel,
		TemplateType:      m.TemplateType,
		Recipient:         m.Recipient,
		Payload:           m.Payload,
		Status:            m.Status,
		ProviderMessageID: m.ProviderMessageID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func retryEntryModelFromDomain(e *domain.RetryEntry) *RetryEntryModel {
	if e == nil {
		return nil
	}

	return &RetryEntryModel{
		ID:          e.ID,
		AttemptID:   e.AttemptID,
		RetryCount:  e.RetryCount,
		NextRetryAt: e.NextRetryAt,
		StatusCode:  e.StatusCode,
		LastError:   e.LastError,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func retryEntryModelToDomain(m *RetryEntryModel) *domain.RetryEntry {
	if m == nil {
		return nil
	}

	return &domain.RetryEntry{
		ID:          m.ID,
		AttemptID:   m.AttemptID,
		RetryCount:  m.RetryCount,
		NextRetryAt: m.NextRetryAt,
		StatusCode:  m.StatusCode,
		LastError:   m.LastError,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func trackingLinkModelFromDomain(l *domain.TrackingLink) *TrackingLinkModel {
	if l == nil {
		return nil
	}

	return &TrackingLinkModel{
		ID:         l.ID,
		CustomerID: l.CustomerID,
		AttemptID:  l.AttemptID,
		ClickedAt:  l.ClickedAt,
		BookingID:  l.BookingID,
		LinkedAt:   l.LinkedAt,
		CreatedAt:  l.CreatedAt,
	}
}

func trackingLinkModelToDomain(m *TrackingLinkModel) *domain.TrackingLink {
	if m == nil {
		return nil
	}

	return &domain.TrackingLink{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		AttemptID:  m.AttemptID,
		ClickedAt:  m.ClickedAt,
		BookingID:  m.BookingID,
		LinkedAt:   m.LinkedAt,
		CreatedAt:  m.CreatedAt,
	}
}

func connectionModelToDomain(m *ConnectionModel) *domain.ProviderConnection {
	if m == nil {
		return nil
	}

	return &domain.ProviderConnection{
		ID:                  m.ID,
		Channel:             m.Channel,
		Label:               m.Label,
		State:               m.State,
		ConsecutiveFailures: m.ConsecutiveFailures,
		PausedAt:            m.PausedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func customerModelToDomain(m *CustomerModel) *domain.Customer {
	if m == nil {
		return nil
	}

	return &domain.Customer{
		ID:                   m.ID,
		Name:                 m.Name,
		DogName:              m.DogName,
		Breed:                m.Breed,
		Email:                m.Email,
		Phone:                m.Phone,
		PreferredChannel:     m.PreferredChannel,
		ReminderIntervalDays: m.ReminderIntervalDays,
		LastAppointmentAt:    m.LastAppointmentAt,
		LastReminderAt:       m.LastReminderAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
