package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel represents the outbound delivery channel.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// TemplateType identifies which business message an attempt carries.
type TemplateType string

const (
	TemplateBreedReminder           TemplateType = "BREED_REMINDER"
	TemplateAppointmentConfirmation TemplateType = "APPOINTMENT_CONFIRMATION"
	TemplateReportCard              TemplateType = "REPORT_CARD"
	TemplateCampaign                TemplateType = "CAMPAIGN"
)

func (t TemplateType) String() string { return string(t) }

func (t TemplateType) IsValid() bool {
	switch t {
	case TemplateBreedReminder, TemplateAppointmentConfirmation, TemplateReportCard, TemplateCampaign:
		return true
	}
	return false
}

// Trackable reports whether a conversion tracking link is issued at send time.
// Only marketing touches are attributed to a later booking.
func (t TemplateType) Trackable() bool {
	return t == TemplateBreedReminder || t == TemplateCampaign
}

func ParseTemplateTypeFromString(s string) (TemplateType, error) {
	tt := TemplateType(strings.ToUpper(strings.TrimSpace(s)))
	if !tt.IsValid() {
		return "", fmt.Errorf("%w: invalid template type %q", ErrValidation, s)
	}
	return tt, nil
}

// AttemptStatus is the delivery state of an outbound message.
type AttemptStatus string

const (
	AttemptStatusSent     AttemptStatus = "SENT"
	AttemptStatusRetrying AttemptStatus = "RETRYING"
	AttemptStatusFailed   AttemptStatus = "FAILED"
)

func (s AttemptStatus) String() string { return string(s) }

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStatusSent, AttemptStatusRetrying, AttemptStatusFailed:
		return true
	}
	return false
}

func ParseAttemptStatusFromString(s string) (AttemptStatus, error) {
	status := AttemptStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: invalid attempt status %q", ErrValidation, s)
	}
	return status, nil
}

// Payload limits per channel (in characters).
const (
	MaxSMSPayload   = 640
	MaxEmailPayload = 10000
)

// NotificationAttempt is a single outbound message. The payload is immutable
// once created; only status and provider message id change afterwards.
type NotificationAttempt struct {
	ID                string
	CustomerID        string
	ConnectionID      string
	Channel           Channel
	TemplateType      TemplateType
	Recipient         string
	Payload           string
	Status            AttemptStatus
	ProviderMessageID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a *NotificationAttempt) Validate() error {
	if strings.TrimSpace(a.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if strings.TrimSpace(a.ConnectionID) == "" {
		return fmt.Errorf("%w: connection id is required", ErrValidation)
	}
	if a.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if a.Payload == "" {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if !a.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, a.Channel)
	}
	if !a.TemplateType.IsValid() {
		return fmt.Errorf("%w: invalid template type %q", ErrValidation, a.TemplateType)
	}
	if a.Channel == ChannelEmail && !strings.Contains(a.Recipient, "@") {
		return fmt.Errorf("%w: recipient is not an email address", ErrValidation)
	}

	payloadLen := len([]rune(a.Payload))
	switch a.Channel {
	case ChannelSMS:
		if payloadLen > MaxSMSPayload {
			return fmt.Errorf("%w: SMS payload exceeds %d characters (got %d)", ErrValidation, MaxSMSPayload, payloadLen)
		}
	case ChannelEmail:
		if payloadLen > MaxEmailPayload {
			return fmt.Errorf("%w: email payload exceeds %d characters (got %d)", ErrValidation, MaxEmailPayload, payloadLen)
		}
	}

	return nil
}
