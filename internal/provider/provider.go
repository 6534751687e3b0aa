package provider

import (
	"context"

	"github.com/groomhub/notify-engine/internal/domain"
)

// Provider is the outbound message delivery port.
type Provider interface {
	Send(ctx context.Context, attempt *domain.NotificationAttempt) (*ProviderResponse, error)
}

// ProviderResponse stores provider call metadata for audit and persistence.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
