package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/groomhub/notify-engine/internal/domain"
)

const defaultGatewayTimeout = 10 * time.Second

type gatewayRequest struct {
	To       string `json:"to"`
	Channel  string `json:"channel"`
	Template string `json:"template"`
	Body     string `json:"body"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
}

// MessagingGatewayProvider sends email and SMS through the hosted messaging
// gateway's REST API.
type MessagingGatewayProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

var _ Provider = (*MessagingGatewayProvider)(nil)

func NewMessagingGatewayProvider(endpoint, apiKey string) (*MessagingGatewayProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	// Retrying failed sends is the retry queue's job, not the HTTP client's.
	client.SetRetryCount(0)

	return NewMessagingGatewayProviderWithClient(endpoint, apiKey, client)
}

func NewMessagingGatewayProviderWithClient(endpoint, apiKey string, client *resty.Client) (*MessagingGatewayProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &MessagingGatewayProvider{
		client:   client,
		endpoint: strings.TrimRight(trimmedEndpoint, "/"),
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (p *MessagingGatewayProvider) Send(ctx context.Context, attempt *domain.NotificationAttempt) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if attempt == nil {
		return nil, fmt.Errorf("invalid attempt: attempt is required")
	}
	if err := attempt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid attempt: %w", err)
	}

	reqBody := gatewayRequest{
		To:       attempt.Recipient,
		Channel:  strings.ToLower(attempt.Channel.String()),
		Template: strings.ToLower(attempt.TemplateType.String()),
		Body:     attempt.Payload,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetBody(reqBody).
		Post(p.endpoint + "/v1/messages")
	if err != nil {
		return nil, &ProviderError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  gatewayMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, responseBody),
		Transient:  domain.ClassifyStatusCode(statusCode) == domain.ErrorClassTransient,
	}
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func gatewayMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		if id := strings.TrimSpace(parsed.MessageID); id != "" {
			return id
		}
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
