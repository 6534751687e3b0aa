package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationService interface {
	Dispatch(ctx context.Context, attempt *domain.NotificationAttempt) (*domain.NotificationAttempt, error)
	GetAttempt(ctx context.Context, id string) (*domain.NotificationAttempt, *domain.RetryEntry, error)
	ListAttempts(ctx context.Context, params repository.AttemptListParams) ([]domain.NotificationAttempt, int64, error)
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.SendNotification)
	v1.Get("/notifications/:id", h.GetNotification)
	v1.Get("/notifications", h.ListNotifications)

	return nil
}

type sendNotificationRequest struct {
	CustomerID   string `json:"customerId"`
	ConnectionID string `json:"connectionId"`
	Channel      string `json:"channel"`
	TemplateType string `json:"templateType"`
	Recipient    string `json:"recipient"`
	Payload      string `json:"payload"`
}

type attemptResponse struct {
	ID                string         `json:"id"`
	CustomerID        string         `json:"customerId"`
	ConnectionID      string         `json:"connectionId"`
	Channel           string         `json:"channel"`
	TemplateType      string         `json:"templateType"`
	Recipient         string         `json:"recipient"`
	Status            string         `json:"status"`
	ProviderMessageID *string        `json:"providerMessageId,omitempty"`
	Retry             *retryResponse `json:"retry,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type retryResponse struct {
	ID          string    `json:"id"`
	AttemptID   string    `json:"attemptId"`
	RetryCount  int       `json:"retryCount"`
	NextRetryAt time.Time `json:"nextRetryAt"`
	StatusCode  *int      `json:"statusCode,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

type listNotificationsResponse struct {
	Data []attemptResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) SendNotification(c *fiber.Ctx) error {
	var req sendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	attempt, err := requestToDomainAttempt(req)
	if err != nil {
		return toHTTPError(err)
	}

	sent, err := h.service.Dispatch(c.Context(), &attempt)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toAttemptResponse(sent, nil))
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	attempt, entry, err := h.service.GetAttempt(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toAttemptResponse(attempt, entry))
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	attempts, total, err := h.service.ListAttempts(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]attemptResponse, 0, len(attempts))
	for i := range attempts {
		data = append(data, toAttemptResponse(&attempts[i], nil))
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.AttemptListParams, error) {
	params := repository.AttemptListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.AttemptListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.AttemptListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseAttemptStatusFromString(rawStatus)
		if err != nil {
			return repository.AttemptListParams{}, err
		}
		params.Status = &status
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.AttemptListParams{}, err
		}
		params.Channel = &channel
	}

	if rawTemplate := strings.TrimSpace(c.Query("templateType")); rawTemplate != "" {
		templateType, err := domain.ParseTemplateTypeFromString(rawTemplate)
		if err != nil {
			return repository.AttemptListParams{}, err
		}
		params.TemplateType = &templateType
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.AttemptListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.AttemptListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestToDomainAttempt(req sendNotificationRequest) (domain.NotificationAttempt, error) {
	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return domain.NotificationAttempt{}, err
	}

	templateType, err := domain.ParseTemplateTypeFromString(req.TemplateType)
	if err != nil {
		return domain.NotificationAttempt{}, err
	}

	return domain.NotificationAttempt{
		CustomerID:   strings.TrimSpace(req.CustomerID),
		ConnectionID: strings.TrimSpace(req.ConnectionID),
		Channel:      channel,
		TemplateType: templateType,
		Recipient:    strings.TrimSpace(req.Recipient),
		Payload:      req.Payload,
	}, nil
}

func toAttemptResponse(a *domain.NotificationAttempt, entry *domain.RetryEntry) attemptResponse {
	resp := attemptResponse{
		ID:                a.ID,
		CustomerID:        a.CustomerID,
		ConnectionID:      a.ConnectionID,
		Channel:           a.Channel.String(),
		TemplateType:      a.TemplateType.String(),
		Recipient:         a.Recipient,
		Status:            a.Status.String(),
		ProviderMessageID: a.ProviderMessageID,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if entry != nil {
		resp.Retry = toRetryResponse(entry)
	}
	return resp
}

func toRetryResponse(e *domain.RetryEntry) *retryResponse {
	return &retryResponse{
		ID:          e.ID,
		AttemptID:   e.AttemptID,
		RetryCount:  e.RetryCount,
		NextRetryAt: e.NextRetryAt,
		StatusCode:  e.StatusCode,
		LastError:   e.LastError,
	}
}
