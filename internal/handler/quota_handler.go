package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/domain"
)

type QuotaStatusService interface {
	Status(ctx context.Context) (domain.QuotaStatus, error)
}

type QuotaHandler struct {
	service QuotaStatusService
}

func NewQuotaHandler(service QuotaStatusService) (*QuotaHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("quota service is required")
	}
	return &QuotaHandler{service: service}, nil
}

func RegisterQuotaRoutes(router fiber.Router, service QuotaStatusService) error {
	h, err := NewQuotaHandler(service)
	if err != nil {
		return err
	}

	router.Group("/v1").Get("/quota", h.GetQuota)
	return nil
}

type quotaResponse struct {
	Date     string  `json:"date"`
	Count    int64   `json:"count"`
	Limit    int64   `json:"limit"`
	Percent  float64 `json:"percent"`
	Severity string  `json:"severity"`
}

func (h *QuotaHandler) GetQuota(c *fiber.Ctx) error {
	status, err := h.service.Status(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(quotaResponse{
		Date:     status.Date,
		Count:    status.Count,
		Limit:    status.Limit,
		Percent:  status.Percent,
		Severity: status.Severity.String(),
	})
}
