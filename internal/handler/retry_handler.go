package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/service"
)

type RetryQueueService interface {
	List(ctx context.Context, limit int) ([]domain.RetryEntry, error)
	Sweep(ctx context.Context, now time.Time, limit int) (service.SweepResult, error)
}

type RetryHandler struct {
	service    RetryQueueService
	sweepLimit int
}

func NewRetryHandler(service RetryQueueService, sweepLimit int) (*RetryHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("retry service is required")
	}
	if sweepLimit < 1 {
		sweepLimit = 100
	}
	return &RetryHandler{service: service, sweepLimit: sweepLimit}, nil
}

func RegisterRetryRoutes(router fiber.Router, service RetryQueueService, sweepLimit int) error {
	h, err := NewRetryHandler(service, sweepLimit)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/retries", h.ListRetries)
	v1.Post("/retries/sweep", h.SweepRetries)

	return nil
}

type listRetriesResponse struct {
	Data []retryResponse `json:"data"`
}

type sweepResponse struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Exhausted int `json:"exhausted"`
}

func (h *RetryHandler) ListRetries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.sweepLimit)
	if limit < 1 || limit > 1000 {
		return toHTTPError(fmt.Errorf("%w: limit must be between 1 and 1000", domain.ErrValidation))
	}

	entries, err := h.service.List(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]retryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, *toRetryResponse(&entries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listRetriesResponse{Data: data})
}

// SweepRetries processes due entries once. The schedule lives outside the
// process; this endpoint is what cron or an operator hits.
func (h *RetryHandler) SweepRetries(c *fiber.Ctx) error {
	result, err := h.service.Sweep(c.Context(), time.Now().UTC(), h.sweepLimit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(sweepResponse{
		Processed: result.Processed,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Exhausted: result.Exhausted,
	})
}
