package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/domain"
)

type TrackingService interface {
	ClickThrough(ctx context.Context, rawID string) string
	LinkBooking(ctx context.Context, customerID, bookingID string, bookingCreatedAt time.Time) (*domain.TrackingLink, error)
}

type TrackingHandler struct {
	service TrackingService
}

func NewTrackingHandler(service TrackingService) (*TrackingHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("tracking service is required")
	}
	return &TrackingHandler{service: service}, nil
}

func RegisterTrackingRoutes(router fiber.Router, service TrackingService) error {
	h, err := NewTrackingHandler(service)
	if err != nil {
		return err
	}

	// The click-through path is public and lives outside the API version
	// prefix so links stay short.
	router.Get("/t/:trackingId", h.ClickThrough)
	router.Group("/v1").Post("/bookings/events", h.BookingCreated)

	return nil
}

type bookingEventRequest struct {
	CustomerID string     `json:"customerId"`
	BookingID  string     `json:"bookingId"`
	CreatedAt  *time.Time `json:"createdAt"`
}

type bookingEventResponse struct {
	Linked     bool   `json:"linked"`
	TrackingID string `json:"trackingId,omitempty"`
}

// ClickThrough always redirects. A bad or unknown tracking ID sends the
// visitor to the fallback page instead of an error.
func (h *TrackingHandler) ClickThrough(c *fiber.Ctx) error {
	target := h.service.ClickThrough(c.Context(), c.Params("trackingId"))
	return c.Redirect(target, fiber.StatusFound)
}

func (h *TrackingHandler) BookingCreated(c *fiber.Ctx) error {
	var req bookingEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.CustomerID) == "" {
		return toHTTPError(fmt.Errorf("%w: customerId is required", domain.ErrValidation))
	}
	if strings.TrimSpace(req.BookingID) == "" {
		return toHTTPError(fmt.Errorf("%w: bookingId is required", domain.ErrValidation))
	}

	createdAt := time.Now().UTC()
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}

	link, err := h.service.LinkBooking(c.Context(), req.CustomerID, req.BookingID, createdAt)
	if err != nil {
		return toHTTPError(err)
	}

	resp := bookingEventResponse{}
	if link != nil {
		resp.Linked = true
		resp.TrackingID = link.ID
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
