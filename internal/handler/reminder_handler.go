package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/service"
)

type ReminderSweepService interface {
	SweepDue(ctx context.Context, asOf time.Time) (service.ReminderStats, error)
}

type ReminderHandler struct {
	service ReminderSweepService
}

func NewReminderHandler(service ReminderSweepService) (*ReminderHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("reminder service is required")
	}
	return &ReminderHandler{service: service}, nil
}

func RegisterReminderRoutes(router fiber.Router, service ReminderSweepService) error {
	h, err := NewReminderHandler(service)
	if err != nil {
		return err
	}

	router.Group("/v1").Post("/reminders/sweep", h.SweepReminders)
	return nil
}

type reminderSweepResponse struct {
	Due        int `json:"due"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (h *ReminderHandler) SweepReminders(c *fiber.Ctx) error {
	stats, err := h.service.SweepDue(c.Context(), time.Now().UTC())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(reminderSweepResponse{
		Due:        stats.Due,
		Dispatched: stats.Dispatched,
		Skipped:    stats.Skipped,
		Failed:     stats.Failed,
	})
}
