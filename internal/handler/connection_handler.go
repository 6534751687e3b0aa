package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/domain"
)

type ConnectionAdminService interface {
	List(ctx context.Context) ([]domain.ProviderConnection, error)
	Resume(ctx context.Context, id string) (*domain.ProviderConnection, error)
}

type ConnectionHandler struct {
	service ConnectionAdminService
}

func NewConnectionHandler(service ConnectionAdminService) (*ConnectionHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("connection service is required")
	}
	return &ConnectionHandler{service: service}, nil
}

func RegisterConnectionRoutes(router fiber.Router, service ConnectionAdminService) error {
	h, err := NewConnectionHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/connections", h.ListConnections)
	v1.Post("/connections/:id/resume", h.ResumeConnection)

	return nil
}

type connectionResponse struct {
	ID                  string     `json:"id"`
	Channel             string     `json:"channel"`
	Label               string     `json:"label,omitempty"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	PausedAt            *time.Time `json:"pausedAt,omitempty"`
}

type listConnectionsResponse struct {
	Data []connectionResponse `json:"data"`
}

func (h *ConnectionHandler) ListConnections(c *fiber.Ctx) error {
	connections, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]connectionResponse, 0, len(connections))
	for i := range connections {
		data = append(data, toConnectionResponse(&connections[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listConnectionsResponse{Data: data})
}

func (h *ConnectionHandler) ResumeConnection(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	conn, err := h.service.Resume(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toConnectionResponse(conn))
}

func toConnectionResponse(conn *domain.ProviderConnection) connectionResponse {
	return connectionResponse{
		ID:                  conn.ID,
		Channel:             conn.Channel.String(),
		Label:               conn.Label,
		State:               conn.State.String(),
		ConsecutiveFailures: conn.ConsecutiveFailures,
		PausedAt:            conn.PausedAt,
	}
}
