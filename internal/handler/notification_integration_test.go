package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/repository"
	"github.com/groomhub/notify-engine/internal/transport"
	"go.uber.org/zap"
)

type stubNotificationService struct {
	dispatchFn func(ctx context.Context, attempt *domain.NotificationAttempt) (*domain.NotificationAttempt, error)
	getFn      func(ctx context.Context, id string) (*domain.NotificationAttempt, *domain.RetryEntry, error)
	listFn     func(ctx context.Context, params repository.AttemptListParams) ([]domain.NotificationAttempt, int64, error)
}

func (s *stubNotificationService) Dispatch(ctx context.Context, attempt *domain.NotificationAttempt) (*domain.NotificationAttempt, error) {
	return s.dispatchFn(ctx, attempt)
}

func (s *stubNotificationService) GetAttempt(ctx context.Context, id string) (*domain.NotificationAttempt, *domain.RetryEntry, error) {
	return s.getFn(ctx, id)
}

func (s *stubNotificationService) ListAttempts(ctx context.Context, params repository.AttemptListParams) ([]domain.NotificationAttempt, int64, error) {
	return s.listFn(ctx, params)
}

func newTestApp(t *testing.T, register func(app *fiber.App) error) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	if err := register(app); err != nil {
		t.Fatalf("route registration error = %v", err)
	}
	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestNotificationIntegration_SendNotification(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		dispatchFn: func(_ context.Context, attempt *domain.NotificationAttempt) (*domain.NotificationAttempt, error) {
			if err := attempt.Validate(); err != nil {
				return nil, err
			}
			attempt.ID = "attempt-created"
			attempt.Status = domain.AttemptStatusSent
			return attempt, nil
		},
	}

	app := newTestApp(t, func(app *fiber.App) error {
		return RegisterNotificationRoutes(app, svc)
	})

	validBody := `{"customerId":"customer-1","connectionId":"conn-1","channel":"sms","templateType":"breed_reminder","recipient":"+15550100","payload":"Bella is due"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications", validBody)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}

	var accepted map[string]any
	if err := json.Unmarshal(body, &accepted); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if accepted["id"] != "attempt-created" {
		t.Fatalf("id = %v, want attempt-created", accepted["id"])
	}
	if accepted["status"] != domain.AttemptStatusSent.String() {
		t.Fatalf("status = %v, want SENT", accepted["status"])
	}

	badChannelBody := `{"customerId":"customer-1","connectionId":"conn-1","channel":"fax","templateType":"breed_reminder","recipient":"+15550100","payload":"hi"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", badChannelBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad channel", resp.StatusCode)
	}

	oversizedBody := fmt.Sprintf(
		`{"customerId":"customer-1","connectionId":"conn-1","channel":"sms","templateType":"breed_reminder","recipient":"+15550100","payload":"%s"}`,
		strings.Repeat("a", domain.MaxSMSPayload+1),
	)
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", oversizedBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for SMS overflow", resp.StatusCode)
	}
}

func TestNotificationIntegration_PausedConnectionConflict(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		dispatchFn: func(context.Context, *domain.NotificationAttempt) (*domain.NotificationAttempt, error) {
			return nil, fmt.Errorf("%w: connection conn-1 is paused", domain.ErrConflict)
		},
	}

	app := newTestApp(t, func(app *fiber.App) error {
		return RegisterNotificationRoutes(app, svc)
	})

	body := `{"customerId":"customer-1","connectionId":"conn-1","channel":"sms","templateType":"campaign","recipient":"+15550100","payload":"hi"}`
	resp, _ := performRequest(t, app, http.MethodPost, "/v1/notifications", body)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestNotificationIntegration_GetNotification(t *testing.T) {
	t.Parallel()

	code := 503
	svc := &stubNotificationService{
		getFn: func(_ context.Context, id string) (*domain.NotificationAttempt, *domain.RetryEntry, error) {
			if id != "attempt-1" {
				return nil, nil, domain.ErrNotFound
			}
			return &domain.NotificationAttempt{
					ID:           "attempt-1",
					CustomerID:   "customer-1",
					ConnectionID: "conn-1",
					Channel:      domain.ChannelSMS,
					TemplateType: domain.TemplateBreedReminder,
					Recipient:    "+15550100",
					Status:       domain.AttemptStatusRetrying,
				}, &domain.RetryEntry{
					ID:         "entry-1",
					AttemptID:  "attempt-1",
					RetryCount: 1,
					StatusCode: &code,
					LastError:  "gateway unavailable",
				}, nil
		},
	}

	app := newTestApp(t, func(app *fiber.App) error {
		return RegisterNotificationRoutes(app, svc)
	})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/notifications/attempt-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	retry, ok := got["retry"].(map[string]any)
	if !ok {
		t.Fatalf("response has no retry block: %s", string(body))
	}
	if retry["retryCount"] != float64(1) {
		t.Errorf("retryCount = %v, want 1", retry["retryCount"])
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/notifications/missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestNotificationIntegration_ListValidation(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		listFn: func(_ context.Context, params repository.AttemptListParams) ([]domain.NotificationAttempt, int64, error) {
			return nil, 0, nil
		},
	}

	app := newTestApp(t, func(app *fiber.App) error {
		return RegisterNotificationRoutes(app, svc)
	})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/notifications?pageSize=9999", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized pageSize", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/notifications?status=SHOUTING", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/notifications?status=retrying&channel=sms", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
