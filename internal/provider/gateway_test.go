package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/groomhub/notify-engine/internal/domain"
)

func validAttempt() *domain.NotificationAttempt {
	return &domain.NotificationAttempt{
		CustomerID:   "cust-1",
		ConnectionID: "conn-1",
		Channel:      domain.ChannelEmail,
		TemplateType: domain.TemplateBreedReminder,
		Recipient:    "jordan@example.com",
		Payload:      "Bella is due for a groom",
	}
}

func TestMessagingGatewayProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody gatewayRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message_id":"msg-1"}`))
	}))
	defer server.Close()

	p, err := NewMessagingGatewayProvider(server.URL, "secret-key")
	if err != nil {
		t.Fatalf("NewMessagingGatewayProvider() error = %v", err)
	}

	attempt := validAttempt()
	resp, err := p.Send(context.Background(), attempt)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if resp.MessageID != "msg-1" {
		t.Fatalf("MessageID = %q, want %q", resp.MessageID, "msg-1")
	}

	if gotAuth != "Bearer secret-key" {
		t.Fatalf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotBody.To != attempt.Recipient {
		t.Fatalf("request.to = %q, want %q", gotBody.To, attempt.Recipient)
	}
	if gotBody.Channel != "email" {
		t.Fatalf("request.channel = %q, want %q", gotBody.Channel, "email")
	}
	if gotBody.Template != "breed_reminder" {
		t.Fatalf("request.template = %q, want %q", gotBody.Template, "breed_reminder")
	}
}

func TestMessagingGatewayProviderStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "service unavailable is transient", statusCode: http.StatusServiceUnavailable, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "unauthorized is permanent", statusCode: http.StatusUnauthorized, wantTransient: false},
		{name: "unprocessable entity is permanent", statusCode: http.StatusUnprocessableEntity, wantTransient: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("gateway failed"))
			}))
			defer server.Close()

			p, err := NewMessagingGatewayProvider(server.URL, "secret-key")
			if err != nil {
				t.Fatalf("NewMessagingGatewayProvider() error = %v", err)
			}

			_, err = p.Send(context.Background(), validAttempt())
			if err == nil {
				t.Fatal("Send() expected error")
			}

			var providerErr *ProviderError
			if !errors.As(err, &providerErr) {
				t.Fatalf("error type = %T, want *ProviderError", err)
			}
			if providerErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", providerErr.StatusCode, tc.statusCode)
			}
			if providerErr.Transient != tc.wantTransient {
				t.Fatalf("Transient = %v, want %v", providerErr.Transient, tc.wantTransient)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", IsTransient(err), tc.wantTransient)
			}
		})
	}
}

func TestMessagingGatewayProviderRejectsInvalidAttempt(t *testing.T) {
	t.Parallel()

	p, err := NewMessagingGatewayProvider("https://gateway.example.com", "secret-key")
	if err != nil {
		t.Fatalf("NewMessagingGatewayProvider() error = %v", err)
	}

	attempt := validAttempt()
	attempt.Recipient = ""
	if _, err := p.Send(context.Background(), attempt); err == nil {
		t.Fatal("Send() expected validation error")
	}

	if _, err := p.Send(context.Background(), nil); err == nil {
		t.Fatal("Send() expected error for nil attempt")
	}
}

func TestNewMessagingGatewayProviderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewMessagingGatewayProvider("", "key"); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewMessagingGatewayProvider("not a url", "key"); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
	if _, err := NewMessagingGatewayProviderWithClient("https://gateway.example.com", "key", nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	transient := &ProviderError{StatusCode: http.StatusServiceUnavailable, Transient: true}
	if Classify(transient) != domain.ErrorClassTransient {
		t.Fatal("503 should classify transient")
	}

	permanent := &ProviderError{StatusCode: http.StatusUnprocessableEntity, Transient: false}
	if Classify(permanent) != domain.ErrorClassPermanent {
		t.Fatal("422 should classify permanent")
	}

	if Classify(context.DeadlineExceeded) != domain.ErrorClassTransient {
		t.Fatal("deadline exceeded should classify transient")
	}
	if Classify(errors.New("boom")) != domain.ErrorClassPermanent {
		t.Fatal("unknown errors should classify permanent")
	}

	if got := StatusCodeFromError(permanent); got == nil || *got != http.StatusUnprocessableEntity {
		t.Fatalf("StatusCodeFromError() = %v, want 422", got)
	}
	if got := StatusCodeFromError(errors.New("boom")); got != nil {
		t.Fatalf("StatusCodeFromError() = %v, want nil", got)
	}
}
