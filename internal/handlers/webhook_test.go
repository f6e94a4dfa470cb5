package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PortNumber53/payarc-mid/backend/internal/gateway"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
)

const testSecret = "whsec_test"

type mockApplier struct {
	events []models.WebhookEvent
	err    error
}

func (m *mockApplier) Apply(ctx context.Context, event models.WebhookEvent) (gateway.Result, error) {
	m.events = append(m.events, event)
	return gateway.ResultApplied, m.err
}

func postWebhook(t *testing.T, h http.Handler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payarc-mid/v1/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(payarc.SignatureHeader, signature)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhookAppliesSignedEvent(t *testing.T) {
	applier := &mockApplier{}
	body := `{"event":"invoice.paid","data":{"subscription_id":"sub_1"}}`

	rr := postWebhook(t, Webhook(testSecret, applier), body, payarc.Sign([]byte(body), testSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"status":"success"}` {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if len(applier.events) != 1 {
		t.Fatalf("expected one applied event, got %d", len(applier.events))
	}
	if ev := applier.events[0]; ev.Type != models.EventInvoicePaid || ev.SubscriptionID != "sub_1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	body := `{"event":"subscription.cancelled","data":{"subscription_id":"sub_1"}}`

	cases := map[string]struct {
		secret    string
		signature string
	}{
		"wrong signature": {testSecret, payarc.Sign([]byte(body), "other")},
		"missing header":  {testSecret, ""},
		"secret unset":    {"", payarc.Sign([]byte(body), "")},
		"garbage":         {testSecret, "not-hex"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			applier := &mockApplier{}
			rr := postWebhook(t, Webhook(tc.secret, applier), body, tc.signature)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), `"code":"invalid_signature"`) {
				t.Fatalf("unexpected body: %s", rr.Body.String())
			}
			if len(applier.events) != 0 {
				t.Fatalf("expected no events applied, got %d", len(applier.events))
			}
		})
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	applier := &mockApplier{}
	body := `{"event":`

	rr := postWebhook(t, Webhook(testSecret, applier), body, payarc.Sign([]byte(body), testSecret))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	want := `{"code":"invalid_payload","message":"Invalid webhook payload"}`
	if strings.TrimSpace(rr.Body.String()) != want {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if len(applier.events) != 0 {
		t.Fatal("expected no events applied")
	}
}

func TestWebhookRejectsEmptyPayload(t *testing.T) {
	for _, body := range []string{`null`, `{}`} {
		applier := &mockApplier{}

		rr := postWebhook(t, Webhook(testSecret, applier), body, payarc.Sign([]byte(body), testSecret))

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"code":"invalid_payload"`) {
			t.Fatalf("%s: unexpected body: %s", body, rr.Body.String())
		}
		if len(applier.events) != 0 {
			t.Fatalf("%s: expected no events applied", body)
		}
	}
}

func TestWebhookApplyErrorStillSucceeds(t *testing.T) {
	applier := &mockApplier{err: errors.New("db down")}
	body := `{"event":"invoice.payment_failed","data":{"subscription_id":"sub_1"}}`

	rr := postWebhook(t, Webhook(testSecret, applier), body, payarc.Sign([]byte(body), testSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestWebhookUnknownEventIsAccepted(t *testing.T) {
	applier := &mockApplier{}
	body := `{"event":"charge.refunded","data":{}}`

	rr := postWebhook(t, Webhook(testSecret, applier), body, payarc.Sign([]byte(body), testSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(applier.events) != 1 || applier.events[0].Type != models.EventUnknown {
		t.Fatalf("expected unknown event forwarded, got %+v", applier.events)
	}
}
