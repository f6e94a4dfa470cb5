package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

type chanRecorder chan models.Request

func (c chanRecorder) CreateRequest(ctx context.Context, req models.Request) error {
	c <- req
	return nil
}

func TestRequestTrackerRecordsStatusAndPath(t *testing.T) {
	rec := make(chanRecorder, 1)
	handler := NewRequestTracker(rec).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest(http.MethodPost, "/payarc-mid/v1/webhook?token=secret", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	select {
	case got := <-rec:
		if got.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 recorded, got %d", got.StatusCode)
		}
		if got.Endpoint != "/payarc-mid/v1/webhook" {
			t.Fatalf("unexpected endpoint: %q", got.Endpoint)
		}
		if got.Method != http.MethodPost {
			t.Fatalf("unexpected method: %q", got.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request was not recorded")
	}
}

func TestRequireBearer(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		token  string
		header string
		status int
	}{
		{"disabled", "", "", http.StatusNoContent},
		{"valid", "s3cret", "Bearer s3cret", http.StatusNoContent},
		{"wrong", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payarc-mid/v1/platform/orders/1/checkout", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			RequireBearer(tc.token)(ok).ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}
}
