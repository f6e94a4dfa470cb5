package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/PortNumber53/payarc-mid/backend/internal/config"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

func TestGatewayInfoTestMode(t *testing.T) {
	cfg := config.Gateway{Enabled: true, Title: "PayArc.Mid", Description: "Pay securely using your credit card.", TestMode: true, TestAPIKey: "secret-key"}

	rr := httptest.NewRecorder()
	GatewayInfo(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/payarc-mid/v1/gateway", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["notice"] != TestModeNotice {
		t.Fatalf("expected test notice, got %v", got["notice"])
	}
	if got["title"] != "PayArc.Mid" {
		t.Fatalf("unexpected title: %v", got["title"])
	}
	for _, v := range got {
		if v == "secret-key" {
			t.Fatal("api key leaked in gateway info")
		}
	}
}

func TestGatewayInfoLiveModeHasNoNotice(t *testing.T) {
	rr := httptest.NewRecorder()
	GatewayInfo(config.Gateway{Enabled: true, Title: "PayArc.Mid"}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var got map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["notice"]; ok {
		t.Fatal("live mode should not carry a test notice")
	}
}

type mockPinger struct{ err error }

func (m mockPinger) PingContext(ctx context.Context) error { return m.err }

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(mockPinger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	Health(mockPinger{err: errors.New("down")}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

type mockNotes struct {
	subject models.NoteSubject
	id      int64
	notes   []models.Note
}

func (m *mockNotes) ListNotes(ctx context.Context, subject models.NoteSubject, id int64) ([]models.Note, error) {
	m.subject, m.id = subject, id
	return m.notes, nil
}

func TestNotesHandler(t *testing.T) {
	lister := &mockNotes{notes: []models.Note{{ID: 1, Body: "Awaiting PayArc payment."}}}
	router := chi.NewRouter()
	router.Get("/orders/{orderID}/notes", Notes(lister, models.NoteSubjectOrder, "orderID"))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/42/notes", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if lister.subject != models.NoteSubjectOrder || lister.id != 42 {
		t.Fatalf("unexpected lookup: %s %d", lister.subject, lister.id)
	}
}
