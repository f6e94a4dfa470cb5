package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/PortNumber53/payarc-mid/backend/internal/gateway"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// PaymentCompleter provisions a subscription after its first payment.
type PaymentCompleter interface {
	PaymentComplete(ctx context.Context, subscriptionID int64) (gateway.Outcome, error)
}

// CancellationPropagator pushes a local cancellation to the processor.
type CancellationPropagator interface {
	SubscriptionCancelled(ctx context.Context, subscriptionID int64) (bool, error)
}

// PaymentComplete handles the platform's payment-complete signal.
func PaymentComplete(p PaymentCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "subscriptionID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_subscription", "invalid subscription id")
			return
		}

		outcome, err := p.PaymentComplete(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]any{"subscription_id": id, "outcome": outcome})
		case errors.Is(err, models.ErrSubscriptionNotFound):
			writeError(w, http.StatusNotFound, "subscription_not_found", "subscription not found")
		case errors.Is(err, gateway.ErrPrecondition):
			writeError(w, http.StatusConflict, "precondition_failed", err.Error())
		case outcome == gateway.OutcomeFailed:
			writeError(w, http.StatusBadGateway, "processor_error", err.Error())
		default:
			log.Printf("[provision] subscription %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to provision subscription")
		}
	}
}

// SubscriptionCancelled handles the platform's cancellation signal.
func SubscriptionCancelled(c CancellationPropagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "subscriptionID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_subscription", "invalid subscription id")
			return
		}

		linked, err := c.SubscriptionCancelled(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]any{"subscription_id": id, "linked": linked})
		case errors.Is(err, models.ErrSubscriptionNotFound):
			writeError(w, http.StatusNotFound, "subscription_not_found", "subscription not found")
		case linked:
			writeError(w, http.StatusBadGateway, "processor_error", err.Error())
		default:
			log.Printf("[cancel] subscription %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to cancel subscription")
		}
	}
}
