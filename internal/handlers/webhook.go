package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/PortNumber53/payarc-mid/backend/internal/gateway"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
)

const maxWebhookBody = 64 << 10

// EventApplier applies a verified webhook event.
type EventApplier interface {
	Apply(ctx context.Context, event models.WebhookEvent) (gateway.Result, error)
}

// Webhook receives PayArc deliveries. Only deliveries signed with secret reach
// the applier; once verified the response is always 200 so the processor does
// not treat local failures as delivery failures.
func Webhook(secret string, applier EventApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid webhook payload")
			return
		}

		event, err := payarc.ParseWebhook(body)
		if err != nil {
			log.Printf("[webhook] failed to parse delivery: %v", err)
			writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid webhook payload")
			return
		}

		if err := payarc.VerifySignature(body, r.Header.Get(payarc.SignatureHeader), secret); err != nil {
			log.Printf("[webhook] rejected delivery: %v", err)
			writeError(w, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature")
			return
		}

		log.Printf("[webhook] Received event %s for %s", event.RawType, event.SubscriptionID)

		result, err := applier.Apply(r.Context(), event)
		if err != nil {
			log.Printf("[webhook] failed to apply %s: %v", event.RawType, err)
		} else {
			log.Printf("[webhook] %s: %s", event.RawType, result)
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}
