package payarc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "x-payarc-signature"

// ErrInvalidSignature is returned when a delivery is not signed with the
// configured secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrEmptyPayload is returned for a body that decodes to nothing usable,
// such as null or an object without an event name.
var ErrEmptyPayload = errors.New("empty webhook payload")

// ParseWebhook decodes a delivery body. It does not authenticate it.
func ParseWebhook(body []byte) (models.WebhookEvent, error) {
	var payload *models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.WebhookEvent{}, fmt.Errorf("parse webhook event: %w", err)
	}
	if payload == nil || strings.TrimSpace(payload.Event) == "" {
		return models.WebhookEvent{}, fmt.Errorf("parse webhook event: %w", ErrEmptyPayload)
	}
	return models.WebhookEvent{
		Type:           models.ParseEventType(payload.Event),
		RawType:        payload.Event,
		SubscriptionID: strings.TrimSpace(payload.Data.SubscriptionID),
	}, nil
}

// Sign returns the signature the processor sends for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the body in constant time. An
// empty secret never verifies.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	expected := Sign(body, secret)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}
