package models

// EventType is the closed set of processor events the reconciler understands.
// Anything else parses to EventUnknown.
type EventType int

const (
	EventUnknown EventType = iota
	EventInvoicePaid
	EventSubscriptionCancelled
	EventInvoicePaymentFailed
)

var eventNames = map[EventType]string{
	EventInvoicePaid:           "invoice.paid",
	EventSubscriptionCancelled: "subscription.cancelled",
	EventInvoicePaymentFailed:  "invoice.payment_failed",
}

// KnownEventTypes lists every event type other than EventUnknown.
func KnownEventTypes() []EventType {
	return []EventType{EventInvoicePaid, EventSubscriptionCancelled, EventInvoicePaymentFailed}
}

// ParseEventType maps the wire name to an EventType.
func ParseEventType(name string) EventType {
	for t, n := range eventNames {
		if n == name {
			return t
		}
	}
	return EventUnknown
}

func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "unknown"
}

// WebhookPayload is the inbound body posted by the processor.
type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	SubscriptionID string `json:"subscription_id"`
}

// WebhookEvent is a verified, parsed delivery.
type WebhookEvent struct {
	Type           EventType
	RawType        string
	SubscriptionID string
}
