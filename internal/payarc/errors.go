package payarc

import (
	"errors"
	"fmt"
)

// Kind classifies a failed processor call.
type Kind int

const (
	// KindTransport means no usable response was received.
	KindTransport Kind = iota + 1
	// KindAPI means the processor answered with a status >= 400.
	KindAPI
	// KindResponse means a 2xx response did not carry the expected fields.
	KindResponse
)

const unknownErrorMessage = "Unknown error"

// Error is returned by every Client operation.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		msg := e.Message
		if msg == "" {
			msg = unknownErrorMessage
		}
		return fmt.Sprintf("payarc: %s: API error (%d): %s", e.Op, e.StatusCode, msg)
	case KindTransport:
		return fmt.Sprintf("payarc: %s: request failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("payarc: %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage renders err as the buyer-facing payment error text.
func UserMessage(err error) string {
	var perr *Error
	if !errors.As(err, &perr) {
		return "Payment error: " + unknownErrorMessage
	}
	switch perr.Kind {
	case KindTransport:
		return fmt.Sprintf("Payment error: Unable to connect to PayArc API. %v", perr.Err)
	case KindAPI:
		if perr.Message != "" {
			return "Payment error: " + perr.Message
		}
	}
	return "Payment error: " + unknownErrorMessage
}
