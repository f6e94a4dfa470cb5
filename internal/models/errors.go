package models

import "errors"

var (
	// ErrOrderNotFound is returned when an order id has no record.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSubscriptionNotFound is returned when a subscription id has no record.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
