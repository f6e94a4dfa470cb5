package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the order states of the hosting store platform.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
)

// SubscriptionStatus is the local subscription state. It is only moved by
// provisioning and webhook reconciliation.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusOnHold    SubscriptionStatus = "on-hold"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusFailed    SubscriptionStatus = "failed"
)

// Valid reports whether s is one of the known subscription states.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusOnHold,
		SubscriptionStatusCancelled, SubscriptionStatusFailed:
		return true
	}
	return false
}

// BillingProfile is the buyer's billing details captured on the order.
type BillingProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// FullName joins first and last name the way the customer record expects.
func (b BillingProfile) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

type Order struct {
	ID        int64           `json:"id"`
	OrderKey  string          `json:"order_key"`
	UserID    int64           `json:"user_id"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Billing   BillingProfile  `json:"billing"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Subscription struct {
	ID          int64              `json:"id"`
	UserID      int64              `json:"user_id"`
	ProductID   int64              `json:"product_id"`
	ProductName string             `json:"product_name"`
	LastOrderID int64              `json:"last_order_id"`
	Total       decimal.Decimal    `json:"total"`
	Status      SubscriptionStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NoteSubject identifies what a note is attached to.
type NoteSubject string

const (
	NoteSubjectOrder        NoteSubject = "order"
	NoteSubjectSubscription NoteSubject = "subscription"
)

// Note is an order or subscription note, optionally shown to the buyer.
type Note struct {
	ID              int64       `json:"id"`
	SubjectType     NoteSubject `json:"subject_type"`
	SubjectID       int64       `json:"subject_id"`
	Body            string      `json:"body"`
	CustomerVisible bool        `json:"customer_visible"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Request is one row of the HTTP request log.
type Request struct {
	ID             int64     `json:"id"`
	Method         string    `json:"method"`
	Endpoint       string    `json:"endpoint"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	RequestID      string    `json:"request_id"`
	CreatedAt      time.Time `json:"created_at"`
}
