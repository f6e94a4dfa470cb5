// Package gateway holds the PayArc subscription lifecycle: checkout,
// provisioning, cancellation and webhook reconciliation. Checkout receives an
// immutable config.Gateway; every component talks to the hosting platform only
// through the interfaces declared here.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
)

// Processor is the subset of the PayArc client the lifecycle needs.
type Processor interface {
	CreateCustomer(ctx context.Context, email, name string, address *payarc.Address) (string, error)
	TokenizeCard(ctx context.Context, card models.CardInput) (string, error)
	AttachToken(ctx context.Context, customerID, tokenID string) error
	CreatePlan(ctx context.Context, amount decimal.Decimal, interval, name, planCode string) (string, error)
	CreateSubscription(ctx context.Context, customerID, planID string) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Linker resolves and creates linkages.
type Linker interface {
	Get(ctx context.Context, kind linkage.Kind, localID string) (string, bool, error)
	Lookup(ctx context.Context, kind linkage.Kind, remoteID string) (string, bool, error)
	GetOrCreate(ctx context.Context, kind linkage.Kind, localID string, create linkage.CreateFunc) (string, bool, error)
}

// Orders is the platform's order storage.
type Orders interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, note string) error
	AddOrderNote(ctx context.Context, id int64, note string, customerVisible bool) error
}

// Subscriptions is the platform's subscription storage.
type Subscriptions interface {
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id int64, status models.SubscriptionStatus, note string) error
	AddSubscriptionNote(ctx context.Context, id int64, note string, customerVisible bool) error
}

// PaymentHooks are the platform's payment outcome handlers. Both must be
// safe to call more than once for the same order.
type PaymentHooks interface {
	ProcessPaymentSuccess(ctx context.Context, orderID int64) error
	ProcessPaymentFailure(ctx context.Context, orderID int64) error
}

var (
	// ErrGatewayDisabled is returned by checkout when the payment method is off.
	ErrGatewayDisabled = errors.New("gateway: payarc payment method is disabled")
	// ErrPrecondition marks a provisioning attempt that cannot proceed.
	ErrPrecondition = errors.New("gateway: precondition failed")
)

// withDetail appends the processor's buyer-facing message to a note.
func withDetail(msg string, err error) string {
	var perr *payarc.Error
	if errors.As(err, &perr) {
		return msg + " " + payarc.UserMessage(err)
	}
	return msg
}
