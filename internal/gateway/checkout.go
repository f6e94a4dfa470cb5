package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/PortNumber53/payarc-mid/backend/internal/config"
	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
)

const (
	msgCardFieldsRequired = "All card fields are required."
	msgCardInvalid        = "Card details are invalid."
	msgAccountRequired    = "A customer account is required to purchase a subscription."
	msgCustomerFailed     = "Failed to create PayArc customer."
	msgTokenizeFailed     = "Failed to tokenize card."
	msgAttachFailed       = "Failed to attach card to customer."
	msgAwaitingPayment    = "Awaiting PayArc payment."
)

// CheckoutError is a checkout failure the buyer should see.
type CheckoutError struct {
	// Reason is the buyer-facing message.
	Reason string
	// Detail is the processor's message, when the failure came from PayArc.
	Detail string
	// Validation is set for input errors that made no network call.
	Validation bool
	Err        error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout: %s: %v", e.Reason, e.Err)
	}
	return "checkout: " + e.Reason
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Message joins the processor detail and reason for display.
func (e *CheckoutError) Message() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Detail + " " + e.Reason
}

// CheckoutResult is returned on a successful checkout.
type CheckoutResult struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect"`
}

// Checkout drives the first-payment flow for an order.
type Checkout struct {
	cfg       config.Gateway
	storeURL  string
	orders    Orders
	links     Linker
	processor Processor
	validate  *validator.Validate
}

// NewCheckout creates a Checkout. storeURL is the storefront base used for the
// payment page redirect.
func NewCheckout(cfg config.Gateway, storeURL string, orders Orders, links Linker, processor Processor) *Checkout {
	return &Checkout{
		cfg:       cfg,
		storeURL:  strings.TrimRight(storeURL, "/"),
		orders:    orders,
		links:     links,
		processor: processor,
		validate:  validator.New(),
	}
}

// Process validates the card, ensures a processor customer exists, tokenizes
// and attaches the card, and marks the order pending. The first charge is not
// made here.
func (c *Checkout) Process(ctx context.Context, orderID int64, card models.CardInput) (*CheckoutResult, error) {
	if !c.cfg.Enabled {
		return nil, ErrGatewayDisabled
	}

	if err := c.validateCard(card); err != nil {
		return nil, err
	}
	card = card.Normalized()

	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("checkout: load order %d: %w", orderID, err)
	}
	if order.UserID == 0 {
		return nil, &CheckoutError{Reason: msgAccountRequired, Validation: true}
	}

	customerID, created, err := c.links.GetOrCreate(ctx, linkage.KindCustomer, strconv.FormatInt(order.UserID, 10), func(ctx context.Context) (string, error) {
		b := order.Billing
		return c.processor.CreateCustomer(ctx, b.Email, b.FullName(), &payarc.Address{
			Address1: b.Address1,
			Address2: b.Address2,
			City:     b.City,
			State:    b.State,
			Zip:      b.Postcode,
			Country:  b.Country,
			Phone:    b.Phone,
		})
	})
	if err != nil {
		return nil, c.fail(ctx, order, msgCustomerFailed, err)
	}
	if created {
		log.Printf("[checkout] order %d: created PayArc customer %s for user %d", order.ID, customerID, order.UserID)
	}

	tokenID, err := c.processor.TokenizeCard(ctx, card)
	if err != nil {
		return nil, c.fail(ctx, order, msgTokenizeFailed, err)
	}

	if err := c.processor.AttachToken(ctx, customerID, tokenID); err != nil {
		return nil, c.fail(ctx, order, msgAttachFailed, err)
	}

	if err := c.orders.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, msgAwaitingPayment); err != nil {
		return nil, fmt.Errorf("checkout: mark order %d pending: %w", order.ID, err)
	}

	log.Printf("[checkout] order %d: card attached to customer %s, awaiting payment", order.ID, customerID)

	return &CheckoutResult{
		Result:   "success",
		Redirect: c.paymentURL(order),
	}, nil
}

func (c *Checkout) validateCard(card models.CardInput) error {
	if card.Empty() {
		return &CheckoutError{Reason: msgCardFieldsRequired, Validation: true}
	}

	n := card.Normalized()
	if err := c.validate.Struct(n); err != nil {
		return &CheckoutError{Reason: msgCardInvalid, Validation: true, Err: err}
	}
	if month, _ := strconv.Atoi(n.ExpMonth); month < 1 || month > 12 {
		return &CheckoutError{Reason: msgCardInvalid, Validation: true, Err: errors.New("expiry month out of range")}
	}
	return nil
}

// fail records the reason on the order and returns the buyer-facing error.
// The order status is left untouched so it stays unpaid.
func (c *Checkout) fail(ctx context.Context, order *models.Order, reason string, cause error) error {
	log.Printf("[checkout] order %d: %s %v", order.ID, reason, cause)

	cerr := &CheckoutError{Reason: reason, Err: cause}
	var perr *payarc.Error
	if errors.As(cause, &perr) {
		cerr.Detail = payarc.UserMessage(cause)
	}

	if err := c.orders.AddOrderNote(ctx, order.ID, withDetail(reason, cause), false); err != nil {
		log.Printf("[checkout] order %d: failed to record failure note: %v", order.ID, err)
	}
	return cerr
}

func (c *Checkout) paymentURL(order *models.Order) string {
	q := url.Values{}
	q.Set("pay_for_order", "true")
	q.Set("key", order.OrderKey)
	return fmt.Sprintf("%s/checkout/order-pay/%d/?%s", c.storeURL, order.ID, q.Encode())
}
