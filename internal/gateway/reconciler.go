package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

const (
	msgInvoicePaid           = "PayArc invoice paid."
	msgSubscriptionCancelled = "PayArc subscription cancelled."
	msgPaymentFailed         = "PayArc payment failed."
	msgBuyerPaymentFailed    = "Subscription payment failed."
)

// Result describes how a webhook event was applied.
type Result string

const (
	ResultApplied   Result = "applied"
	ResultUnchanged Result = "unchanged"
	ResultNoMatch   Result = "no_match"
	ResultIgnored   Result = "ignored"
)

// transition is the local effect of one known event type.
type transition struct {
	status         models.SubscriptionStatus
	note           string
	paymentSuccess bool
	paymentFailure bool
}

// transitionFor is the total map from event type to local effect; ok is false
// only for EventUnknown.
func transitionFor(t models.EventType) (transition, bool) {
	switch t {
	case models.EventInvoicePaid:
		return transition{status: models.SubscriptionStatusActive, note: msgInvoicePaid, paymentSuccess: true}, true
	case models.EventSubscriptionCancelled:
		return transition{status: models.SubscriptionStatusCancelled, note: msgSubscriptionCancelled}, true
	case models.EventInvoicePaymentFailed:
		return transition{status: models.SubscriptionStatusOnHold, note: msgPaymentFailed, paymentFailure: true}, true
	case models.EventUnknown:
		return transition{}, false
	}
	return transition{}, false
}

// Reconciler applies verified webhook events to local subscriptions.
// Deliveries are at-least-once and unordered; every transition is
// latest-wins and repeating one changes nothing.
type Reconciler struct {
	subs   Subscriptions
	orders Orders
	hooks  PaymentHooks
	links  Linker
}

func NewReconciler(subs Subscriptions, orders Orders, hooks PaymentHooks, links Linker) *Reconciler {
	return &Reconciler{subs: subs, orders: orders, hooks: hooks, links: links}
}

// Apply must only be called after the delivery's signature was verified.
func (r *Reconciler) Apply(ctx context.Context, event models.WebhookEvent) (Result, error) {
	tr, ok := transitionFor(event.Type)
	if !ok {
		log.Printf("[webhook] Unhandled event type: %s", event.RawType)
		return ResultIgnored, nil
	}
	if event.SubscriptionID == "" {
		return ResultNoMatch, nil
	}

	localID, found, err := r.links.Lookup(ctx, linkage.KindSubscription, event.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("reconcile %s: %w", event.Type, err)
	}
	if !found {
		log.Printf("[webhook] %s: no local subscription for %s", event.Type, event.SubscriptionID)
		return ResultNoMatch, nil
	}

	id, err := strconv.ParseInt(localID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("reconcile %s: bad local subscription id %q: %w", event.Type, localID, err)
	}

	sub, err := r.subs.GetSubscription(ctx, id)
	if errors.Is(err, models.ErrSubscriptionNotFound) {
		log.Printf("[webhook] %s: subscription %d linked to %s no longer exists", event.Type, id, event.SubscriptionID)
		return ResultNoMatch, nil
	}
	if err != nil {
		return "", fmt.Errorf("reconcile %s: load subscription %d: %w", event.Type, id, err)
	}

	changed := sub.Status != tr.status
	if changed {
		if err := r.subs.UpdateSubscriptionStatus(ctx, sub.ID, tr.status, tr.note); err != nil {
			return "", fmt.Errorf("reconcile %s: update subscription %d: %w", event.Type, sub.ID, err)
		}
		log.Printf("[webhook] subscription %d: %s -> %s (%s)", sub.ID, sub.Status, tr.status, event.Type)
	}

	if sub.LastOrderID != 0 {
		switch {
		case tr.paymentSuccess:
			if err := r.hooks.ProcessPaymentSuccess(ctx, sub.LastOrderID); err != nil {
				return "", fmt.Errorf("reconcile %s: payment success hook for order %d: %w", event.Type, sub.LastOrderID, err)
			}
		case tr.paymentFailure:
			if err := r.hooks.ProcessPaymentFailure(ctx, sub.LastOrderID); err != nil {
				return "", fmt.Errorf("reconcile %s: payment failure hook for order %d: %w", event.Type, sub.LastOrderID, err)
			}
			if changed {
				if err := r.orders.AddOrderNote(ctx, sub.LastOrderID, msgBuyerPaymentFailed, true); err != nil {
					log.Printf("[webhook] order %d: failed to add buyer notice: %v", sub.LastOrderID, err)
				}
			}
		}
	}

	if !changed {
		return ResultUnchanged, nil
	}
	return ResultApplied, nil
}
