package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

const (
	// planInterval is the only recurring interval supported.
	planInterval = "month"

	msgNoCustomer          = "No PayArc customer linked to this subscription."
	msgPlanFailed          = "Failed to create PayArc plan."
	msgSubscriptionFailed  = "Failed to create PayArc subscription."
	msgSubscriptionCreated = "PayArc subscription created."
)

// Outcome describes what a provisioning attempt did.
type Outcome string

const (
	OutcomeProvisioned        Outcome = "provisioned"
	OutcomeAlreadyProvisioned Outcome = "already_provisioned"
	OutcomeFailed             Outcome = "failed"
)

// Provisioner turns a paid subscription into a processor-managed one.
type Provisioner struct {
	subs      Subscriptions
	links     Linker
	processor Processor
	now       func() time.Time
}

func NewProvisioner(subs Subscriptions, links Linker, processor Processor) *Provisioner {
	return &Provisioner{
		subs:      subs,
		links:     links,
		processor: processor,
		now:       time.Now,
	}
}

// PaymentComplete handles the platform's first-payment-complete signal. It is
// a no-op for subscriptions already linked to PayArc; renewals are billed by
// the processor and must never be re-provisioned here. Failures set the
// subscription to failed and are not retried.
func (p *Provisioner) PaymentComplete(ctx context.Context, subscriptionID int64) (Outcome, error) {
	sub, err := p.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return "", fmt.Errorf("provision: load subscription %d: %w", subscriptionID, err)
	}
	localID := strconv.FormatInt(sub.ID, 10)

	if remoteID, found, err := p.links.Get(ctx, linkage.KindSubscription, localID); err != nil {
		return "", fmt.Errorf("provision: %w", err)
	} else if found {
		log.Printf("[provision] subscription %d already linked to %s, skipping", sub.ID, remoteID)
		return OutcomeAlreadyProvisioned, nil
	}

	customerID, found, err := p.links.Get(ctx, linkage.KindCustomer, strconv.FormatInt(sub.UserID, 10))
	if err != nil {
		return "", fmt.Errorf("provision: %w", err)
	}
	if !found {
		p.fail(ctx, sub, msgNoCustomer, nil)
		return OutcomeFailed, fmt.Errorf("%w: subscription %d has no linked customer for user %d", ErrPrecondition, sub.ID, sub.UserID)
	}

	planID, _, err := p.links.GetOrCreate(ctx, linkage.KindPlan, strconv.FormatInt(sub.ProductID, 10), func(ctx context.Context) (string, error) {
		planCode := fmt.Sprintf("plan_%d_%d", sub.ProductID, p.now().Unix())
		return p.processor.CreatePlan(ctx, sub.Total, planInterval, sub.ProductName, planCode)
	})
	if err != nil {
		p.fail(ctx, sub, msgPlanFailed, err)
		return OutcomeFailed, fmt.Errorf("provision: subscription %d: %w", sub.ID, err)
	}

	remoteID, created, err := p.links.GetOrCreate(ctx, linkage.KindSubscription, localID, func(ctx context.Context) (string, error) {
		return p.processor.CreateSubscription(ctx, customerID, planID)
	})
	if err != nil {
		p.fail(ctx, sub, msgSubscriptionFailed, err)
		return OutcomeFailed, fmt.Errorf("provision: subscription %d: %w", sub.ID, err)
	}
	if !created {
		log.Printf("[provision] subscription %d was linked to %s concurrently", sub.ID, remoteID)
		return OutcomeAlreadyProvisioned, nil
	}

	if err := p.subs.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionStatusActive, msgSubscriptionCreated); err != nil {
		return "", fmt.Errorf("provision: activate subscription %d: %w", sub.ID, err)
	}

	log.Printf("[provision] subscription %d provisioned as %s (customer=%s, plan=%s)", sub.ID, remoteID, customerID, planID)
	return OutcomeProvisioned, nil
}

func (p *Provisioner) fail(ctx context.Context, sub *models.Subscription, msg string, cause error) {
	log.Printf("[provision] subscription %d: %s %v", sub.ID, msg, cause)
	if err := p.subs.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionStatusFailed, withDetail(msg, cause)); err != nil {
		log.Printf("[provision] subscription %d: failed to mark failed: %v", sub.ID, err)
	}
}
