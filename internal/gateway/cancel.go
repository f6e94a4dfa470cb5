package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

const msgCancelFailed = "Failed to cancel PayArc subscription."

// Canceller propagates a locally cancelled subscription to PayArc.
type Canceller struct {
	subs      Subscriptions
	links     Linker
	processor Processor
}

func NewCanceller(subs Subscriptions, links Linker, processor Processor) *Canceller {
	return &Canceller{subs: subs, links: links, processor: processor}
}

// SubscriptionCancelled cancels the linked processor subscription. It returns
// false when the subscription was never provisioned.
func (c *Canceller) SubscriptionCancelled(ctx context.Context, subscriptionID int64) (bool, error) {
	sub, err := c.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return false, fmt.Errorf("cancel: load subscription %d: %w", subscriptionID, err)
	}

	remoteID, found, err := c.links.Get(ctx, linkage.KindSubscription, strconv.FormatInt(sub.ID, 10))
	if err != nil {
		return false, fmt.Errorf("cancel: %w", err)
	}
	if !found {
		return false, nil
	}

	if err := c.processor.CancelSubscription(ctx, remoteID); err != nil {
		log.Printf("[cancel] subscription %d (%s): %v", sub.ID, remoteID, err)
		if nerr := c.subs.AddSubscriptionNote(ctx, sub.ID, withDetail(msgCancelFailed, err), true); nerr != nil {
			log.Printf("[cancel] subscription %d: failed to add note: %v", sub.ID, nerr)
		}
		return true, fmt.Errorf("cancel: subscription %d: %w", sub.ID, err)
	}

	if sub.Status != models.SubscriptionStatusCancelled {
		if err := c.subs.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionStatusCancelled, msgSubscriptionCancelled); err != nil {
			return true, fmt.Errorf("cancel: update subscription %d: %w", sub.ID, err)
		}
	} else if err := c.subs.AddSubscriptionNote(ctx, sub.ID, msgSubscriptionCancelled, false); err != nil {
		log.Printf("[cancel] subscription %d: failed to add note: %v", sub.ID, err)
	}

	log.Printf("[cancel] subscription %d: PayArc subscription %s cancelled", sub.ID, remoteID)
	return true, nil
}
