package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// GetSubscription loads a subscription by id.
func (s *Store) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	query := `
SELECT id, user_id, product_id, product_name, last_order_id, total, status, created_at, updated_at
FROM subscriptions
WHERE id = $1
`

	var (
		sub         models.Subscription
		lastOrderID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.ProductID,
		&sub.ProductName,
		&lastOrderID,
		&sub.Total,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get subscription: %w", err)
	}
	sub.LastOrderID = lastOrderID.Int64

	return &sub, nil
}

// UpdateSubscriptionStatus sets the status and records note in one transaction.
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, id int64, status models.SubscriptionStatus, note string) error {
	if !status.Valid() {
		return fmt.Errorf("store: invalid subscription status %q", status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin update subscription tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("store: update subscription status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrSubscriptionNotFound
	}

	if note != "" {
		if err := addNote(ctx, tx, models.NoteSubjectSubscription, id, note, false); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit update subscription tx: %w", err)
	}
	return nil
}

// AddSubscriptionNote records a note on the subscription.
func (s *Store) AddSubscriptionNote(ctx context.Context, id int64, note string, customerVisible bool) error {
	return addNote(ctx, s.db, models.NoteSubjectSubscription, id, note, customerVisible)
}
