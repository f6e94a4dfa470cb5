package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// GetOrder loads an order with its billing profile.
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	query := `
SELECT id, order_key, user_id, status, total, billing, created_at, updated_at
FROM orders
WHERE id = $1
`

	var (
		order   models.Order
		billing []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.OrderKey,
		&order.UserID,
		&order.Status,
		&order.Total,
		&billing,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get order: %w", err)
	}

	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &order.Billing); err != nil {
			return nil, fmt.Errorf("store: decode billing for order %d: %w", id, err)
		}
	}

	return &order, nil
}

// UpdateOrderStatus sets the order status and records note in one transaction.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, note string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin update order tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("store: update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrOrderNotFound
	}

	if note != "" {
		if err := addNote(ctx, tx, models.NoteSubjectOrder, id, note, false); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit update order tx: %w", err)
	}
	return nil
}

// AddOrderNote records a note on the order.
func (s *Store) AddOrderNote(ctx context.Context, id int64, note string, customerVisible bool) error {
	return addNote(ctx, s.db, models.NoteSubjectOrder, id, note, customerVisible)
}

// ProcessPaymentSuccess marks the order paid. Repeating it is a no-op.
func (s *Store) ProcessPaymentSuccess(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE orders SET status = $1, updated_at = now()
WHERE id = $2 AND status NOT IN ($1, $3)
`, string(models.OrderStatusProcessing), orderID, string(models.OrderStatusCompleted))
	if err != nil {
		return fmt.Errorf("store: payment success for order %d: %w", orderID, err)
	}
	return nil
}

// ProcessPaymentFailure marks the order failed. Repeating it is a no-op.
func (s *Store) ProcessPaymentFailure(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE orders SET status = $1, updated_at = now()
WHERE id = $2 AND status <> $1
`, string(models.OrderStatusFailed), orderID)
	if err != nil {
		return fmt.Errorf("store: payment failure for order %d: %w", orderID, err)
	}
	return nil
}
