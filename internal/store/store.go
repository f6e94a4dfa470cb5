package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// Store provides database-backed accessors for orders, subscriptions, notes,
// linkages and the request log.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func addNote(ctx context.Context, e execer, subject models.NoteSubject, subjectID int64, body string, customerVisible bool) error {
	_, err := e.ExecContext(ctx, `
INSERT INTO notes (subject, subject_id, body, customer_visible)
VALUES ($1, $2, $3, $4)
`, string(subject), subjectID, body, customerVisible)
	if err != nil {
		return fmt.Errorf("store: add %s note: %w", subject, err)
	}
	return nil
}

// ListNotes returns the notes of one order or subscription, oldest first.
func (s *Store) ListNotes(ctx context.Context, subject models.NoteSubject, subjectID int64) ([]models.Note, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: db cannot be nil")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, subject, subject_id, body, customer_visible, created_at
FROM notes
WHERE subject = $1 AND subject_id = $2
ORDER BY created_at ASC, id ASC
`, string(subject), subjectID)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.SubjectType, &n.SubjectID, &n.Body, &n.CustomerVisible, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate notes: %w", err)
	}
	return notes, nil
}

// CreateRequest records one handled HTTP request.
func (s *Store) CreateRequest(ctx context.Context, req models.Request) error {
	if s == nil || s.db == nil {
		return errors.New("store: db cannot be nil")
	}

	var requestID sql.NullString
	if req.RequestID != "" {
		requestID = sql.NullString{String: req.RequestID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO requests (method, endpoint, status_code, response_time_ms, request_id)
VALUES ($1, $2, $3, $4, $5)
`, req.Method, req.Endpoint, req.StatusCode, req.ResponseTimeMs, requestID)
	if err != nil {
		return fmt.Errorf("store: create request: %w", err)
	}
	return nil
}
