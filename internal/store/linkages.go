package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PortNumber53/payarc-mid/backend/internal/linkage"
)

// GetLinkage returns the remote id linked to (kind, localID).
func (s *Store) GetLinkage(ctx context.Context, kind linkage.Kind, localID string) (string, bool, error) {
	var remoteID string
	err := s.db.QueryRowContext(ctx,
		`SELECT remote_id FROM linkages WHERE kind = $1 AND local_id = $2`,
		string(kind), localID,
	).Scan(&remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get linkage: %w", err)
	}
	return remoteID, true, nil
}

// PutLinkageIfAbsent inserts the linkage unless one exists and returns the
// stored remote id. The no-op update makes RETURNING yield the existing row.
func (s *Store) PutLinkageIfAbsent(ctx context.Context, kind linkage.Kind, localID, remoteID string) (string, error) {
	var winner string
	err := s.db.QueryRowContext(ctx, `
INSERT INTO linkages (kind, local_id, remote_id)
VALUES ($1, $2, $3)
ON CONFLICT (kind, local_id) DO UPDATE SET remote_id = linkages.remote_id
RETURNING remote_id
`, string(kind), localID, remoteID).Scan(&winner)
	if err != nil {
		return "", fmt.Errorf("store: put linkage: %w", err)
	}
	return winner, nil
}

// FindLocalID resolves a remote id back to the local id.
func (s *Store) FindLocalID(ctx context.Context, kind linkage.Kind, remoteID string) (string, bool, error) {
	var localID string
	err := s.db.QueryRowContext(ctx,
		`SELECT local_id FROM linkages WHERE kind = $1 AND remote_id = $2`,
		string(kind), remoteID,
	).Scan(&localID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: find linkage: %w", err)
	}
	return localID, true, nil
}
