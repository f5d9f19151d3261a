package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// InteractionRepo handles persistence for the append-only interaction log.
// Interactions are never updated or deleted by the engine.
type InteractionRepo struct{}

// AppendTx inserts an interaction within an existing transaction.
func (r *InteractionRepo) AppendTx(ctx context.Context, tx *sql.Tx, i domain.Interaction) error {
	const q = `INSERT INTO interactions (interaction_id, artwork_id, viewer_id, kind, ip_address, device_json, content, created_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		i.InteractionID,
		i.ArtworkID,
		i.ViewerID,
		string(i.Kind),
		i.IPAddress,
		i.DeviceJSON,
		i.Content,
		i.CreatedAtUnix,
	)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// CountByKindTx returns the number of interactions of one kind for an
// artwork, read inside the recording transaction so the snapshot reflects
// the interaction just appended.
func (r *InteractionRepo) CountByKindTx(ctx context.Context, tx *sql.Tx, artworkID string, kind domain.InteractionKind) (int64, error) {
	const q = `SELECT COUNT(*) FROM interactions WHERE artwork_id = ? AND kind = ?`
	var n int64
	if err := tx.QueryRowContext(ctx, q, artworkID, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return n, nil
}

// ListByArtwork returns interactions of one kind for an artwork, newest
// first.
func (r *InteractionRepo) ListByArtwork(ctx context.Context, db *sql.DB, artworkID string, kind domain.InteractionKind) ([]domain.Interaction, error) {
	const q = `SELECT interaction_id, artwork_id, viewer_id, kind, ip_address, device_json, content, created_at_unix
FROM interactions WHERE artwork_id = ? AND kind = ?
ORDER BY created_at_unix DESC, interaction_id DESC`

	rows, err := db.QueryContext(ctx, q, artworkID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var i domain.Interaction
		var k string
		if err := rows.Scan(&i.InteractionID, &i.ArtworkID, &i.ViewerID, &k, &i.IPAddress, &i.DeviceJSON, &i.Content, &i.CreatedAtUnix); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		i.Kind = domain.InteractionKind(k)
		out = append(out, i)
	}
	return out, rows.Err()
}
