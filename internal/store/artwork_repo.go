package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// ArtworkRepo handles persistence for Artwork records.
type ArtworkRepo struct{}

// CreateTx inserts a new artwork within an existing transaction.
func (r *ArtworkRepo) CreateTx(ctx context.Context, tx *sql.Tx, a domain.Artwork) error {
	const q = `INSERT INTO artworks (artwork_id, title, description, artist_id, media_type, encrypted_content, is_revealed, view_count, created_at_unix, updated_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		a.ArtworkID,
		a.Title,
		a.Description,
		a.ArtistID,
		a.MediaType,
		a.EncryptedContent,
		boolToInt(a.IsRevealed),
		a.ViewCount,
		a.CreatedAtUnix,
		a.UpdatedAtUnix,
	)
	if err != nil {
		return fmt.Errorf("create artwork: %w", err)
	}
	return nil
}

// GetByID retrieves an artwork by its ID, including the encrypted content.
func (r *ArtworkRepo) GetByID(ctx context.Context, db *sql.DB, artworkID string) (*domain.Artwork, error) {
	const q = `SELECT artwork_id, title, description, artist_id, media_type, encrypted_content, is_revealed, view_count, created_at_unix, updated_at_unix
FROM artworks WHERE artwork_id = ?`

	row := db.QueryRowContext(ctx, q, artworkID)

	var a domain.Artwork
	var revealed int
	err := row.Scan(&a.ArtworkID, &a.Title, &a.Description, &a.ArtistID, &a.MediaType,
		&a.EncryptedContent, &revealed, &a.ViewCount, &a.CreatedAtUnix, &a.UpdatedAtUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrArtworkNotFound
		}
		return nil, fmt.Errorf("get artwork: %w", err)
	}
	a.IsRevealed = revealed != 0
	return &a, nil
}

// Snapshot returns the evaluation snapshot for an artwork: reveal state,
// view count, and the live comment tally. The encrypted content is not
// loaded.
func (r *ArtworkRepo) Snapshot(ctx context.Context, db *sql.DB, artworkID string) (*domain.ArtworkSnapshot, error) {
	const q = `SELECT a.artwork_id, a.title, a.artist_id, a.is_revealed, a.view_count,
	(SELECT COUNT(*) FROM interactions i WHERE i.artwork_id = a.artwork_id AND i.kind = 'comment')
FROM artworks a WHERE a.artwork_id = ?`

	row := db.QueryRowContext(ctx, q, artworkID)

	var s domain.ArtworkSnapshot
	var revealed int
	err := row.Scan(&s.ArtworkID, &s.Title, &s.ArtistID, &revealed, &s.ViewCount, &s.CommentCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrArtworkNotFound
		}
		return nil, fmt.Errorf("snapshot artwork: %w", err)
	}
	s.IsRevealed = revealed != 0
	return &s, nil
}

// IncrementViewCountTx atomically increments the view counter within a
// transaction and returns the post-increment count. The increment is a
// single UPDATE, never a read-modify-write by the caller.
func (r *ArtworkRepo) IncrementViewCountTx(ctx context.Context, tx *sql.Tx, artworkID string, nowUnix int64) (int64, error) {
	const q = `UPDATE artworks SET view_count = view_count + 1, updated_at_unix = ? WHERE artwork_id = ?`
	res, err := tx.ExecContext(ctx, q, nowUnix, artworkID)
	if err != nil {
		return 0, fmt.Errorf("increment view count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return 0, domain.ErrArtworkNotFound
	}

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT view_count FROM artworks WHERE artwork_id = ?`, artworkID).Scan(&count); err != nil {
		return 0, fmt.Errorf("read view count: %w", err)
	}
	return count, nil
}

// RevealTx performs the compare-and-set reveal transition within a
// transaction. It returns true when this call flipped the flag, false when
// the artwork was already revealed. The guard on is_revealed makes the
// transition at-most-once even without the orchestrator's lock.
func (r *ArtworkRepo) RevealTx(ctx context.Context, tx *sql.Tx, artworkID string, nowUnix int64) (bool, error) {
	const q = `UPDATE artworks SET is_revealed = 1, updated_at_unix = ? WHERE artwork_id = ? AND is_revealed = 0`
	res, err := tx.ExecContext(ctx, q, nowUnix, artworkID)
	if err != nil {
		return false, fmt.Errorf("reveal artwork: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n > 0, nil
}

// ListUnrevealedWithTimeConditions returns the ids of hidden artworks that
// carry at least one unmet time condition. Used by the sweeper.
func (r *ArtworkRepo) ListUnrevealedWithTimeConditions(ctx context.Context, db *sql.DB) ([]string, error) {
	const q = `SELECT DISTINCT a.artwork_id
FROM artworks a
JOIN reveal_conditions c ON c.artwork_id = a.artwork_id
WHERE a.is_revealed = 0 AND c.is_met = 0 AND c.kind = 'time'`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list idle artworks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan artwork id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
