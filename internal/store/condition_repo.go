package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// ConditionRepo handles persistence for RevealCondition records.
type ConditionRepo struct{}

// CreateTx inserts a reveal condition within an existing transaction.
func (r *ConditionRepo) CreateTx(ctx context.Context, tx *sql.Tx, c domain.RevealCondition) error {
	const q = `INSERT INTO reveal_conditions (condition_id, artwork_id, kind, params_json, is_met, created_at_unix, updated_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		c.ConditionID,
		c.ArtworkID,
		string(c.Kind),
		c.ParamsJSON,
		boolToInt(c.IsMet),
		c.CreatedAtUnix,
		c.UpdatedAtUnix,
	)
	if err != nil {
		return fmt.Errorf("create condition: %w", err)
	}
	return nil
}

// ListByArtwork returns all conditions for an artwork, oldest first.
func (r *ConditionRepo) ListByArtwork(ctx context.Context, db *sql.DB, artworkID string) ([]domain.RevealCondition, error) {
	return r.list(ctx, db, artworkID, false)
}

// ListUnmet returns the conditions for an artwork whose met flag is still
// false, oldest first. These are the only conditions the orchestrator
// re-evaluates.
func (r *ConditionRepo) ListUnmet(ctx context.Context, db *sql.DB, artworkID string) ([]domain.RevealCondition, error) {
	return r.list(ctx, db, artworkID, true)
}

func (r *ConditionRepo) list(ctx context.Context, db *sql.DB, artworkID string, unmetOnly bool) ([]domain.RevealCondition, error) {
	q := `SELECT condition_id, artwork_id, kind, params_json, is_met, created_at_unix, updated_at_unix
FROM reveal_conditions WHERE artwork_id = ?`
	if unmetOnly {
		q += ` AND is_met = 0`
	}
	q += ` ORDER BY created_at_unix ASC, condition_id ASC`

	rows, err := db.QueryContext(ctx, q, artworkID)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	var conds []domain.RevealCondition
	for rows.Next() {
		var c domain.RevealCondition
		var kind string
		var met int
		if err := rows.Scan(&c.ConditionID, &c.ArtworkID, &kind, &c.ParamsJSON, &met, &c.CreatedAtUnix, &c.UpdatedAtUnix); err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		c.Kind = domain.ConditionKind(kind)
		c.IsMet = met != 0
		conds = append(conds, c)
	}
	return conds, rows.Err()
}

// MarkMetTx performs the compare-and-set met transition for one condition
// within a transaction. It returns true when this call set the flag, false
// when the condition was already met, so the write is exactly-once even
// under concurrent evaluation.
func (r *ConditionRepo) MarkMetTx(ctx context.Context, tx *sql.Tx, conditionID string, nowUnix int64) (bool, error) {
	const q = `UPDATE reveal_conditions SET is_met = 1, updated_at_unix = ? WHERE condition_id = ? AND is_met = 0`
	res, err := tx.ExecContext(ctx, q, nowUnix, conditionID)
	if err != nil {
		return false, fmt.Errorf("mark condition met: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n > 0, nil
}
