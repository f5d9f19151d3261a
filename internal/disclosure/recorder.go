package disclosure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/invisible-gallery/internal/domain"
	"github.com/anthropics/invisible-gallery/internal/store"
)

// Recorder owns the interaction log and the view counter. It is the only
// component that creates interactions or increments view_count.
type Recorder struct {
	DB           *sql.DB
	Artworks     *store.ArtworkRepo
	Interactions *store.InteractionRepo
}

// NewRecorder creates a Recorder backed by the given database.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{
		DB:           db,
		Artworks:     &store.ArtworkRepo{},
		Interactions: &store.InteractionRepo{},
	}
}

// RecordView appends a view interaction and atomically increments the
// artwork's view counter in one transaction, then returns the
// post-increment snapshot.
func (r *Recorder) RecordView(ctx context.Context, artworkID, viewerID string, meta domain.ViewMetadata) (*domain.ArtworkSnapshot, error) {
	now := time.Now()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The increment doubles as the existence check: zero rows means the
	// artwork id is unknown, before the foreign key on the interaction
	// insert produces a less useful error.
	count, err := r.Artworks.IncrementViewCountTx(ctx, tx, artworkID, now.Unix())
	if err != nil {
		return nil, err
	}

	device := "{}"
	if meta.UserAgent != "" {
		if b, err := json.Marshal(map[string]string{"user_agent": meta.UserAgent}); err == nil {
			device = string(b)
		}
	}

	view := domain.Interaction{
		InteractionID: uuid.NewString(),
		ArtworkID:     artworkID,
		ViewerID:      viewerID,
		Kind:          domain.InteractionView,
		IPAddress:     meta.IPAddress,
		DeviceJSON:    device,
		CreatedAtUnix: now.Unix(),
	}
	if err := r.Interactions.AppendTx(ctx, tx, view); err != nil {
		return nil, err
	}

	snap, err := r.snapshotTx(ctx, tx, artworkID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit view: %w", err)
	}

	snap.ViewCount = count
	snap.Interaction = domain.InteractionView
	snap.WithinRegion = meta.WithinRegion
	return snap, nil
}

// RecordComment appends a comment interaction and returns the new comment id
// together with the refreshed comment-count snapshot.
func (r *Recorder) RecordComment(ctx context.Context, artworkID, authorID, content string) (string, *domain.ArtworkSnapshot, error) {
	now := time.Now()
	commentID := uuid.NewString()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM artworks WHERE artwork_id = ?`, artworkID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return "", nil, domain.ErrArtworkNotFound
		}
		return "", nil, fmt.Errorf("check artwork: %w", err)
	}

	comment := domain.Interaction{
		InteractionID: commentID,
		ArtworkID:     artworkID,
		ViewerID:      authorID,
		Kind:          domain.InteractionComment,
		Content:       content,
		CreatedAtUnix: now.Unix(),
	}
	if err := r.Interactions.AppendTx(ctx, tx, comment); err != nil {
		return "", nil, err
	}

	snap, err := r.snapshotTx(ctx, tx, artworkID)
	if err != nil {
		return "", nil, err
	}
	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("commit comment: %w", err)
	}

	snap.Interaction = domain.InteractionComment
	snap.CommentID = commentID
	snap.AuthorID = authorID
	return commentID, snap, nil
}

// snapshotTx reads the artwork row and comment tally inside the recording
// transaction so the snapshot includes the interaction just appended.
func (r *Recorder) snapshotTx(ctx context.Context, tx *sql.Tx, artworkID string) (*domain.ArtworkSnapshot, error) {
	const q = `SELECT a.artwork_id, a.title, a.artist_id, a.is_revealed, a.view_count,
	(SELECT COUNT(*) FROM interactions i WHERE i.artwork_id = a.artwork_id AND i.kind = 'comment')
FROM artworks a WHERE a.artwork_id = ?`

	var s domain.ArtworkSnapshot
	var revealed int
	err := tx.QueryRowContext(ctx, q, artworkID).Scan(
		&s.ArtworkID, &s.Title, &s.ArtistID, &revealed, &s.ViewCount, &s.CommentCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrArtworkNotFound
		}
		return nil, fmt.Errorf("snapshot artwork: %w", err)
	}
	s.IsRevealed = revealed != 0
	return &s, nil
}
