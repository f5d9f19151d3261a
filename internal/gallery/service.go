// Package gallery is the integration layer between the disclosure engine,
// the content cipher, and the event dispatcher.
package gallery

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/anthropics/invisible-gallery/internal/disclosure"
	"github.com/anthropics/invisible-gallery/internal/dispatch"
	"github.com/anthropics/invisible-gallery/internal/domain"
	"github.com/anthropics/invisible-gallery/internal/encryption"
	"github.com/anthropics/invisible-gallery/internal/store"
)

// NewCondition describes one reveal condition at artwork creation.
type NewCondition struct {
	Kind       string
	ParamsJSON string
}

// NewArtwork describes an artwork to create. Content is the plaintext
// payload; it is encrypted before it touches the store.
type NewArtwork struct {
	Title       string
	Description string
	ArtistID    string
	MediaType   string
	Content     []byte
	Conditions  []NewCondition
}

// Service exposes the engine's operations to external collaborators.
type Service struct {
	DB           *sql.DB
	Artworks     *store.ArtworkRepo
	Conditions   *store.ConditionRepo
	Interactions *store.InteractionRepo
	Recorder     *disclosure.Recorder
	Orchestrator *disclosure.Orchestrator
	Dispatcher   *dispatch.Dispatcher

	secret []byte
}

// NewService wires a Service over the given database, secret, and
// dispatcher.
func NewService(db *sql.DB, secret []byte, d *dispatch.Dispatcher) *Service {
	return &Service{
		DB:           db,
		Artworks:     &store.ArtworkRepo{},
		Conditions:   &store.ConditionRepo{},
		Interactions: &store.InteractionRepo{},
		Recorder:     disclosure.NewRecorder(db),
		Orchestrator: disclosure.NewOrchestrator(db),
		Dispatcher:   d,
		secret:       secret,
	}
}

// CreateArtwork encrypts the content and persists the artwork with its
// reveal conditions in one transaction. Unknown condition kinds are
// rejected here; malformed parameters are stored as-is and simply never
// satisfy (fail closed).
func (s *Service) CreateArtwork(ctx context.Context, req NewArtwork) (*domain.Artwork, error) {
	if req.ArtistID == "" {
		return nil, domain.NewEngineError(domain.ErrConfigInvalid.Code, "artist_id is required")
	}

	kinds := make([]domain.ConditionKind, len(req.Conditions))
	for i, c := range req.Conditions {
		kind, err := domain.ParseConditionKind(c.Kind)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}

	blob, err := encryption.Encrypt(req.Content, s.secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	artwork := domain.Artwork{
		ArtworkID:        uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		ArtistID:         req.ArtistID,
		MediaType:        mediaType,
		EncryptedContent: blob,
		CreatedAtUnix:    now,
		UpdatedAtUnix:    now,
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.Artworks.CreateTx(ctx, tx, artwork); err != nil {
		return nil, err
	}
	for i, c := range req.Conditions {
		cond := domain.RevealCondition{
			ConditionID:   uuid.NewString(),
			ArtworkID:     artwork.ArtworkID,
			Kind:          kinds[i],
			ParamsJSON:    c.ParamsJSON,
			CreatedAtUnix: now,
			UpdatedAtUnix: now,
		}
		if cond.ParamsJSON == "" {
			cond.ParamsJSON = "{}"
		}
		if err := s.Conditions.CreateTx(ctx, tx, cond); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit artwork: %w", err)
	}
	return &artwork, nil
}

// GetArtwork returns an artwork's metadata and reveal state.
func (s *Service) GetArtwork(ctx context.Context, artworkID string) (*domain.Artwork, error) {
	return s.Artworks.GetByID(ctx, s.DB, artworkID)
}

// ListConditions returns the reveal conditions of an artwork.
func (s *Service) ListConditions(ctx context.Context, artworkID string) ([]domain.RevealCondition, error) {
	if _, err := s.Artworks.Snapshot(ctx, s.DB, artworkID); err != nil {
		return nil, err
	}
	return s.Conditions.ListByArtwork(ctx, s.DB, artworkID)
}

// GetContent decrypts and returns an artwork's content, but only once the
// artwork is revealed. Decryption failures are logged and reported as a
// generic unavailable error; the cryptographic detail never reaches a
// viewer.
func (s *Service) GetContent(ctx context.Context, artworkID string) ([]byte, string, error) {
	artwork, err := s.Artworks.GetByID(ctx, s.DB, artworkID)
	if err != nil {
		return nil, "", err
	}
	if !artwork.IsRevealed {
		return nil, "", domain.ErrNotRevealed
	}

	plaintext, err := encryption.Decrypt(artwork.EncryptedContent, s.secret)
	if err != nil {
		log.Printf("decrypt artwork %s: %v", artworkID, err)
		return nil, "", domain.ErrContentUnavailable
	}
	return plaintext, artwork.MediaType, nil
}

// RecordView records a view, runs the disclosure cycle, and publishes the
// resulting events. Events are published after the state commit; if the
// caller goes away in between, the events still go out.
func (s *Service) RecordView(ctx context.Context, artworkID, viewerID string, meta domain.ViewMetadata) (*domain.RevealOutcome, error) {
	snap, err := s.Recorder.RecordView(ctx, artworkID, viewerID, meta)
	if err != nil {
		return nil, err
	}
	outcome, err := s.Orchestrator.OnInteraction(ctx, snap)
	if err != nil {
		return nil, err
	}
	s.Dispatcher.PublishAll(outcome.Events)
	return outcome, nil
}

// RecordComment records a comment, runs the disclosure cycle, and publishes
// the resulting events. Returns the new comment id with the outcome.
func (s *Service) RecordComment(ctx context.Context, artworkID, authorID, content string) (string, *domain.RevealOutcome, error) {
	commentID, snap, err := s.Recorder.RecordComment(ctx, artworkID, authorID, content)
	if err != nil {
		return "", nil, err
	}
	outcome, err := s.Orchestrator.OnInteraction(ctx, snap)
	if err != nil {
		return "", nil, err
	}
	s.Dispatcher.PublishAll(outcome.Events)
	return commentID, outcome, nil
}

// ListComments returns the comments on an artwork, newest first.
func (s *Service) ListComments(ctx context.Context, artworkID string) ([]domain.Interaction, error) {
	return s.Interactions.ListByArtwork(ctx, s.DB, artworkID, domain.InteractionComment)
}
