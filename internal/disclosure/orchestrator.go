// Package disclosure implements the reveal state machine: recording
// interactions, evaluating reveal conditions, and performing the one-way
// Hidden -> Revealed transition.
package disclosure

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anthropics/invisible-gallery/internal/condition"
	"github.com/anthropics/invisible-gallery/internal/domain"
	"github.com/anthropics/invisible-gallery/internal/store"
)

// Milestones are the view counts that trigger an owner notification,
// independent of disclosure.
var Milestones = []int64{10, 50, 100, 500, 1000}

// IsMilestone reports whether a view count is exactly a milestone value.
func IsMilestone(count int64) bool {
	for _, m := range Milestones {
		if count == m {
			return true
		}
	}
	return false
}

// Orchestrator owns the reveal transition for every artwork. The is_revealed
// flag and each condition's is_met flag are written only here, under a
// per-artwork mutex; the CAS guards in the store make the writes
// at-most-once even if another process shares the database.
type Orchestrator struct {
	DB         *sql.DB
	Artworks   *store.ArtworkRepo
	Conditions *store.ConditionRepo

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator creates an Orchestrator backed by the given database.
func NewOrchestrator(db *sql.DB) *Orchestrator {
	return &Orchestrator{
		DB:         db,
		Artworks:   &store.ArtworkRepo{},
		Conditions: &store.ConditionRepo{},
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing reveal evaluation for one artwork.
// Different artworks get independent locks and never contend.
func (o *Orchestrator) lockFor(artworkID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[artworkID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[artworkID] = l
	}
	return l
}

// OnInteraction runs one post-interaction evaluation cycle: it checks every
// unmet condition against the snapshot, marks newly met conditions, performs
// the reveal transition when at least one condition became met, and returns
// the events to publish. Calling it on an already revealed artwork is an
// idempotent no-op apart from milestone and comment events.
func (o *Orchestrator) OnInteraction(ctx context.Context, snap *domain.ArtworkSnapshot) (*domain.RevealOutcome, error) {
	l := o.lockFor(snap.ArtworkID)
	l.Lock()
	defer l.Unlock()

	now := time.Now()
	outcome := &domain.RevealOutcome{
		ArtworkID: snap.ArtworkID,
		ViewCount: snap.ViewCount,
	}

	// Milestone and comment events fire regardless of reveal state.
	if snap.Interaction == domain.InteractionView && IsMilestone(snap.ViewCount) {
		outcome.Events = append(outcome.Events, domain.DomainEvent{
			Type:          domain.EventViewMilestone,
			ArtworkID:     snap.ArtworkID,
			Title:         snap.Title,
			ArtistID:      snap.ArtistID,
			ViewCount:     snap.ViewCount,
			CreatedAtUnix: now.Unix(),
		})
	}
	if snap.Interaction == domain.InteractionComment {
		outcome.Events = append(outcome.Events, domain.DomainEvent{
			Type:          domain.EventCommentAdded,
			ArtworkID:     snap.ArtworkID,
			Title:         snap.Title,
			ArtistID:      snap.ArtistID,
			CommentID:     snap.CommentID,
			AuthorID:      snap.AuthorID,
			CreatedAtUnix: now.Unix(),
		})
	}

	// Re-read the reveal flag under the lock; the snapshot may predate a
	// concurrent reveal.
	current, err := o.Artworks.Snapshot(ctx, o.DB, snap.ArtworkID)
	if err != nil {
		return nil, err
	}
	if current.IsRevealed {
		outcome.AlreadyRevealed = true
		return outcome, nil
	}

	unmet, err := o.Conditions.ListUnmet(ctx, o.DB, snap.ArtworkID)
	if err != nil {
		return nil, err
	}

	var newlyMet []string
	for _, cond := range unmet {
		met, evalErr := condition.Evaluate(cond, *snap, now)
		if evalErr != nil {
			// Malformed parameters fail closed: log and keep the
			// condition unmet.
			log.Printf("condition evaluation: %v", evalErr)
			continue
		}
		if met {
			newlyMet = append(newlyMet, cond.ConditionID)
		}
	}

	if len(newlyMet) == 0 {
		return outcome, nil
	}

	// Mark conditions and flip the reveal flag in one transaction.
	tx, err := o.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range newlyMet {
		changed, err := o.Conditions.MarkMetTx(ctx, tx, id, now.Unix())
		if err != nil {
			return nil, err
		}
		if changed {
			outcome.MetConditionIDs = append(outcome.MetConditionIDs, id)
		}
	}

	revealed, err := o.Artworks.RevealTx(ctx, tx, snap.ArtworkID, now.Unix())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reveal: %w", err)
	}

	if !revealed {
		// The CAS guard lost to another writer; the artwork is revealed
		// either way and that writer produced the event.
		outcome.AlreadyRevealed = true
		return outcome, nil
	}

	outcome.Revealed = true
	outcome.Events = append(outcome.Events, domain.DomainEvent{
		Type:          domain.EventArtworkRevealed,
		ArtworkID:     snap.ArtworkID,
		Title:         snap.Title,
		ArtistID:      snap.ArtistID,
		CreatedAtUnix: now.Unix(),
	})
	return outcome, nil
}

// Poke re-evaluates a hidden artwork's conditions without an interaction.
// The sweeper uses it so time conditions on idle artworks eventually fire;
// it produces no milestone or comment events.
func (o *Orchestrator) Poke(ctx context.Context, artworkID string) (*domain.RevealOutcome, error) {
	snap, err := o.Artworks.Snapshot(ctx, o.DB, artworkID)
	if err != nil {
		return nil, err
	}
	return o.OnInteraction(ctx, snap)
}
