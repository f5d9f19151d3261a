package disclosure

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/anthropics/invisible-gallery/internal/domain"
	"github.com/anthropics/invisible-gallery/internal/store"
)

// SweeperConfig holds tunable parameters for the sweep loop.
type SweeperConfig struct {
	IntervalSec int
}

// Sweeper periodically pokes hidden artworks that carry unmet time
// conditions, so a time condition still fires when nobody is viewing the
// artwork. Condition evaluation stays reactive otherwise; the sweeper is an
// optional collaborator, not part of the interaction path.
type Sweeper struct {
	DB           *sql.DB
	Artworks     *store.ArtworkRepo
	Orchestrator *Orchestrator
	Config       SweeperConfig
	publish      func(events []domain.DomainEvent)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a Sweeper with sensible defaults for zero-value config
// fields. publish receives the events of each reveal the sweep triggers and
// may be nil.
func NewSweeper(db *sql.DB, orch *Orchestrator, cfg SweeperConfig, publish func(events []domain.DomainEvent)) *Sweeper {
	if cfg.IntervalSec == 0 {
		cfg.IntervalSec = 60
	}
	return &Sweeper{
		DB:           db,
		Artworks:     &store.ArtworkRepo{},
		Orchestrator: orch,
		Config:       cfg,
		publish:      publish,
		stopCh:       make(chan struct{}),
	}
}

// SweepOnce runs a single pass over all idle time-conditioned artworks and
// returns the ids of artworks revealed by this pass.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]string, error) {
	ids, err := s.Artworks.ListUnrevealedWithTimeConditions(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	var revealed []string
	for _, id := range ids {
		outcome, err := s.Orchestrator.Poke(ctx, id)
		if err != nil {
			log.Printf("sweep poke %s: %v", id, err)
			continue
		}
		if outcome.Revealed {
			revealed = append(revealed, id)
			if s.publish != nil {
				s.publish(outcome.Events)
			}
		}
	}
	return revealed, nil
}

// Start spawns a goroutine that sweeps at the configured interval until the
// context is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.Config.IntervalSec) * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepOnce(ctx); err != nil {
					log.Printf("sweep: %v", err)
				}
			}
		}
	}()
}

// Stop signals the sweep goroutine to stop. Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
