package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/events"
	"github.com/AdamBeresnev/op-bracket/internal/lock"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Backend is what every service shares: the database, its stores, the lock
// that serializes commands and the publisher committed events go to.
type Backend struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	matches     *store.MatchStore
	events      *store.EventStore
	locker      lock.Locker
	publisher   events.Publisher
}

func NewBackend(db *sqlx.DB, locker lock.Locker, publisher events.Publisher) *Backend {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &Backend{
		db:          db,
		tournaments: store.NewTournamentStore(db),
		matches:     store.NewMatchStore(db),
		events:      store.NewEventStore(db),
		locker:      locker,
		publisher:   publisher,
	}
}

// commit writes the outbox rows, commits, then publishes. A publish failure is
// only logged since the events are already stored.
func (b *Backend) commit(ctx context.Context, tx *sqlx.Tx, evs []bracket.Event) error {
	if len(evs) > 0 {
		if err := b.events.InsertEvents(ctx, tx, evs); err != nil {
			return fmt.Errorf("failed to record events: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	if len(evs) > 0 {
		if err := b.publisher.Publish(ctx, evs); err != nil {
			log.Warn().Err(err).Int("events", len(evs)).Msg("Events committed but not published")
		}
	}
	return nil
}
