package store

import (
	"context"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventStore is the outbox: events commit with the state change that produced them.
type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

// InsertEvents stores events in order and fills in their sequence numbers.
func (s *EventStore) InsertEvents(ctx context.Context, tx *sqlx.Tx, events []bracket.Event) error {
	for i := range events {
		res, err := tx.NamedExecContext(ctx, `INSERT INTO events (id, event_type, tournament_id, stage_id, match_id, status, team1_score, team2_score, winner_id, occurred_at)
            VALUES (:id, :event_type, :tournament_id, :stage_id, :match_id, :status, :team1_score, :team2_score, :winner_id, :occurred_at)`, events[i])
		if err != nil {
			return err
		}
		if events[i].Seq, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

// ListEvents returns a stage's events with seq greater than after, oldest first.
func (s *EventStore) ListEvents(ctx context.Context, stageID uuid.UUID, after int64, limit int) ([]bracket.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []bracket.Event
	err := s.db.SelectContext(ctx, &events, "SELECT * FROM events WHERE stage_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?", stageID, after, limit)
	return events, err
}
