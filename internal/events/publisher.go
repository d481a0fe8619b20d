package events

import (
	"context"
	"sync"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/rs/zerolog/log"
)

// Publisher hands committed engine events to whatever broadcasts them.
// Events are already durable in the outbox, so a failed Publish loses nothing.
type Publisher interface {
	Publish(ctx context.Context, events []bracket.Event) error
}

// LogPublisher writes every event to the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events []bracket.Event) error {
	for _, e := range events {
		ev := log.Info().
			Int64("seq", e.Seq).
			Str("event", string(e.Type)).
			Str("tournament_id", e.TournamentID.String()).
			Str("stage_id", e.StageID.String()).
			Str("status", e.Status)
		if e.MatchID != nil {
			ev = ev.Str("match_id", e.MatchID.String()).
				Int("team1_score", e.Team1Score).
				Int("team2_score", e.Team2Score)
		}
		if e.WinnerID != nil {
			ev = ev.Str("winner_id", e.WinnerID.String())
		}
		ev.Msg("bracket event")
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []bracket.Event
}

func (r *Recorder) Publish(_ context.Context, events []bracket.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *Recorder) Events() []bracket.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bracket.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) OfType(t bracket.EventType) []bracket.Event {
	var out []bracket.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Fanout publishes to every publisher and keeps going past failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, events []bracket.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, events); err != nil {
			log.Error().Err(err).Int("events", len(events)).Msg("Failed to publish events")
			if first == nil {
				first = err
			}
		}
	}
	return first
}
