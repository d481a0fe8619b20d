package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TeamInput is a team handed in by the registry for seeding into a stage.
// Seed is only read for manual seeding and may be left zero to use list order.
type TeamInput struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Rating float64   `json:"rating"`
	Seed   int       `json:"seed"`
}

func toEntries(teams []TeamInput) []bracket.Entry {
	entries := make([]bracket.Entry, len(teams))
	for i, t := range teams {
		entries[i] = bracket.Entry{TeamID: t.ID, Name: t.Name, Rating: t.Rating, Seed: t.Seed}
	}
	return entries
}

// generateStage builds a pending stage's bracket and writes all of it inside
// tx. Nothing is written when generation fails.
func (b *Backend) generateStage(ctx context.Context, tx *sqlx.Tx, stage *bracket.Stage, teams []bracket.Entry) (*bracket.Generated, []bracket.Event, error) {
	if stage.Status != bracket.StagePending {
		return nil, nil, bracket.Errorf(bracket.KindStageInProgress, "stage %s is already %s", stage.Name, stage.Status)
	}

	gen, err := bracket.Generate(*stage, teams)
	if err != nil {
		return nil, nil, err
	}

	if err := b.tournaments.UpdateStage(ctx, tx, &gen.Stage); err != nil {
		return nil, nil, fmt.Errorf("failed to update stage: %w", err)
	}
	if err := b.tournaments.CreateEntries(ctx, tx, gen.Entries); err != nil {
		return nil, nil, fmt.Errorf("failed to create entries: %w", err)
	}
	if err := b.matches.CreateMatches(ctx, tx, gen.Matches); err != nil {
		return nil, nil, fmt.Errorf("failed to create matches: %w", err)
	}

	evs := []bracket.Event{bracket.NewEvent(bracket.EventMatchesGenerated, &gen.Stage)}
	for i := range gen.Matches {
		evs = append(evs, bracket.MatchEvents(&gen.Stage, nil, &gen.Matches[i])...)
	}

	tournament, err := b.tournaments.GetTournament(ctx, tx, stage.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	if tournament.Status != bracket.TournamentActive {
		if err := b.tournaments.UpdateTournamentStatus(ctx, tx, tournament.ID, bracket.TournamentActive); err != nil {
			return nil, nil, fmt.Errorf("failed to update tournament status: %w", err)
		}
	}

	*stage = gen.Stage
	return gen, evs, nil
}
