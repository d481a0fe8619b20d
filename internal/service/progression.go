package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Swiss stages finish within wins+losses-1 rounds; this only guards the loop.
const maxSwissRoundsPerCommand = 64

// progression is one stage as loaded inside a command's transaction.
type progression struct {
	stage   *bracket.Stage
	entries []bracket.Entry
	graph   *bracket.Graph
}

func (b *Backend) loadProgression(ctx context.Context, tx *sqlx.Tx, stageID uuid.UUID) (*progression, error) {
	stage, err := b.tournaments.GetStage(ctx, tx, stageID)
	if err != nil {
		return nil, err
	}
	entries, err := b.tournaments.GetEntries(ctx, tx, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	matches, err := b.matches.GetMatches(ctx, tx, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	return &progression{stage: stage, entries: entries, graph: bracket.NewGraph(matches)}, nil
}

func (p *progression) done() bool {
	if !p.graph.AllTerminal() {
		return false
	}
	if p.stage.Format == bracket.Swiss {
		return bracket.SwissFinished(bracket.SwissRecords(p.stage, p.entries, p.graph.Matches()))
	}
	return true
}

// progress runs everything that follows a result once advancement is done:
// the next Swiss round, stage completion, dependent stages and finally the
// tournament itself.
func (b *Backend) progress(ctx context.Context, tx *sqlx.Tx, p *progression) ([]bracket.Event, error) {
	if p.stage.Status != bracket.StageActive {
		return nil, nil
	}

	if p.stage.Format == bracket.Swiss {
		for i := 0; i < maxSwissRoundsPerCommand && p.graph.AllTerminal(); i++ {
			next := bracket.NextSwissRound(p.stage, p.entries, p.graph.Matches())
			if len(next) == 0 {
				break
			}
			p.graph.Add(next...)
			if err := p.graph.Settle(); err != nil {
				return nil, err
			}
			log.Info().
				Str("stage_id", p.stage.ID.String()).
				Int("round", next[0].RoundNumber).
				Int("matches", len(next)).
				Msg("swiss round paired")
		}
	}

	if !p.done() {
		return nil, nil
	}

	p.stage.Status = bracket.StageCompleted
	if err := b.tournaments.UpdateStage(ctx, tx, p.stage); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	matches := p.graph.Matches()
	completed := bracket.NewEvent(bracket.EventStageCompleted, p.stage)
	completed.WinnerID = bracket.Champion(p.stage, p.entries, matches)
	evs := []bracket.Event{completed}

	logEvent := log.Info().Str("stage_id", p.stage.ID.String()).Str("format", string(p.stage.Format))
	if completed.WinnerID != nil {
		logEvent = logEvent.Str("champion_id", completed.WinnerID.String())
	}
	logEvent.Msg("stage completed")

	dependents, err := b.tournaments.GetDependentStages(ctx, tx, p.stage.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependent stages: %w", err)
	}
	if len(dependents) > 0 {
		placements := bracket.Placements(p.stage, p.entries, matches)
		for i := range dependents {
			dep := &dependents[i]
			if dep.Status != bracket.StagePending {
				continue
			}
			teams := advancing(p.entries, placements, dep.AdvanceCount)
			if len(teams) < 2 {
				log.Warn().
					Str("stage_id", dep.ID.String()).
					Int("teams", len(teams)).
					Msg("not enough teams advanced to build dependent stage")
				continue
			}
			_, genEvents, err := b.generateStage(ctx, tx, dep, teams)
			if err != nil {
				return nil, fmt.Errorf("failed to build stage %s: %w", dep.Name, err)
			}
			evs = append(evs, genEvents...)
		}
	}

	stages, err := b.tournaments.GetStages(ctx, tx, p.stage.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stages: %w", err)
	}
	for _, s := range stages {
		if s.Status != bracket.StageCompleted {
			return evs, nil
		}
	}
	if err := b.tournaments.UpdateTournamentStatus(ctx, tx, p.stage.TournamentID, bracket.TournamentCompleted); err != nil {
		return nil, fmt.Errorf("failed to update tournament status: %w", err)
	}
	log.Info().Str("tournament_id", p.stage.TournamentID.String()).Msg("tournament completed")
	return evs, nil
}

// advancing takes the top count placements (all of them when count is 0)
// in placement order, carrying each team's name and rating along.
func advancing(entries []bracket.Entry, placements []uuid.UUID, count int) []bracket.Entry {
	byTeam := make(map[uuid.UUID]bracket.Entry, len(entries))
	for _, e := range entries {
		byTeam[e.TeamID] = e
	}
	if count > 0 && count < len(placements) {
		placements = placements[:count]
	}
	teams := make([]bracket.Entry, 0, len(placements))
	for _, id := range placements {
		e := byTeam[id]
		teams = append(teams, bracket.Entry{TeamID: id, Name: e.Name, Rating: e.Rating})
	}
	return teams
}

// reopen puts a completed stage back in play before one of its results is
// rewritten. Stages already built from it are cleared so they can be built
// again from the new placements, unless one of their matches has started.
func (b *Backend) reopen(ctx context.Context, tx *sqlx.Tx, p *progression) ([]bracket.Event, error) {
	if p.stage.Status != bracket.StageCompleted {
		return nil, nil
	}
	tree, err := b.stageTree(ctx, tx, p.stage.ID)
	if err != nil {
		return nil, err
	}
	for _, dep := range tree[1:] {
		if dep.Status == bracket.StagePending {
			continue
		}
		matches, err := b.matches.GetMatches(ctx, tx, dep.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get matches: %w", err)
		}
		for _, m := range matches {
			if m.Started() {
				return nil, bracket.Errorf(bracket.KindDownstreamInProgress, "match %s of stage %s has already started", m.BracketSlot, dep.Name)
			}
		}
	}
	evs, err := b.clearStages(ctx, tx, tree[1:])
	if err != nil {
		return nil, err
	}

	p.stage.Status = bracket.StageActive
	if err := b.tournaments.UpdateStage(ctx, tx, p.stage); err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}
	tournament, err := b.tournaments.GetTournament(ctx, tx, p.stage.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status == bracket.TournamentCompleted {
		if err := b.tournaments.UpdateTournamentStatus(ctx, tx, tournament.ID, bracket.TournamentActive); err != nil {
			return nil, fmt.Errorf("failed to update tournament status: %w", err)
		}
	}
	return evs, nil
}

// stageTree returns the stage followed by every stage built from it, breadth first.
func (b *Backend) stageTree(ctx context.Context, tx *sqlx.Tx, stageID uuid.UUID) ([]bracket.Stage, error) {
	root, err := b.tournaments.GetStage(ctx, tx, stageID)
	if err != nil {
		return nil, err
	}
	tree := []bracket.Stage{*root}
	for i := 0; i < len(tree); i++ {
		deps, err := b.tournaments.GetDependentStages(ctx, tx, tree[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get dependent stages: %w", err)
		}
		tree = append(tree, deps...)
	}
	return tree, nil
}

// clearStages returns every generated stage in stages to pending, last first.
func (b *Backend) clearStages(ctx context.Context, tx *sqlx.Tx, stages []bracket.Stage) ([]bracket.Event, error) {
	var evs []bracket.Event
	for i := len(stages) - 1; i >= 0; i-- {
		st := &stages[i]
		if st.Status == bracket.StagePending {
			continue
		}
		if err := b.tournaments.ClearStage(ctx, tx, st.ID); err != nil {
			return nil, fmt.Errorf("failed to clear stage: %w", err)
		}
		st.Status = bracket.StagePending
		st.TeamCount = 0
		st.RoundCount = 0
		if err := b.tournaments.UpdateStage(ctx, tx, st); err != nil {
			return nil, fmt.Errorf("failed to update stage: %w", err)
		}
		evs = append(evs, bracket.NewEvent(bracket.EventBracketReset, st))
		log.Debug().Str("stage_id", st.ID.String()).Msg("stage cleared")
	}
	return evs, nil
}
