package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/lock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	*Backend
}

func NewTournamentService(b *Backend) *TournamentService {
	return &TournamentService{Backend: b}
}

type StageInput struct {
	Name                string                `json:"name"`
	Format              bracket.Format        `json:"format"`
	SeedingMethod       bracket.SeedingMethod `json:"seeding_method"`
	BestOf              int                   `json:"best_of"`
	GrandFinalBestOf    int                   `json:"grand_final_best_of"`
	SwissWinsRequired   int                   `json:"swiss_wins_required"`
	SwissLossesRequired int                   `json:"swiss_losses_required"`
	SwissDecidingBestOf int                   `json:"swiss_deciding_best_of"`
	Legs                int                   `json:"legs"`
	RandomSeed          int64                 `json:"random_seed"`
	// 1-based position of the stage whose results feed this one; 0 for none.
	Source       int `json:"source"`
	AdvanceCount int `json:"advance_count"`
}

type TournamentInput struct {
	Name   string         `json:"name"`
	Format bracket.Format `json:"format"`
	Stages []StageInput   `json:"stages"`
}

type TournamentData struct {
	Tournament *bracket.Tournament `json:"tournament"`
	Stages     []bracket.Stage     `json:"stages"`
}

// CreateTournament stores a tournament with its ordered stage configs. With no
// stages given a single stage of the tournament's format is created.
func (s *TournamentService) CreateTournament(ctx context.Context, input TournamentInput) (*TournamentData, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, bracket.Errorf(bracket.KindInvalidConfig, "tournament name is required")
	}
	inputs := input.Stages
	if len(inputs) == 0 {
		inputs = []StageInput{{Name: "Main", Format: input.Format}}
	}

	now := time.Now().UTC()
	tournament := bracket.Tournament{
		ID:        uuid.New(),
		Name:      name,
		Format:    input.Format,
		Status:    bracket.TournamentUpcoming,
		CreatedAt: now,
	}

	stages := make([]bracket.Stage, 0, len(inputs))
	for i, in := range inputs {
		stage := bracket.Stage{
			ID:                  uuid.New(),
			TournamentID:        tournament.ID,
			Sequence:            i + 1,
			Name:                in.Name,
			Format:              in.Format,
			Status:              bracket.StagePending,
			SeedingMethod:       in.SeedingMethod,
			BestOf:              in.BestOf,
			GrandFinalBestOf:    in.GrandFinalBestOf,
			SwissWinsRequired:   in.SwissWinsRequired,
			SwissLossesRequired: in.SwissLossesRequired,
			SwissDecidingBestOf: in.SwissDecidingBestOf,
			Legs:                in.Legs,
			RandomSeed:          in.RandomSeed,
			AdvanceCount:        in.AdvanceCount,
			CreatedAt:           now,
		}
		if stage.Name == "" {
			stage.Name = fmt.Sprintf("Stage %d", i+1)
		}
		if err := stage.Validate(); err != nil {
			return nil, err
		}
		stage.BracketType = bracket.BracketTypeFor(stage.Format)

		if in.Source != 0 {
			if in.Source < 1 || in.Source > i {
				return nil, bracket.Errorf(bracket.KindInvalidConfig, "stage %d can only be fed by an earlier stage, got %d", i+1, in.Source)
			}
			source := stages[in.Source-1].ID
			stage.SourceStageID = &source
			if stage.Format == bracket.GSL && stage.AdvanceCount != 4 {
				return nil, bracket.Errorf(bracket.KindInvalidTeamCount, "a GSL group needs exactly 4 advancing teams, got %d", stage.AdvanceCount)
			}
			if stage.AdvanceCount == 1 {
				return nil, bracket.Errorf(bracket.KindInsufficientTeams, "stage %d needs at least 2 advancing teams", i+1)
			}
		}
		stages = append(stages, stage)
	}

	if tournament.Format == "" {
		tournament.Format = stages[0].Format
		for _, st := range stages[1:] {
			if st.Format != tournament.Format {
				tournament.Format = bracket.Custom
				break
			}
		}
	}
	if !tournament.Format.Valid() {
		return nil, bracket.Errorf(bracket.KindInvalidConfig, "unknown tournament format %q", tournament.Format)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.tournaments.CreateTournament(ctx, tx, &tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	if err := s.tournaments.CreateStages(ctx, tx, stages); err != nil {
		return nil, fmt.Errorf("failed to create stages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Str("tournament_id", tournament.ID.String()).Int("stages", len(stages)).Msg("tournament created")
	return &TournamentData{Tournament: &tournament, Stages: stages}, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	tournament, err := s.tournaments.GetTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	stages, err := s.tournaments.GetStages(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return &TournamentData{Tournament: tournament, Stages: stages}, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	return s.tournaments.ListTournaments(ctx)
}

// GenerateBracket seeds teams into a pending stage and creates its whole match
// graph in one transaction.
func (s *TournamentService) GenerateBracket(ctx context.Context, stageID uuid.UUID, teams []TeamInput) (*bracket.Stage, error) {
	release, err := s.locker.Lock(ctx, lock.StageKey(stageID))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stage, err := s.tournaments.GetStage(ctx, tx, stageID)
	if err != nil {
		return nil, err
	}
	_, evs, err := s.generateStage(ctx, tx, stage, toEntries(teams))
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, tx, evs); err != nil {
		return nil, err
	}
	return stage, nil
}

// ResetBracket deletes a stage's matches and entries and returns it to pending.
// A stage with played matches, or one that has already fed a later stage, is
// only reset with force; force also resets every stage built from it.
func (s *TournamentService) ResetBracket(ctx context.Context, stageID uuid.UUID, force bool) error {
	snapshot, err := s.stageTree(ctx, nil, stageID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(snapshot))
	for _, st := range snapshot {
		keys = append(keys, lock.StageKey(st.ID))
	}
	release, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tree, err := s.stageTree(ctx, tx, stageID)
	if err != nil {
		return err
	}
	root := tree[0]
	if root.Status == bracket.StagePending {
		return nil
	}

	if !force {
		matches, err := s.matches.GetMatches(ctx, tx, root.ID)
		if err != nil {
			return fmt.Errorf("failed to get matches: %w", err)
		}
		for _, m := range matches {
			if m.Started() {
				return bracket.Errorf(bracket.KindStageInProgress, "match %s has already been played", m.BracketSlot)
			}
		}
		for _, dep := range tree[1:] {
			if dep.Status != bracket.StagePending {
				return bracket.Errorf(bracket.KindStageInProgress, "stage %s was already built from this stage", dep.Name)
			}
		}
	}

	evs, err := s.clearStages(ctx, tx, tree)
	if err != nil {
		return err
	}
	log.Info().Str("stage_id", root.ID.String()).Bool("force", force).Int("stages", len(evs)).Msg("bracket reset")

	if err := s.settleTournamentStatus(ctx, tx, root.TournamentID); err != nil {
		return err
	}
	return s.commit(ctx, tx, evs)
}

// settleTournamentStatus derives the tournament status from its stages after a reset.
func (s *TournamentService) settleTournamentStatus(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	stages, err := s.tournaments.GetStages(ctx, tx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to get stages: %w", err)
	}
	status := bracket.TournamentUpcoming
	for _, st := range stages {
		if st.Status != bracket.StagePending {
			status = bracket.TournamentActive
			break
		}
	}
	return s.tournaments.UpdateTournamentStatus(ctx, tx, tournamentID, status)
}

// BracketView is the read-only projection of one stage. It is a snapshot and
// may be stale by the time the caller looks at it.
type BracketView struct {
	Stage      *bracket.Stage        `json:"stage"`
	Entries    []bracket.Entry       `json:"entries"`
	Matches    []bracket.Match       `json:"matches"`
	Standings  []bracket.Standing    `json:"standings"`
	Swiss      []bracket.SwissRecord `json:"swiss,omitempty"`
	Champion   *uuid.UUID            `json:"champion,omitempty"`
	Placements []uuid.UUID           `json:"placements,omitempty"`
}

func (s *TournamentService) GetBracketView(ctx context.Context, stageID uuid.UUID) (*BracketView, error) {
	view := &BracketView{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stage, err := s.tournaments.GetStage(gCtx, nil, stageID)
		if err != nil {
			return err
		}
		view.Stage = stage
		return nil
	})
	g.Go(func() error {
		entries, err := s.tournaments.GetEntries(gCtx, nil, stageID)
		if err != nil {
			return fmt.Errorf("failed to get entries: %w", err)
		}
		view.Entries = entries
		return nil
	})
	g.Go(func() error {
		matches, err := s.matches.GetMatches(gCtx, nil, stageID)
		if err != nil {
			return fmt.Errorf("failed to get matches: %w", err)
		}
		view.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Standings = bracket.ComputeStandings(view.Entries, view.Matches)
	view.Champion = bracket.Champion(view.Stage, view.Entries, view.Matches)
	if view.Stage.Format == bracket.Swiss {
		view.Swiss = bracket.SwissRecords(view.Stage, view.Entries, view.Matches)
	}
	if view.Stage.Status == bracket.StageCompleted {
		view.Placements = bracket.Placements(view.Stage, view.Entries, view.Matches)
	}
	return view, nil
}

// ListEvents returns a stage's events after the given sequence number.
func (s *TournamentService) ListEvents(ctx context.Context, stageID uuid.UUID, after int64, limit int) ([]bracket.Event, error) {
	if _, err := s.tournaments.GetStage(ctx, nil, stageID); err != nil {
		return nil, err
	}
	return s.events.ListEvents(ctx, stageID, after, limit)
}
