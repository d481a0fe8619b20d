package store

import (
	"context"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TournamentStore persists tournaments, their stages and the seeded entries of
// each stage. Read methods take an optional tx; nil reads from the pool.
type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, format, status, created_at)
        VALUES (:id, :name, :format, :status, :created_at)`, tournament)
	return err
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status bracket.TournamentStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, queryer(s.db, tx), &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "tournament", id)
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC")
	return tournaments, err
}

func (s *TournamentStore) CreateStages(ctx context.Context, tx *sqlx.Tx, stages []bracket.Stage) error {
	if len(stages) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO stages (id, tournament_id, sequence, name, format, bracket_type, status, seeding_method,
            team_count, round_count, best_of, grand_final_best_of, swiss_wins_required, swiss_losses_required,
            swiss_deciding_best_of, legs, random_seed, source_stage_id, advance_count, created_at)
        VALUES (:id, :tournament_id, :sequence, :name, :format, :bracket_type, :status, :seeding_method,
            :team_count, :round_count, :best_of, :grand_final_best_of, :swiss_wins_required, :swiss_losses_required,
            :swiss_deciding_best_of, :legs, :random_seed, :source_stage_id, :advance_count, :created_at)`, stages)
	return err
}

// UpdateStage writes the fields generation and progression change.
func (s *TournamentStore) UpdateStage(ctx context.Context, tx *sqlx.Tx, stage *bracket.Stage) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE stages SET
            bracket_type = :bracket_type, status = :status, seeding_method = :seeding_method,
            team_count = :team_count, round_count = :round_count, best_of = :best_of,
            grand_final_best_of = :grand_final_best_of, legs = :legs
        WHERE id = :id`, stage)
	return err
}

func (s *TournamentStore) GetStage(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Stage, error) {
	var stage bracket.Stage
	err := sqlx.GetContext(ctx, queryer(s.db, tx), &stage, "SELECT * FROM stages WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "stage", id)
	}
	return &stage, nil
}

func (s *TournamentStore) GetStages(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Stage, error) {
	var stages []bracket.Stage
	err := sqlx.SelectContext(ctx, queryer(s.db, tx), &stages, "SELECT * FROM stages WHERE tournament_id = ? ORDER BY sequence ASC", tournamentID)
	return stages, err
}

// GetDependentStages returns the stages fed by sourceID.
func (s *TournamentStore) GetDependentStages(ctx context.Context, tx *sqlx.Tx, sourceID uuid.UUID) ([]bracket.Stage, error) {
	var stages []bracket.Stage
	err := sqlx.SelectContext(ctx, queryer(s.db, tx), &stages, "SELECT * FROM stages WHERE source_stage_id = ? ORDER BY sequence ASC", sourceID)
	return stages, err
}

func (s *TournamentStore) CreateEntries(ctx context.Context, tx *sqlx.Tx, entries []bracket.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, chunk := range chunks(entries, insertChunk) {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO entries (stage_id, team_id, name, seed, rating)
            VALUES (:stage_id, :team_id, :name, :seed, :rating)`, chunk)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) GetEntries(ctx context.Context, tx *sqlx.Tx, stageID uuid.UUID) ([]bracket.Entry, error) {
	var entries []bracket.Entry
	err := sqlx.SelectContext(ctx, queryer(s.db, tx), &entries, "SELECT * FROM entries WHERE stage_id = ? ORDER BY seed ASC", stageID)
	return entries, err
}

// ClearStage removes a stage's generated bracket: matches (with their games,
// stats and corrections by cascade) and seeded entries.
func (s *TournamentStore) ClearStage(ctx context.Context, tx *sqlx.Tx, stageID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE stage_id = ?", stageID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE stage_id = ?", stageID)
	return err
}
