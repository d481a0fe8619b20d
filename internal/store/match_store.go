package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	for _, chunk := range chunks(matches, insertChunk) {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, stage_id, bracket_side, round_number, match_number, bracket_slot,
                team1_id, team2_id, team1_void, team2_void, status, team1_score, team2_score, winner_id, loser_id, best_of,
                winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot, is_bye, scheduled_at, created_at, updated_at)
            VALUES (:id, :stage_id, :bracket_side, :round_number, :match_number, :bracket_slot,
                :team1_id, :team2_id, :team1_void, :team2_void, :status, :team1_score, :team2_score, :winner_id, :loser_id, :best_of,
                :winner_next_match_id, :winner_next_slot, :loser_next_match_id, :loser_next_slot, :is_bye, :scheduled_at, :created_at, :updated_at)`, chunk)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateMatches writes back the mutable state of each match. Topology
// (round, slot, advancement pointers) never changes after generation.
func (s *MatchStore) UpdateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	now := time.Now().UTC()
	for i := range matches {
		matches[i].UpdatedAt = now
		_, err := tx.NamedExecContext(ctx, `UPDATE matches SET
                team1_id = :team1_id, team2_id = :team2_id, team1_void = :team1_void, team2_void = :team2_void,
                status = :status, team1_score = :team1_score, team2_score = :team2_score,
                winner_id = :winner_id, loser_id = :loser_id, best_of = :best_of, is_bye = :is_bye,
                scheduled_at = :scheduled_at, updated_at = :updated_at
            WHERE id = :id`, matches[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteMatches removes unplayed matches together with anything hanging off them.
func (s *MatchStore) DeleteMatches(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM matches WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := sqlx.GetContext(ctx, queryer(s.db, tx), &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "match", id)
	}
	return &match, nil
}

func (s *MatchStore) GetMatches(ctx context.Context, tx *sqlx.Tx, stageID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, queryer(s.db, tx), &matches, `SELECT * FROM matches WHERE stage_id = ?
        ORDER BY CASE bracket_side WHEN 'lower' THEN 1 WHEN 'grand_final' THEN 2 ELSE 0 END, round_number ASC, match_number ASC`, stageID)
	return matches, err
}

func (s *MatchStore) GetGames(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) ([]bracket.Game, error) {
	var games []bracket.Game
	err := sqlx.SelectContext(ctx, queryer(s.db, tx), &games, "SELECT * FROM games WHERE match_id = ? ORDER BY sequence ASC", matchID)
	return games, err
}

func (s *MatchStore) SaveGames(ctx context.Context, tx *sqlx.Tx, games []bracket.Game) error {
	for i := range games {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO games (id, match_id, sequence, map_name, status, team1_score, team2_score, winner_id, created_at, updated_at)
            VALUES (:id, :match_id, :sequence, :map_name, :status, :team1_score, :team2_score, :winner_id, :created_at, :updated_at)
            ON CONFLICT (id) DO UPDATE SET
                map_name = excluded.map_name, status = excluded.status,
                team1_score = excluded.team1_score, team2_score = excluded.team2_score,
                winner_id = excluded.winner_id, updated_at = excluded.updated_at`, games[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MatchStore) CreateGameStats(ctx context.Context, tx *sqlx.Tx, stats []bracket.GameStat) error {
	for _, chunk := range chunks(stats, insertChunk) {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO game_stats (id, game_id, team_id, player, hero, kills, deaths, assists, damage, healing)
            VALUES (:id, :game_id, :team_id, :player, :hero, :kills, :deaths, :assists, :damage, :healing)`, chunk)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReplaceGameStats drops whatever was reported for a map before writing stats again.
func (s *MatchStore) ReplaceGameStats(ctx context.Context, tx *sqlx.Tx, gameID uuid.UUID, stats []bracket.GameStat) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM game_stats WHERE game_id = ?", gameID); err != nil {
		return err
	}
	return s.CreateGameStats(ctx, tx, stats)
}

func (s *MatchStore) GetMatchStats(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) ([]bracket.GameStat, error) {
	var stats []bracket.GameStat
	err := sqlx.SelectContext(ctx, queryer(s.db, tx), &stats, `SELECT gs.* FROM game_stats gs
        JOIN games g ON g.id = gs.game_id
        WHERE g.match_id = ?
        ORDER BY g.sequence ASC, gs.team_id ASC, gs.player ASC`, matchID)
	return stats, err
}

func (s *MatchStore) CreateCorrection(ctx context.Context, tx *sqlx.Tx, c *bracket.Correction) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO match_corrections (id, match_id, old_team1_score, old_team2_score,
            new_team1_score, new_team2_score, old_winner_id, new_winner_id, retracted_match_ids, requested_by, created_at)
        VALUES (:id, :match_id, :old_team1_score, :old_team2_score,
            :new_team1_score, :new_team2_score, :old_winner_id, :new_winner_id, :retracted_match_ids, :requested_by, :created_at)`, c)
	return err
}

func (s *MatchStore) GetCorrections(ctx context.Context, matchID uuid.UUID) ([]bracket.Correction, error) {
	var corrections []bracket.Correction
	err := s.db.SelectContext(ctx, &corrections, "SELECT * FROM match_corrections WHERE match_id = ? ORDER BY created_at ASC", matchID)
	return corrections, err
}
