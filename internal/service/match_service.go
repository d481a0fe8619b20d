package service

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/lock"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type MatchService struct {
	*Backend
}

func NewMatchService(b *Backend) *MatchService {
	return &MatchService{Backend: b}
}

// MatchSnapshot is a match as of the moment it was read.
type MatchSnapshot struct {
	Match       bracket.Match                    `json:"match"`
	Games       []bracket.Game                   `json:"games"`
	Stats       []bracket.GameStat               `json:"stats"`
	Totals      map[uuid.UUID]bracket.StatTotals `json:"totals"`
	Corrections []bracket.Correction             `json:"corrections,omitempty"`
}

// MapResult is one reported map. Stats are optional.
type MapResult struct {
	WinnerID   uuid.UUID          `json:"winner_id"`
	Team1Score int                `json:"team1_score"`
	Team2Score int                `json:"team2_score"`
	MapName    string             `json:"map_name"`
	Stats      []bracket.StatLine `json:"stats"`
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*MatchSnapshot, error) {
	match, err := s.matches.GetMatch(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	games, err := s.matches.GetGames(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}
	stats, err := s.matches.GetMatchStats(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	corrections, err := s.matches.GetCorrections(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get corrections: %w", err)
	}
	return &MatchSnapshot{
		Match:       *match,
		Games:       games,
		Stats:       stats,
		Totals:      bracket.AggregateStats(stats),
		Corrections: corrections,
	}, nil
}

func (s *MatchService) StartMatch(ctx context.Context, matchID uuid.UUID) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeMatch, func(c *command) error {
		return c.series.Start()
	})
}

func (s *MatchService) PauseMatch(ctx context.Context, matchID uuid.UUID) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeMatch, func(c *command) error {
		return c.series.Pause()
	})
}

func (s *MatchService) ResumeMatch(ctx context.Context, matchID uuid.UUID) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeMatch, func(c *command) error {
		return c.series.Resume()
	})
}

// ScheduleMatch only records when the match is expected to be played.
func (s *MatchService) ScheduleMatch(ctx context.Context, matchID uuid.UUID, at time.Time) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeMatch, func(c *command) error {
		m := c.series.Match
		if m.Terminal() {
			return bracket.Errorf(bracket.KindMatchAlreadyCompleted, "match %s is already %s", m.BracketSlot, m.Status)
		}
		at = at.UTC()
		m.ScheduledAt = &at
		return nil
	})
}

func (s *MatchService) StartMap(ctx context.Context, matchID uuid.UUID, index int, mapName string) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeMatch, func(c *command) error {
		return c.series.StartGame(index, mapName)
	})
}

// CancelMatch ends a match with no result; whatever it fed receives a bye.
func (s *MatchService) CancelMatch(ctx context.Context, matchID uuid.UUID) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeProgress, func(c *command) error {
		return c.series.Cancel(nil)
	})
}

// Forfeit cancels the match and advances the opponent of the forfeiting team.
func (s *MatchService) Forfeit(ctx context.Context, matchID, teamID uuid.UUID) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeProgress, func(c *command) error {
		return c.series.Cancel(&teamID)
	})
}

// ReportMapResult completes one map. Reporting a map that already has this
// winner is a no-op: its name and stats are left as first reported.
func (s *MatchService) ReportMapResult(ctx context.Context, matchID uuid.UUID, index int, result MapResult) (*MatchSnapshot, error) {
	if err := validateStats(result.Stats); err != nil {
		return nil, err
	}
	return s.mutate(ctx, matchID, scopeProgress, func(c *command) error {
		m := c.series.Match
		if prior := gameAt(c.series.Games, index); prior != nil && prior.Status == bracket.GameCompleted {
			return c.series.RecordGame(index, result.WinnerID, result.Team1Score, result.Team2Score)
		}
		if err := c.series.RecordGame(index, result.WinnerID, result.Team1Score, result.Team2Score); err != nil {
			return err
		}
		g := gameAt(c.series.Games, index)
		if g == nil {
			return bracket.Errorf(bracket.KindNotFound, "match %s has no map %d", m.BracketSlot, index)
		}
		if result.MapName != "" {
			g.MapName = result.MapName
		}
		if len(result.Stats) == 0 {
			return nil
		}
		c.statsGame = g.ID
		c.stats = make([]bracket.GameStat, 0, len(result.Stats))
		for _, line := range result.Stats {
			if !m.HasTeam(line.TeamID) {
				return bracket.Errorf(bracket.KindInvalidScore, "stat line for team %s which is not playing match %s", line.TeamID, m.BracketSlot)
			}
			c.stats = append(c.stats, line.Record(g.ID))
		}
		return nil
	})
}

// ReportSeriesResult writes the series score directly, bypassing per-map tracking.
func (s *MatchService) ReportSeriesResult(ctx context.Context, matchID uuid.UUID, team1Score, team2Score int, complete bool) (*MatchSnapshot, error) {
	return s.mutate(ctx, matchID, scopeProgress, func(c *command) error {
		return c.series.SetScore(team1Score, team2Score, complete)
	})
}

// CorrectResult rewrites a finished match's score. When the winner changes,
// everything the old result advanced is retracted first and advanced again;
// a downstream match that has already started blocks the correction.
func (s *MatchService) CorrectResult(ctx context.Context, matchID uuid.UUID, team1Score, team2Score int) (*MatchSnapshot, error) {
	actor := middleware.ActorFromContext(ctx)
	return s.mutate(ctx, matchID, scopeCorrection, func(c *command) error {
		m := c.series.Match
		before := *m

		trial := before
		if err := (&bracket.Series{Match: &trial}).Correct(team1Score, team2Score); err != nil {
			return err
		}
		winnerChanged := before.WinnerID == nil || *before.WinnerID != *trial.WinnerID

		var retracted []uuid.UUID
		if winnerChanged && c.stage.Format == bracket.Swiss {
			dropped, err := c.graph.DropRoundsAfter(m.RoundNumber)
			if err != nil {
				return err
			}
			retracted = append(retracted, dropped...)
		}
		resetEvents, err := s.reopen(ctx, c.tx, c.progression)
		if err != nil {
			return err
		}
		c.events = append(c.events, resetEvents...)

		if winnerChanged {
			ids, err := c.graph.Retract(m.ID)
			if err != nil {
				return err
			}
			retracted = append(retracted, ids...)
		}
		if err := c.series.Correct(team1Score, team2Score); err != nil {
			return err
		}
		c.graph.Touch(m.ID)
		if err := c.graph.Advance(m.ID); err != nil {
			return err
		}

		correction := bracket.NewCorrection(&before, m, retracted, actor)
		c.correction = &correction
		c.events = append(c.events, bracket.CorrectedEvent(c.stage, m))

		log.Info().
			Str("match_id", m.ID.String()).
			Str("actor", actor).
			Int("team1_score", team1Score).
			Int("team2_score", team2Score).
			Int("retracted", len(retracted)).
			Int("stages_cleared", len(resetEvents)).
			Msg("match result corrected")
		return nil
	})
}

// command is what one match command works on inside its transaction.
type command struct {
	*progression
	tx     *sqlx.Tx
	series *bracket.Series

	events     []bracket.Event
	statsGame  uuid.UUID
	stats      []bracket.GameStat
	correction *bracket.Correction
}

// lockScope is how much of the tournament a match command holds while it runs.
type lockScope int

const (
	// scopeMatch is the match alone.
	scopeMatch lockScope = iota
	// scopeProgress adds every match the result can reach plus the stage,
	// since advancement, the next Swiss round and stage completion write there.
	scopeProgress
	// scopeCorrection holds the whole stage and every stage built from it.
	scopeCorrection
)

// mutate runs apply under the match's critical section. Nothing is written
// unless apply and the whole progression succeed.
func (s *MatchService) mutate(ctx context.Context, matchID uuid.UUID, scope lockScope, apply func(c *command) error) (*MatchSnapshot, error) {
	current, err := s.matches.GetMatch(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	keys, err := s.lockKeys(ctx, current, scope)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := s.loadProgression(ctx, tx, current.StageID)
	if err != nil {
		return nil, err
	}
	m := p.graph.Match(matchID)
	if m == nil {
		return nil, bracket.Errorf(bracket.KindNotFound, "match %s not found", matchID)
	}
	games, err := s.matches.GetGames(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	before := make(map[uuid.UUID]bracket.Match)
	for _, bm := range p.graph.Matches() {
		before[bm.ID] = bm
	}
	gamesBefore := append([]bracket.Game(nil), games...)
	wasTerminal := m.Terminal()

	c := &command{progression: p, tx: tx, series: &bracket.Series{Match: m, Games: games}}
	if err := apply(c); err != nil {
		return nil, err
	}
	if !reflect.DeepEqual(before[matchID], *m) {
		p.graph.Touch(matchID)
	}

	var progressEvents []bracket.Event
	if scope >= scopeProgress {
		if !wasTerminal && m.Terminal() {
			if err := p.graph.Advance(matchID); err != nil {
				return nil, err
			}
		}
		if progressEvents, err = s.progress(ctx, tx, p); err != nil {
			return nil, err
		}
	}

	changed := p.graph.Changed()
	added := p.graph.Added()
	if err := s.matches.DeleteMatches(ctx, tx, p.graph.Removed()); err != nil {
		return nil, fmt.Errorf("failed to delete matches: %w", err)
	}
	if err := s.matches.UpdateMatches(ctx, tx, changed); err != nil {
		return nil, fmt.Errorf("failed to update matches: %w", err)
	}
	if err := s.matches.CreateMatches(ctx, tx, added); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}
	if !reflect.DeepEqual(gamesBefore, c.series.Games) {
		if err := s.matches.SaveGames(ctx, tx, c.series.Games); err != nil {
			return nil, fmt.Errorf("failed to save games: %w", err)
		}
	}
	if c.stats != nil {
		if err := s.matches.ReplaceGameStats(ctx, tx, c.statsGame, c.stats); err != nil {
			return nil, fmt.Errorf("failed to save stats: %w", err)
		}
	}
	if c.correction != nil {
		if err := s.matches.CreateCorrection(ctx, tx, c.correction); err != nil {
			return nil, fmt.Errorf("failed to record correction: %w", err)
		}
	}

	var evs []bracket.Event
	for i := range changed {
		prev := before[changed[i].ID]
		evs = append(evs, bracket.MatchEvents(p.stage, &prev, &changed[i])...)
	}
	for i := range added {
		evs = append(evs, bracket.MatchEvents(p.stage, nil, &added[i])...)
	}
	evs = append(evs, c.events...)
	evs = append(evs, progressEvents...)

	if err := s.commit(ctx, tx, evs); err != nil {
		return nil, err
	}
	return s.GetMatch(ctx, matchID)
}

func (s *MatchService) lockKeys(ctx context.Context, current *bracket.Match, scope lockScope) ([]string, error) {
	keys := []string{lock.MatchKey(current.ID)}
	switch scope {
	case scopeProgress:
		stageMatches, err := s.matches.GetMatches(ctx, nil, current.StageID)
		if err != nil {
			return nil, fmt.Errorf("failed to get matches: %w", err)
		}
		for _, id := range bracket.NewGraph(stageMatches).Downstream(current.ID) {
			keys = append(keys, lock.MatchKey(id))
		}
		keys = append(keys, lock.StageKey(current.StageID))
	case scopeCorrection:
		tree, err := s.stageTree(ctx, nil, current.StageID)
		if err != nil {
			return nil, err
		}
		for _, st := range tree {
			keys = append(keys, lock.StageKey(st.ID))
			stageMatches, err := s.matches.GetMatches(ctx, nil, st.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get matches: %w", err)
			}
			for _, m := range stageMatches {
				if m.ID != current.ID {
					keys = append(keys, lock.MatchKey(m.ID))
				}
			}
		}
	}
	return keys, nil
}

func gameAt(games []bracket.Game, index int) *bracket.Game {
	for i := range games {
		if games[i].Sequence == index {
			return &games[i]
		}
	}
	return nil
}

// validateStats rejects negative counters before any lock is taken.
func validateStats(lines []bracket.StatLine) error {
	for _, l := range lines {
		for _, v := range []*int{l.Kills, l.Deaths, l.Assists, l.Damage, l.Healing} {
			if v != nil && *v < 0 {
				return bracket.Errorf(bracket.KindInvalidScore, "stat counters cannot be negative (player %q)", l.Player)
			}
		}
	}
	return nil
}
