package bracket

import (
	"time"

	"github.com/google/uuid"
)

// Series is one match together with its maps. All lifecycle rules of a
// best-of-N contest live here; callers serialize access per match.
type Series struct {
	Match *Match
	Games []Game
}

func (s *Series) Start() error {
	m := s.Match
	if m.Status != MatchReady {
		if m.Status == MatchPending || m.Team1ID == nil || m.Team2ID == nil {
			return Errorf(KindMatchNotReady, "match %s is waiting for both teams", m.BracketSlot)
		}
		return Errorf(KindInvalidTransition, "cannot start match %s from %s", m.BracketSlot, m.Status)
	}
	m.Status = MatchLive
	s.ensureGames()
	return nil
}

func (s *Series) Pause() error {
	if s.Match.Status != MatchLive {
		return Errorf(KindInvalidTransition, "cannot pause match %s from %s", s.Match.BracketSlot, s.Match.Status)
	}
	s.Match.Status = MatchPaused
	return nil
}

func (s *Series) Resume() error {
	if s.Match.Status != MatchPaused {
		return Errorf(KindInvalidTransition, "cannot resume match %s from %s", s.Match.BracketSlot, s.Match.Status)
	}
	s.Match.Status = MatchLive
	return nil
}

// Cancel ends the match without play, from any state that is not final yet.
// With a forfeiting team the opponent is recorded as winner; without one, or
// when the opponent has not arrived, the match produces no result at all.
func (s *Series) Cancel(forfeiting *uuid.UUID) error {
	m := s.Match
	if m.Terminal() {
		return Errorf(KindMatchAlreadyCompleted, "match %s is already %s", m.BracketSlot, m.Status)
	}
	if forfeiting != nil {
		if !m.HasTeam(*forfeiting) {
			return Errorf(KindInvalidTransition, "team %s is not playing match %s", forfeiting, m.BracketSlot)
		}
		if opponent := m.Opponent(*forfeiting); opponent != nil {
			m.WinnerID = cloneID(opponent)
			m.LoserID = cloneID(forfeiting)
		}
	}
	m.Status = MatchCancelled
	s.closeGames()
	return nil
}

// StartGame moves map index (1-based) to live, taking the match live if needed.
func (s *Series) StartGame(index int, mapName string) error {
	if err := s.playable(); err != nil {
		return err
	}
	g, err := s.game(index)
	if err != nil {
		return err
	}
	if g.Status != GameUpcoming {
		return Errorf(KindInvalidTransition, "map %d is already %s", index, g.Status)
	}
	s.goLive()
	g.Status = GameLive
	if mapName != "" {
		g.MapName = mapName
	}
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordGame completes map index with winner. Series score is recounted from
// the maps, and the match completes as soon as a team reaches the win threshold.
// Reporting the same map result again changes nothing.
func (s *Series) RecordGame(index int, winner uuid.UUID, team1Score, team2Score int) error {
	m := s.Match
	if m.Status == MatchCompleted {
		if g, err := s.existingGame(index); err == nil && g.Status == GameCompleted && sameID(g.WinnerID, &winner) {
			return nil
		}
		return Errorf(KindMatchAlreadyCompleted, "match %s is already decided", m.BracketSlot)
	}
	if err := s.playable(); err != nil {
		return err
	}
	if !m.HasTeam(winner) {
		return Errorf(KindInvalidScore, "team %s is not playing match %s", winner, m.BracketSlot)
	}
	if team1Score < 0 || team2Score < 0 {
		return Errorf(KindInvalidScore, "map scores cannot be negative")
	}
	g, err := s.game(index)
	if err != nil {
		return err
	}
	switch g.Status {
	case GameCompleted:
		if sameID(g.WinnerID, &winner) {
			return nil
		}
		return Errorf(KindInvalidTransition, "map %d already has a winner", index)
	case GameCancelled:
		return Errorf(KindInvalidTransition, "map %d was cancelled", index)
	}

	s.goLive()
	g.Status = GameCompleted
	g.WinnerID = cloneID(&winner)
	g.Team1Score = team1Score
	g.Team2Score = team2Score
	g.UpdatedAt = time.Now().UTC()

	t1, t2 := 0, 0
	for _, game := range s.Games {
		if game.Status != GameCompleted || game.WinnerID == nil {
			continue
		}
		switch *game.WinnerID {
		case *m.Team1ID:
			t1++
		case *m.Team2ID:
			t2++
		}
	}
	m.Team1Score, m.Team2Score = t1, t2
	if need := m.WinsNeeded(); t1 >= need || t2 >= need {
		s.decide()
	}
	return nil
}

// SetScore writes the series score directly, bypassing map tracking. The
// match completes when a team reaches the threshold or complete is set.
func (s *Series) SetScore(team1Score, team2Score int, complete bool) error {
	m := s.Match
	need := m.WinsNeeded()
	if m.Status == MatchCompleted {
		if m.Team1Score == team1Score && m.Team2Score == team2Score {
			return nil
		}
		return Errorf(KindMatchAlreadyCompleted, "match %s is already decided %d-%d", m.BracketSlot, m.Team1Score, m.Team2Score)
	}
	if m.Status == MatchPending || m.Status == MatchCancelled {
		return Errorf(KindMatchNotReady, "match %s is %s", m.BracketSlot, m.Status)
	}
	if m.Status == MatchPaused {
		return Errorf(KindInvalidTransition, "match %s is paused", m.BracketSlot)
	}
	if err := validSeriesScore(need, team1Score, team2Score); err != nil {
		return err
	}
	decided := team1Score >= need || team2Score >= need
	if (complete || decided) && team1Score == team2Score {
		return Errorf(KindAmbiguousResult, "series tied %d-%d", team1Score, team2Score)
	}

	s.goLive()
	m.Team1Score, m.Team2Score = team1Score, team2Score
	if complete || decided {
		s.decide()
	}
	return nil
}

// Correct rewrites the result of a finished match. The caller is responsible
// for retracting whatever the old result advanced.
func (s *Series) Correct(team1Score, team2Score int) error {
	m := s.Match
	if !m.Terminal() || m.IsBye || m.Team1ID == nil || m.Team2ID == nil {
		return Errorf(KindInvalidTransition, "match %s has no result to correct", m.BracketSlot)
	}
	if err := validSeriesScore(m.WinsNeeded(), team1Score, team2Score); err != nil {
		return err
	}
	if team1Score == team2Score {
		return Errorf(KindAmbiguousResult, "series tied %d-%d", team1Score, team2Score)
	}
	m.Team1Score, m.Team2Score = team1Score, team2Score
	s.decide()
	return nil
}

func validSeriesScore(need, t1, t2 int) error {
	if t1 < 0 || t2 < 0 || t1 > need || t2 > need {
		return Errorf(KindInvalidScore, "series score %d-%d is outside 0..%d", t1, t2, need)
	}
	if t1 == need && t2 == need {
		return Errorf(KindInvalidScore, "both teams cannot reach %d wins", need)
	}
	return nil
}

func (s *Series) decide() {
	m := s.Match
	if m.Team1Score > m.Team2Score {
		m.WinnerID, m.LoserID = cloneID(m.Team1ID), cloneID(m.Team2ID)
	} else {
		m.WinnerID, m.LoserID = cloneID(m.Team2ID), cloneID(m.Team1ID)
	}
	m.Status = MatchCompleted
	s.closeGames()
}

func (s *Series) playable() error {
	m := s.Match
	switch m.Status {
	case MatchPending, MatchCancelled:
		return Errorf(KindMatchNotReady, "match %s is %s", m.BracketSlot, m.Status)
	case MatchPaused:
		return Errorf(KindInvalidTransition, "match %s is paused", m.BracketSlot)
	case MatchCompleted:
		return Errorf(KindMatchAlreadyCompleted, "match %s is already decided", m.BracketSlot)
	}
	return nil
}

// goLive is the implicit ready->live transition of the first reported map.
func (s *Series) goLive() {
	if s.Match.Status == MatchReady {
		s.Match.Status = MatchLive
	}
	s.ensureGames()
}

// Maps that were never needed are cancelled, not left upcoming.
func (s *Series) closeGames() {
	now := time.Now().UTC()
	for i := range s.Games {
		if s.Games[i].Status == GameUpcoming || s.Games[i].Status == GameLive {
			s.Games[i].Status = GameCancelled
			s.Games[i].UpdatedAt = now
		}
	}
}

func (s *Series) ensureGames() {
	if len(s.Games) > 0 {
		return
	}
	now := time.Now().UTC()
	for i := 1; i <= s.Match.BestOf; i++ {
		s.Games = append(s.Games, Game{
			ID:        uuid.New(),
			MatchID:   s.Match.ID,
			Sequence:  i,
			Status:    GameUpcoming,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
}

func (s *Series) existingGame(index int) (*Game, error) {
	for i := range s.Games {
		if s.Games[i].Sequence == index {
			return &s.Games[i], nil
		}
	}
	return nil, Errorf(KindNotFound, "match %s has no map %d", s.Match.BracketSlot, index)
}

func (s *Series) game(index int) (*Game, error) {
	if index < 1 || index > s.Match.BestOf {
		return nil, Errorf(KindInvalidScore, "map %d is outside best of %d", index, s.Match.BestOf)
	}
	s.ensureGames()
	return s.existingGame(index)
}
