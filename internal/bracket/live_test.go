package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyMatch(bestOf int) *Match {
	t1, t2 := uuid.New(), uuid.New()
	return &Match{
		ID:          uuid.New(),
		BracketSlot: "U1-1",
		Team1ID:     &t1,
		Team2ID:     &t2,
		Status:      MatchReady,
		BestOf:      bestOf,
	}
}

func TestRecordGameAutoCompletes(t *testing.T) {
	m := readyMatch(3)
	s := &Series{Match: m}

	require.NoError(t, s.RecordGame(1, *m.Team1ID, 13, 7))
	assert.Equal(t, MatchLive, m.Status)
	assert.Equal(t, 1, m.Team1Score)
	require.Len(t, s.Games, 3)

	require.NoError(t, s.RecordGame(2, *m.Team1ID, 13, 11))
	assert.Equal(t, MatchCompleted, m.Status)
	assert.Equal(t, 2, m.Team1Score)
	assert.Equal(t, 0, m.Team2Score)
	assert.Equal(t, *m.Team1ID, *m.WinnerID)
	assert.Equal(t, *m.Team2ID, *m.LoserID)
	assert.Equal(t, GameCancelled, s.Games[2].Status, "unneeded map is cancelled")

	// same report again is a no-op
	require.NoError(t, s.RecordGame(2, *m.Team1ID, 13, 11))
	assert.Equal(t, 2, m.Team1Score)

	err := s.RecordGame(3, *m.Team2ID, 13, 2)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestRecordGameRejects(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(m *Match)
		index int
		kind  Kind
	}{
		{
			name:  "pending match",
			setup: func(m *Match) { m.Status = MatchPending; m.Team2ID = nil },
			index: 1,
			kind:  KindMatchNotReady,
		},
		{
			name:  "cancelled match",
			setup: func(m *Match) { m.Status = MatchCancelled },
			index: 1,
			kind:  KindMatchNotReady,
		},
		{
			name:  "paused match",
			setup: func(m *Match) { m.Status = MatchPaused },
			index: 1,
			kind:  KindInvalidTransition,
		},
		{
			name:  "map out of range",
			setup: func(m *Match) {},
			index: 4,
			kind:  KindInvalidScore,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := readyMatch(3)
			winner := *m.Team1ID
			tc.setup(m)
			before := *m
			s := &Series{Match: m}
			err := s.RecordGame(tc.index, winner, 1, 0)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Equal(t, before.Status, m.Status)
		})
	}

	t.Run("winner not in match", func(t *testing.T) {
		m := readyMatch(1)
		s := &Series{Match: m}
		err := s.RecordGame(1, uuid.New(), 1, 0)
		assert.ErrorIs(t, err, ErrInvalidScore)
		assert.Equal(t, MatchReady, m.Status)
	})
}

func TestLifecycle(t *testing.T) {
	m := readyMatch(5)
	s := &Series{Match: m}

	assert.ErrorIs(t, s.Pause(), ErrInvalidTransition)
	require.NoError(t, s.Start())
	assert.Equal(t, MatchLive, m.Status)
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	require.NoError(t, s.Pause())
	assert.Equal(t, MatchPaused, m.Status)
	require.NoError(t, s.Resume())

	require.NoError(t, s.StartGame(1, "Ilios"))
	assert.Equal(t, GameLive, s.Games[0].Status)
	assert.Equal(t, "Ilios", s.Games[0].MapName)
	assert.ErrorIs(t, s.StartGame(1, ""), ErrInvalidTransition)

	t.Run("start without both teams", func(t *testing.T) {
		p := readyMatch(1)
		p.Team2ID = nil
		p.Status = MatchPending
		assert.ErrorIs(t, (&Series{Match: p}).Start(), ErrMatchNotReady)
	})
}

func TestSetScore(t *testing.T) {
	testCases := []struct {
		name     string
		t1, t2   int
		complete bool
		kind     Kind
		status   MatchStatus
	}{
		{name: "partial score keeps match live", t1: 1, t2: 0, status: MatchLive},
		{name: "threshold completes", t1: 2, t2: 1, status: MatchCompleted},
		{name: "explicit completion", t1: 1, t2: 0, complete: true, status: MatchCompleted},
		{name: "tie as final", t1: 1, t2: 1, complete: true, kind: KindAmbiguousResult, status: MatchReady},
		{name: "negative", t1: -1, t2: 0, kind: KindInvalidScore, status: MatchReady},
		{name: "over threshold", t1: 3, t2: 0, kind: KindInvalidScore, status: MatchReady},
		{name: "both at threshold", t1: 2, t2: 2, kind: KindInvalidScore, status: MatchReady},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := readyMatch(3)
			s := &Series{Match: m}
			err := s.SetScore(tc.t1, tc.t2, tc.complete)
			if tc.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.kind, KindOf(err))
				assert.Equal(t, 0, m.Team1Score)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.t1, m.Team1Score)
			}
			assert.Equal(t, tc.status, m.Status)
		})
	}

	t.Run("identical final twice is a no-op", func(t *testing.T) {
		m := readyMatch(3)
		s := &Series{Match: m}
		require.NoError(t, s.SetScore(2, 0, true))
		snapshot := *m
		require.NoError(t, s.SetScore(2, 0, true))
		assert.Equal(t, snapshot, *m)

		err := s.SetScore(0, 2, true)
		assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
	})

	t.Run("last write wins over map tracking", func(t *testing.T) {
		m := readyMatch(5)
		s := &Series{Match: m}
		require.NoError(t, s.RecordGame(1, *m.Team2ID, 3, 1))
		require.NoError(t, s.SetScore(2, 1, false))
		assert.Equal(t, 2, m.Team1Score)
		assert.Equal(t, 1, m.Team2Score)
		assert.Equal(t, MatchLive, m.Status)
	})
}

func TestCancelAndForfeit(t *testing.T) {
	m := readyMatch(3)
	s := &Series{Match: m}
	require.NoError(t, s.Start())
	require.NoError(t, s.Cancel(m.Team1ID))
	assert.Equal(t, MatchCancelled, m.Status)
	assert.Equal(t, *m.Team2ID, *m.WinnerID)
	assert.Equal(t, *m.Team1ID, *m.LoserID)
	for _, g := range s.Games {
		assert.Equal(t, GameCancelled, g.Status)
	}
	assert.ErrorIs(t, s.Cancel(nil), ErrMatchAlreadyCompleted)

	outsider := uuid.New()
	other := readyMatch(1)
	assert.ErrorIs(t, (&Series{Match: other}).Cancel(&outsider), ErrInvalidTransition)
}

func TestCorrect(t *testing.T) {
	m := readyMatch(3)
	s := &Series{Match: m}
	assert.ErrorIs(t, s.Correct(2, 0), ErrInvalidTransition)

	require.NoError(t, s.SetScore(2, 1, false))
	require.NoError(t, s.Correct(1, 2))
	assert.Equal(t, *m.Team2ID, *m.WinnerID)
	assert.Equal(t, MatchCompleted, m.Status)
	assert.ErrorIs(t, s.Correct(1, 1), ErrAmbiguousResult)
}

func TestAggregateStats(t *testing.T) {
	team := uuid.New()
	kills := 10
	lines := []StatLine{
		{TeamID: team, Player: "a", Kills: &kills},
		{TeamID: team, Player: "b"},
	}
	var stats []GameStat
	for _, l := range lines {
		stats = append(stats, l.Record(uuid.New()))
	}
	totals := AggregateStats(stats)
	assert.Equal(t, StatTotals{Kills: 10}, totals[team])
}
