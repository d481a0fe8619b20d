package bracket

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swissStage(wins, losses int) Stage {
	s := newStage(Swiss)
	s.SwissWinsRequired = wins
	s.SwissLossesRequired = losses
	return s
}

// runSwiss plays a Swiss stage to the end with the better seed always winning
// and returns the number of rounds it took.
func runSwiss(t *testing.T, stage Stage, n int) (int, *Generated, []Match) {
	t.Helper()
	gen, err := Generate(stage, teams(n))
	require.NoError(t, err)
	seeds := seedOf(gen.Entries)
	matches := gen.Matches

	for round := 1; ; round++ {
		require.LessOrEqual(t, round, 20, "swiss stage never finished")
		g := NewGraph(matches)
		for _, m := range g.Matches() {
			if m.Status != MatchReady {
				continue
			}
			winner := 1
			if seeds[*m.Team2ID] < seeds[*m.Team1ID] {
				winner = 2
			}
			play(t, g, m.ID, winner)
		}
		require.True(t, g.AllTerminal())
		matches = g.Matches()

		if SwissFinished(SwissRecords(&gen.Stage, gen.Entries, matches)) {
			return round, gen, matches
		}
		next := NextSwissRound(&gen.Stage, gen.Entries, matches)
		require.NotEmpty(t, next)
		for _, m := range next {
			assert.Equal(t, round+1, m.RoundNumber)
		}
		g = NewGraph(matches)
		g.Add(next...)
		require.NoError(t, g.Settle())
		matches = g.Matches()
	}
}

func TestSwissTerminates(t *testing.T) {
	testCases := []struct {
		teams, wins, losses int
	}{
		{teams: 16, wins: 3, losses: 3},
		{teams: 8, wins: 2, losses: 2},
		{teams: 7, wins: 2, losses: 2},
		{teams: 12, wins: 3, losses: 2},
		{teams: 5, wins: 1, losses: 3},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d teams %d-%d", tc.teams, tc.wins, tc.losses), func(t *testing.T) {
			rounds, gen, matches := runSwiss(t, swissStage(tc.wins, tc.losses), tc.teams)
			assert.LessOrEqual(t, rounds, tc.wins+tc.losses-1)
			assert.Equal(t, tc.wins+tc.losses-1, gen.Stage.RoundCount)

			for _, r := range SwissRecords(&gen.Stage, gen.Entries, matches) {
				assert.NotEqual(t, SwissActive, r.State)
				assert.True(t, r.Wins <= tc.wins && r.Losses <= tc.losses)
			}
			for _, m := range matches {
				if m.Team1ID != nil && m.Team2ID != nil {
					assert.NotEqual(t, *m.Team1ID, *m.Team2ID)
				}
			}
		})
	}
}

func TestSwissAvoidsRematches(t *testing.T) {
	_, _, matches := runSwiss(t, swissStage(3, 3), 16)

	met := make(map[[2]uuid.UUID]int)
	for _, m := range matches {
		if m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		a, b := *m.Team1ID, *m.Team2ID
		if a.String() > b.String() {
			a, b = b, a
		}
		met[[2]uuid.UUID{a, b}]++
	}
	for pair, n := range met {
		assert.Equal(t, 1, n, "teams %s met %d times", pair, n)
	}
}

func TestSwissRoundOne(t *testing.T) {
	gen, err := Generate(swissStage(2, 2), teams(8))
	require.NoError(t, err)
	require.Len(t, gen.Matches, 4)

	seed := func(n int) uuid.UUID { return gen.Entries[n-1].TeamID }
	first := findMatch(gen.Matches, SwissBracket, 1, 1)
	require.NotNil(t, first)
	assert.Equal(t, seed(1), *first.Team1ID)
	assert.Equal(t, seed(8), *first.Team2ID)

	t.Run("odd field gives the last seed a bye", func(t *testing.T) {
		gen, err := Generate(swissStage(2, 2), teams(5))
		require.NoError(t, err)
		require.Len(t, gen.Matches, 3)
		bye := findMatch(gen.Matches, SwissBracket, 1, 3)
		require.NotNil(t, bye)
		assert.True(t, bye.IsBye)
		assert.Equal(t, MatchCompleted, bye.Status)
		assert.Equal(t, gen.Entries[4].TeamID, *bye.WinnerID)
	})
}

func TestSwissDecidingBestOf(t *testing.T) {
	s := swissStage(2, 2)
	s.SwissDecidingBestOf = 3
	gen, err := Generate(s, teams(8))
	require.NoError(t, err)
	for _, m := range gen.Matches {
		assert.Equal(t, 1, m.BestOf)
	}

	g := NewGraph(gen.Matches)
	for _, m := range g.Matches() {
		play(t, g, m.ID, 1)
	}
	next := NextSwissRound(&gen.Stage, gen.Entries, g.Matches())
	require.Len(t, next, 4)
	for _, m := range next {
		assert.Equal(t, 3, m.BestOf, "every second round match can decide a team")
	}
}

func TestSwissPlacementsListQualified(t *testing.T) {
	_, gen, matches := runSwiss(t, swissStage(2, 2), 8)
	placements := Placements(&gen.Stage, gen.Entries, matches)
	require.Len(t, placements, 4)
	assert.ElementsMatch(t, []uuid.UUID{gen.Entries[0].TeamID, gen.Entries[1].TeamID}, placements[:2], "2-0 teams place first")

	for _, r := range SwissRecords(&gen.Stage, gen.Entries, matches) {
		if r.State == SwissQualified {
			assert.Contains(t, placements, r.TeamID)
		}
	}
}
