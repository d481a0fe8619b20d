package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(winner, loser Entry) Match {
	w, l := winner.TeamID, loser.TeamID
	return Match{
		ID:       uuid.New(),
		Team1ID:  &w,
		Team2ID:  &l,
		WinnerID: &w,
		LoserID:  &l,
		Status:   MatchCompleted,
		BestOf:   1,
	}
}

func order(standings []Standing) []uuid.UUID {
	out := make([]uuid.UUID, len(standings))
	for i, s := range standings {
		out[i] = s.TeamID
	}
	return out
}

func TestStandingsHeadToHead(t *testing.T) {
	a := Entry{TeamID: uuid.New(), Name: "A", Seed: 2, Rating: 1000}
	b := Entry{TeamID: uuid.New(), Name: "B", Seed: 1, Rating: 100}
	c := Entry{TeamID: uuid.New(), Name: "C", Seed: 3, Rating: 500}
	d := Entry{TeamID: uuid.New(), Name: "D", Seed: 4, Rating: 400}
	entries := []Entry{a, b, c, d}

	matches := []Match{
		result(a, b),
		result(a, c),
		result(d, a),
		result(b, c),
		result(b, d),
		result(c, d),
	}

	standings := ComputeStandings(entries, matches)
	require.Len(t, standings, 4)
	// B has the better seed and schedule, but lost the only meeting with A
	assert.Equal(t, []uuid.UUID{a.TeamID, b.TeamID, c.TeamID, d.TeamID}, order(standings))
	assert.Equal(t, 2, standings[0].Wins)
	assert.Equal(t, 1, standings[0].Losses)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, 4, standings[3].Rank)
}

func TestStandingsStrengthOfSchedule(t *testing.T) {
	x := Entry{TeamID: uuid.New(), Seed: 1, Rating: 300}
	y := Entry{TeamID: uuid.New(), Seed: 2, Rating: 200}
	z := Entry{TeamID: uuid.New(), Seed: 3, Rating: 100}
	entries := []Entry{x, y, z}

	// a three-way cycle: head-to-head cannot split it
	matches := []Match{result(x, y), result(y, z), result(z, x)}

	standings := ComputeStandings(entries, matches)
	assert.Equal(t, []uuid.UUID{z.TeamID, y.TeamID, x.TeamID}, order(standings))
	assert.InDelta(t, 250.0, standings[0].TiebreakValue, 0.001)
	assert.InDelta(t, 150.0, standings[2].TiebreakValue, 0.001)
}

func TestStandingsSeedFallback(t *testing.T) {
	ts := teams(4)
	for i := range ts {
		ts[i].Seed = i + 1
	}
	standings := ComputeStandings(ts, nil)
	assert.Equal(t, []uuid.UUID{ts[0].TeamID, ts[1].TeamID, ts[2].TeamID, ts[3].TeamID}, order(standings))
	for _, s := range standings {
		assert.Zero(t, s.Wins)
		assert.Zero(t, s.TiebreakValue)
	}
}

func TestStandingsDeterministic(t *testing.T) {
	gen, err := Generate(newStage(RoundRobin), teams(6))
	require.NoError(t, err)
	g := NewGraph(gen.Matches)
	for i, m := range g.Matches() {
		play(t, g, m.ID, 1+i%2)
	}
	matches := g.Matches()

	first := ComputeStandings(gen.Entries, matches)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeStandings(gen.Entries, matches))
	}

	reversed := make([]Match, len(matches))
	for i, m := range matches {
		reversed[len(matches)-1-i] = m
	}
	assert.Equal(t, order(first), order(ComputeStandings(gen.Entries, reversed)))

	champ := Champion(&gen.Stage, gen.Entries, matches)
	require.NotNil(t, champ)
	assert.Equal(t, first[0].TeamID, *champ)
}

func TestGSLPlacements(t *testing.T) {
	gen, err := Generate(newStage(GSL), teams(4))
	require.NoError(t, err)
	g := NewGraph(gen.Matches)

	play(t, g, bySlot(g, "Opening A").ID, 1)
	play(t, g, bySlot(g, "Opening B").ID, 1)
	play(t, g, bySlot(g, "Winners").ID, 2)
	play(t, g, bySlot(g, "Elimination").ID, 1)
	play(t, g, bySlot(g, "Decider").ID, 2)
	require.True(t, g.AllTerminal())

	seed := func(n int) uuid.UUID { return gen.Entries[n-1].TeamID }
	// winners: 1 v 2, 2 wins; elimination: 4 v 3, 4 wins; decider: 1 v 4, 4 wins
	assert.Equal(t, []uuid.UUID{seed(2), seed(4), seed(1), seed(3)}, Placements(&gen.Stage, gen.Entries, g.Matches()))
	assert.Nil(t, Champion(&gen.Stage, gen.Entries, g.Matches()))
}
