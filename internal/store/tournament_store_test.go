package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type fixture struct {
	db          *sqlx.DB
	tournaments *TournamentStore
	matches     *MatchStore
	events      *EventStore
	tournament  bracket.Tournament
	stage       bracket.Stage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:          db,
		tournaments: NewTournamentStore(db),
		matches:     NewMatchStore(db),
		events:      NewEventStore(db),
		tournament: bracket.Tournament{
			ID:        uuid.New(),
			Name:      "Test Tournament",
			Format:    bracket.SingleElimination,
			Status:    bracket.TournamentUpcoming,
			CreatedAt: time.Now().UTC(),
		},
	}
	f.stage = bracket.Stage{
		ID:            uuid.New(),
		TournamentID:  f.tournament.ID,
		Sequence:      1,
		Name:          "Playoffs",
		Format:        bracket.SingleElimination,
		BracketType:   bracket.UpperBracket,
		Status:        bracket.StagePending,
		SeedingMethod: bracket.SeedByRating,
		BestOf:        3,
		Legs:          1,
		CreatedAt:     time.Now().UTC(),
	}

	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.tournaments.CreateTournament(ctx, tx, &f.tournament))
	require.NoError(t, f.tournaments.CreateStages(ctx, tx, []bracket.Stage{f.stage}))
	require.NoError(t, tx.Commit())
	return f
}

func (f *fixture) generate(t *testing.T, n int) *bracket.Generated {
	t.Helper()
	teams := make([]bracket.Entry, n)
	for i := range teams {
		teams[i] = bracket.Entry{TeamID: uuid.New(), Name: fmt.Sprintf("Team %d", i+1), Rating: float64(1000 - i)}
	}
	gen, err := bracket.Generate(f.stage, teams)
	require.NoError(t, err)

	ctx := context.Background()
	tx, err := f.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.tournaments.UpdateStage(ctx, tx, &gen.Stage))
	require.NoError(t, f.tournaments.CreateEntries(ctx, tx, gen.Entries))
	require.NoError(t, f.matches.CreateMatches(ctx, tx, gen.Matches))
	require.NoError(t, tx.Commit())
	return gen
}

func TestCreateTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fetched, err := f.tournaments.GetTournament(ctx, nil, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, f.tournament.ID, fetched.ID)
	assert.Equal(t, f.tournament.Name, fetched.Name)
	assert.Equal(t, bracket.TournamentUpcoming, fetched.Status)

	stages, err := f.tournaments.GetStages(ctx, nil, f.tournament.ID)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, 3, stages[0].BestOf)
	assert.Nil(t, stages[0].SourceStageID)

	list, err := f.tournaments.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tournaments.GetTournament(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)
	_, err = f.tournaments.GetStage(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)
	_, err = f.matches.GetMatch(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)
}

func TestCreateMatchesRoundTrip(t *testing.T) {
	f := newFixture(t)
	gen := f.generate(t, 5)
	ctx := context.Background()

	stage, err := f.tournaments.GetStage(ctx, nil, f.stage.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.StageActive, stage.Status)
	assert.Equal(t, 5, stage.TeamCount)
	assert.Equal(t, 3, stage.RoundCount)

	entries, err := f.tournaments.GetEntries(ctx, nil, f.stage.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Seed)
	}

	matches, err := f.matches.GetMatches(ctx, nil, f.stage.ID)
	require.NoError(t, err)
	require.Len(t, matches, len(gen.Matches))

	byID := make(map[uuid.UUID]bracket.Match)
	for _, m := range gen.Matches {
		byID[m.ID] = m
	}
	for _, m := range matches {
		want := byID[m.ID]
		assert.Equal(t, want.Status, m.Status)
		assert.Equal(t, want.IsBye, m.IsBye)
		assert.Equal(t, want.Team1ID, m.Team1ID)
		assert.Equal(t, want.Team2ID, m.Team2ID)
		assert.Equal(t, want.Team2Void, m.Team2Void)
		assert.Equal(t, want.WinnerNextMatchID, m.WinnerNextMatchID)
		assert.Equal(t, want.WinnerNextSlot, m.WinnerNextSlot)
	}
	assert.Equal(t, 1, matches[0].RoundNumber, "ordered by round")
}

func TestUpdateMatchesAndGames(t *testing.T) {
	f := newFixture(t)
	gen := f.generate(t, 4)
	ctx := context.Background()

	m := gen.Matches[len(gen.Matches)-1]
	require.Equal(t, 1, m.RoundNumber)
	series := &bracket.Series{Match: &m}
	require.NoError(t, series.RecordGame(1, *m.Team1ID, 3, 1))
	m.ScheduledAt = utils.Ptr(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC))

	kills := 12
	stat := bracket.StatLine{TeamID: *m.Team1ID, Player: "p1", Hero: "Tracer", Kills: &kills}.Record(series.Games[0].ID)

	tx, err := f.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.matches.UpdateMatches(ctx, tx, []bracket.Match{m}))
	require.NoError(t, f.matches.SaveGames(ctx, tx, series.Games))
	require.NoError(t, f.matches.ReplaceGameStats(ctx, tx, series.Games[0].ID, []bracket.GameStat{stat}))
	require.NoError(t, tx.Commit())

	stored, err := f.matches.GetMatch(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchLive, stored.Status)
	assert.Equal(t, 1, stored.Team1Score)
	require.NotNil(t, stored.ScheduledAt)
	assert.True(t, m.ScheduledAt.Equal(*stored.ScheduledAt))

	// second save updates in place
	require.NoError(t, series.RecordGame(2, *m.Team1ID, 3, 2))
	tx, err = f.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.matches.SaveGames(ctx, tx, series.Games))
	require.NoError(t, tx.Commit())

	games, err := f.matches.GetGames(ctx, nil, m.ID)
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, bracket.GameCompleted, games[1].Status)
	assert.Equal(t, bracket.GameCancelled, games[2].Status)

	stats, err := f.matches.GetMatchStats(ctx, nil, m.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 12, stats[0].Kills)
	assert.Equal(t, 0, stats[0].Deaths)
}

func TestDuplicateTeamRejectedBySchema(t *testing.T) {
	f := newFixture(t)
	gen := f.generate(t, 4)
	ctx := context.Background()

	m := gen.Matches[len(gen.Matches)-1]
	m.Team2ID = m.Team1ID

	tx, err := f.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	assert.Error(t, f.matches.UpdateMatches(ctx, tx, []bracket.Match{m}))
}

func TestClearStageAndEvents(t *testing.T) {
	f := newFixture(t)
	gen := f.generate(t, 4)
	ctx := context.Background()

	evs := []bracket.Event{
		bracket.NewEvent(bracket.EventMatchesGenerated, &gen.Stage),
		bracket.NewEvent(bracket.EventBracketReset, &gen.Stage),
	}

	tx, err := f.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.events.InsertEvents(ctx, tx, evs))
	require.NoError(t, f.tournaments.ClearStage(ctx, tx, f.stage.ID))
	require.NoError(t, tx.Commit())

	assert.Less(t, evs[0].Seq, evs[1].Seq)

	matches, err := f.matches.GetMatches(ctx, nil, f.stage.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
	entries, err := f.tournaments.GetEntries(ctx, nil, f.stage.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	listed, err := f.events.ListEvents(ctx, f.stage.ID, evs[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, bracket.EventBracketReset, listed[0].Type)
	assert.Equal(t, evs[1].ID, listed[0].ID)
}

func TestDeleteMatches(t *testing.T) {
	f := newFixture(t)
	gen := f.generate(t, 4)
	ctx := context.Background()

	m := gen.Matches[len(gen.Matches)-1]
	series := &bracket.Series{Match: &m}
	require.NoError(t, series.Start())

	tx, err := f.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.matches.SaveGames(ctx, tx, series.Games))
	require.NoError(t, f.matches.DeleteMatches(ctx, tx, nil))
	require.NoError(t, f.matches.DeleteMatches(ctx, tx, []uuid.UUID{m.ID}))
	require.NoError(t, tx.Commit())

	_, err = f.matches.GetMatch(ctx, nil, m.ID)
	assert.ErrorIs(t, err, bracket.ErrNotFound)
	games, err := f.matches.GetGames(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Empty(t, games)

	matches, err := f.matches.GetMatches(ctx, nil, f.stage.ID)
	require.NoError(t, err)
	assert.Len(t, matches, len(gen.Matches)-1)
}
