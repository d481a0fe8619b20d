package bracket

import (
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/google/uuid"
)

type GameStatus string

const (
	GameUpcoming  GameStatus = "upcoming"
	GameLive      GameStatus = "live"
	GameCompleted GameStatus = "completed"
	GameCancelled GameStatus = "cancelled"
)

// Game is one map of a best-of-N series. Scores are in-game, not series.
type Game struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	MatchID    uuid.UUID  `db:"match_id" json:"match_id"`
	Sequence   int        `db:"sequence" json:"sequence"`
	MapName    string     `db:"map_name" json:"map_name"`
	Status     GameStatus `db:"status" json:"status"`
	Team1Score int        `db:"team1_score" json:"team1_score"`
	Team2Score int        `db:"team2_score" json:"team2_score"`
	WinnerID   *uuid.UUID `db:"winner_id" json:"winner_id"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// StatLine is a player/hero stat record as reported. Missing counters are nil.
type StatLine struct {
	TeamID  uuid.UUID `json:"team_id"`
	Player  string    `json:"player"`
	Hero    string    `json:"hero"`
	Kills   *int      `json:"kills"`
	Deaths  *int      `json:"deaths"`
	Assists *int      `json:"assists"`
	Damage  *int      `json:"damage"`
	Healing *int      `json:"healing"`
}

type GameStat struct {
	ID      uuid.UUID `db:"id" json:"id"`
	GameID  uuid.UUID `db:"game_id" json:"game_id"`
	TeamID  uuid.UUID `db:"team_id" json:"team_id"`
	Player  string    `db:"player" json:"player"`
	Hero    string    `db:"hero" json:"hero"`
	Kills   int       `db:"kills" json:"kills"`
	Deaths  int       `db:"deaths" json:"deaths"`
	Assists int       `db:"assists" json:"assists"`
	Damage  int       `db:"damage" json:"damage"`
	Healing int       `db:"healing" json:"healing"`
}

// Record turns a reported line into a stored row; absent counters are zero.
func (l StatLine) Record(gameID uuid.UUID) GameStat {
	return GameStat{
		ID:      uuid.New(),
		GameID:  gameID,
		TeamID:  l.TeamID,
		Player:  l.Player,
		Hero:    l.Hero,
		Kills:   utils.OrZero(l.Kills),
		Deaths:  utils.OrZero(l.Deaths),
		Assists: utils.OrZero(l.Assists),
		Damage:  utils.OrZero(l.Damage),
		Healing: utils.OrZero(l.Healing),
	}
}

type StatTotals struct {
	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`
	Damage  int `json:"damage"`
	Healing int `json:"healing"`
}

func AggregateStats(stats []GameStat) map[uuid.UUID]StatTotals {
	totals := make(map[uuid.UUID]StatTotals)
	for _, s := range stats {
		t := totals[s.TeamID]
		t.Kills += s.Kills
		t.Deaths += s.Deaths
		t.Assists += s.Assists
		t.Damage += s.Damage
		t.Healing += s.Healing
		totals[s.TeamID] = t
	}
	return totals
}
