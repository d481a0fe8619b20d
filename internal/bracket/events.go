package bracket

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMatchStatusChanged EventType = "MatchStatusChanged"
	EventSeriesScoreChanged EventType = "SeriesScoreChanged"
	EventStageCompleted     EventType = "StageCompleted"
	// BracketReset is emitted both when a stage is wiped and when a grand final
	// reset match is activated; the latter carries the reset match id.
	EventBracketReset     EventType = "BracketReset"
	EventResultCorrected  EventType = "ResultCorrected"
	EventMatchesGenerated EventType = "MatchesGenerated"
)

// Event is a fact produced by the engine for an external broadcaster.
type Event struct {
	Seq          int64      `db:"seq" json:"seq"`
	ID           uuid.UUID  `db:"id" json:"id"`
	Type         EventType  `db:"event_type" json:"type"`
	TournamentID uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	StageID      uuid.UUID  `db:"stage_id" json:"stage_id"`
	MatchID      *uuid.UUID `db:"match_id" json:"match_id,omitempty"`
	Status       string     `db:"status" json:"status"`
	Team1Score   int        `db:"team1_score" json:"team1_score"`
	Team2Score   int        `db:"team2_score" json:"team2_score"`
	WinnerID     *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
	OccurredAt   time.Time  `db:"occurred_at" json:"occurred_at"`
}

func NewEvent(t EventType, stage *Stage) Event {
	return Event{
		ID:           uuid.New(),
		Type:         t,
		TournamentID: stage.TournamentID,
		StageID:      stage.ID,
		Status:       string(stage.Status),
		OccurredAt:   time.Now().UTC(),
	}
}

func matchEvent(t EventType, stage *Stage, m *Match) Event {
	e := NewEvent(t, stage)
	e.MatchID = cloneID(&m.ID)
	e.Status = string(m.Status)
	e.Team1Score = m.Team1Score
	e.Team2Score = m.Team2Score
	e.WinnerID = cloneID(m.WinnerID)
	return e
}

// MatchEvents derives the events for one match row that went from before to after.
func MatchEvents(stage *Stage, before, after *Match) []Event {
	var events []Event
	if before == nil || before.Status != after.Status {
		events = append(events, matchEvent(EventMatchStatusChanged, stage, after))
	}
	if before != nil && (before.Team1Score != after.Team1Score || before.Team2Score != after.Team2Score) {
		events = append(events, matchEvent(EventSeriesScoreChanged, stage, after))
	}
	if before != nil && after.isGrandFinal(2) && before.Status == MatchPending && after.Status == MatchReady {
		events = append(events, matchEvent(EventBracketReset, stage, after))
	}
	return events
}

// CorrectedEvent reports an administrative rewrite of m's result.
func CorrectedEvent(stage *Stage, m *Match) Event {
	return matchEvent(EventResultCorrected, stage, m)
}
