package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchReady     MatchStatus = "ready"
	MatchLive      MatchStatus = "live"
	MatchPaused    MatchStatus = "paused"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

type Match struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`

	// Position in the stage for reconstructing the view
	BracketSide BracketType `db:"bracket_side" json:"bracket_side"`
	RoundNumber int         `db:"round_number" json:"round_number"`
	MatchNumber int         `db:"match_number" json:"match_number"`
	BracketSlot string      `db:"bracket_slot" json:"bracket_slot"`

	Team1ID *uuid.UUID `db:"team1_id" json:"team1_id"`
	Team2ID *uuid.UUID `db:"team2_id" json:"team2_id"`

	// A void slot will never receive a team: a missing seed, the loser of a bye,
	// or the output of a match cancelled without a winner.
	Team1Void bool `db:"team1_void" json:"team1_void"`
	Team2Void bool `db:"team2_void" json:"team2_void"`

	Status     MatchStatus `db:"status" json:"status"`
	Team1Score int         `db:"team1_score" json:"team1_score"`
	Team2Score int         `db:"team2_score" json:"team2_score"`
	WinnerID   *uuid.UUID  `db:"winner_id" json:"winner_id"`
	LoserID    *uuid.UUID  `db:"loser_id" json:"loser_id"`
	BestOf     int         `db:"best_of" json:"best_of"`

	WinnerNextMatchID *uuid.UUID `db:"winner_next_match_id" json:"winner_next_match_id,omitempty"`
	WinnerNextSlot    *int       `db:"winner_next_slot" json:"winner_next_slot,omitempty"`

	LoserNextMatchID *uuid.UUID `db:"loser_next_match_id" json:"loser_next_match_id,omitempty"`
	LoserNextSlot    *int       `db:"loser_next_slot" json:"loser_next_slot,omitempty"`

	// Resolved without play.
	IsBye bool `db:"is_bye" json:"is_bye"`

	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (m *Match) IsWinner(slot int) bool {
	w := m.WinnerID
	t := m.team(slot)
	return w != nil && t != nil && *w == *t
}

func (m *Match) IsLoser(slot int) bool {
	l := m.LoserID
	t := m.team(slot)
	return l != nil && t != nil && *l == *t
}

// WinsNeeded is the series score that decides the match: ceil(best_of/2).
func (m *Match) WinsNeeded() int {
	return m.BestOf/2 + 1
}

func (m *Match) Terminal() bool {
	return m.Status == MatchCompleted || m.Status == MatchCancelled
}

// Started reports whether the match has been played in any form. Byes never start.
func (m *Match) Started() bool {
	switch m.Status {
	case MatchLive, MatchPaused:
		return true
	case MatchCompleted, MatchCancelled:
		return !m.IsBye
	}
	return false
}

// voided reports a match cancelled before anyone won it.
func (m *Match) voided() bool {
	return m.Status == MatchCancelled && m.WinnerID == nil && !m.IsBye
}

func (m *Match) HasTeam(id uuid.UUID) bool {
	return m.SlotOf(id) != 0
}

// SlotOf returns 1 or 2 for a team in the match, 0 otherwise.
func (m *Match) SlotOf(id uuid.UUID) int {
	if m.Team1ID != nil && *m.Team1ID == id {
		return 1
	}
	if m.Team2ID != nil && *m.Team2ID == id {
		return 2
	}
	return 0
}

func (m *Match) Opponent(id uuid.UUID) *uuid.UUID {
	switch m.SlotOf(id) {
	case 1:
		return m.Team2ID
	case 2:
		return m.Team1ID
	}
	return nil
}

func (m *Match) team(slot int) *uuid.UUID {
	if slot == 1 {
		return m.Team1ID
	}
	return m.Team2ID
}

func (m *Match) setTeam(slot int, id *uuid.UUID) {
	if slot == 1 {
		m.Team1ID = id
	} else {
		m.Team2ID = id
	}
}

func (m *Match) void(slot int) bool {
	if slot == 1 {
		return m.Team1Void
	}
	return m.Team2Void
}

func (m *Match) setVoid(slot int, v bool) {
	if slot == 1 {
		m.Team1Void = v
	} else {
		m.Team2Void = v
	}
}

func (m *Match) isGrandFinal(round int) bool {
	return m.BracketSide == GrandFinalBracket && m.RoundNumber == round
}

func (m Match) clone() Match {
	c := m
	c.Team1ID = cloneID(m.Team1ID)
	c.Team2ID = cloneID(m.Team2ID)
	c.WinnerID = cloneID(m.WinnerID)
	c.LoserID = cloneID(m.LoserID)
	return c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
