package bracket

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Correction is the audit record of an administrative result override.
type Correction struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	MatchID       uuid.UUID  `db:"match_id" json:"match_id"`
	OldTeam1Score int        `db:"old_team1_score" json:"old_team1_score"`
	OldTeam2Score int        `db:"old_team2_score" json:"old_team2_score"`
	NewTeam1Score int        `db:"new_team1_score" json:"new_team1_score"`
	NewTeam2Score int        `db:"new_team2_score" json:"new_team2_score"`
	OldWinnerID   *uuid.UUID `db:"old_winner_id" json:"old_winner_id"`
	NewWinnerID   *uuid.UUID `db:"new_winner_id" json:"new_winner_id"`
	// Comma separated ids of the downstream matches that were unwound.
	RetractedMatchIDs string    `db:"retracted_match_ids" json:"retracted_match_ids"`
	RequestedBy       string    `db:"requested_by" json:"requested_by"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

func NewCorrection(before, after *Match, retracted []uuid.UUID, actor string) Correction {
	ids := make([]string, len(retracted))
	for i, id := range retracted {
		ids[i] = id.String()
	}
	return Correction{
		ID:                uuid.New(),
		MatchID:           after.ID,
		OldTeam1Score:     before.Team1Score,
		OldTeam2Score:     before.Team2Score,
		NewTeam1Score:     after.Team1Score,
		NewTeam2Score:     after.Team2Score,
		OldWinnerID:       cloneID(before.WinnerID),
		NewWinnerID:       cloneID(after.WinnerID),
		RetractedMatchIDs: strings.Join(ids, ","),
		RequestedBy:       actor,
		CreatedAt:         time.Now().UTC(),
	}
}
