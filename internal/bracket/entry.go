package bracket

import "github.com/google/uuid"

// Entry is a team registered into a stage with its seed and the rating it was seeded with.
type Entry struct {
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`
	TeamID  uuid.UUID `db:"team_id" json:"team_id"`
	Name    string    `db:"name" json:"name"`
	Seed    int       `db:"seed" json:"seed"`
	Rating  float64   `db:"rating" json:"rating"`
}

func entryIndex(entries []Entry) map[uuid.UUID]Entry {
	idx := make(map[uuid.UUID]Entry, len(entries))
	for _, e := range entries {
		idx[e.TeamID] = e
	}
	return idx
}
