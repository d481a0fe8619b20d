package bracket

import (
	"sort"

	"github.com/google/uuid"
)

type Standing struct {
	Rank          int       `json:"rank"`
	TeamID        uuid.UUID `json:"team_id"`
	Seed          int       `json:"seed"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	TiebreakValue float64   `json:"tiebreak_value"`
}

// ComputeStandings ranks entries by wins. Two teams level on wins are split by
// their single decisive meeting when there is one; otherwise (and for larger
// groups) strength of schedule decides, then seed.
func ComputeStandings(entries []Entry, matches []Match) []Standing {
	idx := entryIndex(entries)
	rows := make(map[uuid.UUID]*Standing, len(entries))
	faced := make(map[uuid.UUID][]float64, len(entries))
	for _, e := range entries {
		rows[e.TeamID] = &Standing{TeamID: e.TeamID, Seed: e.Seed}
	}

	for _, m := range matches {
		if !m.Terminal() || m.WinnerID == nil {
			continue
		}
		if r := rows[*m.WinnerID]; r != nil {
			r.Wins++
		}
		if m.LoserID != nil {
			if r := rows[*m.LoserID]; r != nil {
				r.Losses++
			}
		}
		if m.IsBye || m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		faced[*m.Team1ID] = append(faced[*m.Team1ID], idx[*m.Team2ID].Rating)
		faced[*m.Team2ID] = append(faced[*m.Team2ID], idx[*m.Team1ID].Rating)
	}

	out := make([]Standing, 0, len(rows))
	for _, e := range entries {
		r := rows[e.TeamID]
		if ratings := faced[e.TeamID]; len(ratings) > 0 {
			sum := 0.0
			for _, v := range ratings {
				sum += v
			}
			r.TiebreakValue = sum / float64(len(ratings))
		}
		out = append(out, *r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.TiebreakValue != b.TiebreakValue {
			return a.TiebreakValue > b.TiebreakValue
		}
		return a.Seed < b.Seed
	})

	for i := 0; i+1 < len(out); i++ {
		if out[i].Wins != out[i+1].Wins {
			continue
		}
		if i+2 < len(out) && out[i+2].Wins == out[i].Wins {
			// three or more level on wins: skip the whole group
			for i+1 < len(out) && out[i+1].Wins == out[i].Wins {
				i++
			}
			continue
		}
		if i > 0 && out[i-1].Wins == out[i].Wins {
			continue
		}
		if w := headToHead(matches, out[i].TeamID, out[i+1].TeamID); w != nil && *w == out[i+1].TeamID {
			out[i], out[i+1] = out[i+1], out[i]
		}
		i++
	}

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// headToHead returns the winner of the only decisive match between a and b, if exactly one exists.
func headToHead(matches []Match, a, b uuid.UUID) *uuid.UUID {
	var winner *uuid.UUID
	count := 0
	for _, m := range matches {
		if !m.Terminal() || m.WinnerID == nil || m.IsBye {
			continue
		}
		if m.HasTeam(a) && m.HasTeam(b) {
			count++
			winner = m.WinnerID
		}
	}
	if count != 1 {
		return nil
	}
	return winner
}
