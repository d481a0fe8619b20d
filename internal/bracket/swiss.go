package bracket

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SwissState string

const (
	SwissActive     SwissState = "active"
	SwissQualified  SwissState = "qualified"
	SwissEliminated SwissState = "eliminated"
)

// SwissRecord is a team's running record, derived from the stage's finished matches.
type SwissRecord struct {
	TeamID    uuid.UUID  `json:"team_id"`
	Seed      int        `json:"seed"`
	Wins      int        `json:"wins"`
	Losses    int        `json:"losses"`
	HadBye    bool       `json:"had_bye"`
	State     SwissState `json:"state"`
	opponents map[uuid.UUID]int
}

// SwissRecords returns one record per entry ranked by wins, then fewest losses, then seed.
func SwissRecords(stage *Stage, entries []Entry, matches []Match) []SwissRecord {
	byTeam := make(map[uuid.UUID]*SwissRecord, len(entries))
	records := make([]*SwissRecord, 0, len(entries))
	for _, e := range entries {
		r := &SwissRecord{TeamID: e.TeamID, Seed: e.Seed, opponents: make(map[uuid.UUID]int)}
		byTeam[e.TeamID] = r
		records = append(records, r)
	}

	for _, m := range matches {
		if m.Team1ID != nil && m.Team2ID != nil {
			if r := byTeam[*m.Team1ID]; r != nil {
				r.opponents[*m.Team2ID]++
			}
			if r := byTeam[*m.Team2ID]; r != nil {
				r.opponents[*m.Team1ID]++
			}
		}
		if !m.Terminal() || m.WinnerID == nil {
			continue
		}
		if r := byTeam[*m.WinnerID]; r != nil {
			r.Wins++
			if m.IsBye {
				r.HadBye = true
			}
		}
		if m.LoserID != nil {
			if r := byTeam[*m.LoserID]; r != nil {
				r.Losses++
			}
		}
	}

	out := make([]SwissRecord, 0, len(records))
	for _, r := range records {
		switch {
		case r.Wins >= stage.SwissWinsRequired:
			r.State = SwissQualified
		case r.Losses >= stage.SwissLossesRequired:
			r.State = SwissEliminated
		default:
			r.State = SwissActive
		}
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses < b.Losses
		}
		return a.Seed < b.Seed
	})
	return out
}

// SwissFinished reports whether every team has qualified or been eliminated.
func SwissFinished(records []SwissRecord) bool {
	for _, r := range records {
		if r.State == SwissActive {
			return false
		}
	}
	return true
}

type swissPair struct {
	a, b   int
	repeat bool
}

// NextSwissRound pairs the active teams for the round after the latest one in
// matches. Round 1 falls out of the same rules since every record is 0-0.
func NextSwissRound(stage *Stage, entries []Entry, matches []Match) []Match {
	records := SwissRecords(stage, entries, matches)
	round := 1
	for _, m := range matches {
		if m.RoundNumber >= round {
			round = m.RoundNumber + 1
		}
	}

	var active []SwissRecord
	for _, r := range records {
		if r.State == SwissActive {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil
	}

	var bye *SwissRecord
	if len(active)%2 != 0 {
		pick := len(active) - 1
		for i := len(active) - 1; i >= 0; i-- {
			if !active[i].HadBye {
				pick = i
				break
			}
		}
		r := active[pick]
		bye = &r
		active = append(active[:pick:pick], active[pick+1:]...)
	}

	pairs := pairSwiss(active)

	var out []Match
	for i, p := range pairs {
		a, b := active[p.a], active[p.b]
		m := newMatch(stage, SwissBracket, round, i+1, swissBestOf(stage, a, b), fmt.Sprintf("S%d-%d", round, i+1))
		t1, t2 := a.TeamID, b.TeamID
		m.Team1ID, m.Team2ID = &t1, &t2
		if p.repeat {
			log.Warn().
				Str("stage_id", stage.ID.String()).
				Str("team1_id", t1.String()).
				Str("team2_id", t2.String()).
				Int("round", round).
				Msg("swiss pairing fell back to a rematch")
		}
		out = append(out, m)
	}
	if bye != nil {
		m := newMatch(stage, SwissBracket, round, len(out)+1, stage.BestOf, fmt.Sprintf("S%d-%d", round, len(out)+1))
		t := bye.TeamID
		m.Team1ID = &t
		m.Team2Void = true
		out = append(out, m)
	}
	return out
}

func swissBestOf(stage *Stage, a, b SwissRecord) int {
	if stage.SwissDecidingBestOf == 0 {
		return stage.BestOf
	}
	deciding := func(r SwissRecord) bool {
		return r.Wins == stage.SwissWinsRequired-1 || r.Losses == stage.SwissLossesRequired-1
	}
	if deciding(a) || deciding(b) {
		return stage.SwissDecidingBestOf
	}
	return stage.BestOf
}

// swissSearchLimit caps the backtracking per repeat budget before relaxing it.
const swissSearchLimit = 200000

// pairSwiss pairs a ranked, even-sized list. Each team takes the lowest ranked
// opponent of its own win bucket it has not met, falling through to the best
// ranked team below when the bucket runs out. Rematches are allowed only once
// no pairing without them exists, and then as few as possible.
func pairSwiss(ranked []SwissRecord) []swissPair {
	for _, budget := range []int{0, 1, len(ranked)} {
		steps := 0
		used := make([]bool, len(ranked))
		if pairs, ok := pairFrom(ranked, used, budget, &steps); ok {
			return pairs
		}
	}
	// unreachable: an unlimited budget always pairs an even list
	return nil
}

func pairFrom(ranked []SwissRecord, used []bool, budget int, steps *int) ([]swissPair, bool) {
	first := -1
	for i := range ranked {
		if !used[i] {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, true
	}
	*steps++
	if *steps > swissSearchLimit {
		return nil, false
	}

	used[first] = true
	defer func() { used[first] = false }()

	for _, c := range swissCandidates(ranked, used, first) {
		repeat := ranked[first].opponents[ranked[c].TeamID] > 0
		if repeat && budget == 0 {
			continue
		}
		left := budget
		if repeat {
			left--
		}
		used[c] = true
		rest, ok := pairFrom(ranked, used, left, steps)
		used[c] = false
		if ok {
			return append([]swissPair{{a: first, b: c, repeat: repeat}}, rest...), true
		}
	}
	return nil, false
}

func swissCandidates(ranked []SwissRecord, used []bool, team int) []int {
	var same, below []int
	for i := len(ranked) - 1; i > team; i-- {
		if used[i] {
			continue
		}
		if ranked[i].Wins == ranked[team].Wins {
			same = append(same, i)
		}
	}
	for i := team + 1; i < len(ranked); i++ {
		if !used[i] && ranked[i].Wins != ranked[team].Wins {
			below = append(below, i)
		}
	}
	return append(same, below...)
}
