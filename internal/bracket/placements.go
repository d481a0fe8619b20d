package bracket

import (
	"sort"

	"github.com/google/uuid"
)

// Champion returns the stage winner once it is decided. Swiss and GSL stages
// produce qualifiers rather than a single winner.
func Champion(stage *Stage, entries []Entry, matches []Match) *uuid.UUID {
	switch stage.Format {
	case SingleElimination:
		for _, m := range matches {
			if m.BracketSide == UpperBracket && m.WinnerNextMatchID == nil && m.Status == MatchCompleted {
				return cloneID(m.WinnerID)
			}
		}
	case DoubleElimination:
		var gf1, gf2 *Match
		for i := range matches {
			switch {
			case matches[i].isGrandFinal(1):
				gf1 = &matches[i]
			case matches[i].isGrandFinal(2):
				gf2 = &matches[i]
			}
		}
		if gf2 != nil && gf2.Status == MatchCompleted && !gf2.IsBye {
			return cloneID(gf2.WinnerID)
		}
		if gf1 != nil && gf1.Terminal() && gf2 != nil && gf2.IsBye {
			return cloneID(gf1.WinnerID)
		}
	case RoundRobin:
		for _, m := range matches {
			if !m.Terminal() {
				return nil
			}
		}
		if s := ComputeStandings(entries, matches); len(s) > 0 {
			id := s[0].TeamID
			return &id
		}
	}
	return nil
}

// Placements orders a finished stage's teams by finishing position, best first.
// For Swiss only the qualified teams are listed, unbeaten records first.
func Placements(stage *Stage, entries []Entry, matches []Match) []uuid.UUID {
	switch stage.Format {
	case Swiss:
		losses := make(map[uuid.UUID]int)
		for _, r := range SwissRecords(stage, entries, matches) {
			if r.State == SwissQualified {
				losses[r.TeamID] = r.Losses
			}
		}
		var out []uuid.UUID
		for _, s := range ComputeStandings(entries, matches) {
			if _, ok := losses[s.TeamID]; ok {
				out = append(out, s.TeamID)
			}
		}
		// a 3-0 qualifier places above a 3-2 one
		sort.SliceStable(out, func(i, j int) bool { return losses[out[i]] < losses[out[j]] })
		return out
	case RoundRobin:
		var out []uuid.UUID
		for _, s := range ComputeStandings(entries, matches) {
			out = append(out, s.TeamID)
		}
		return out
	case GSL:
		return gslPlacements(entries, matches)
	}
	return eliminationPlacements(stage, entries, matches)
}

func gslPlacements(entries []Entry, matches []Match) []uuid.UUID {
	bySlot := make(map[string]*Match, len(matches))
	for i := range matches {
		bySlot[matches[i].BracketSlot] = &matches[i]
	}
	var ordered []*uuid.UUID
	if m := bySlot["Winners"]; m != nil {
		ordered = append(ordered, m.WinnerID)
	}
	if m := bySlot["Decider"]; m != nil {
		ordered = append(ordered, m.WinnerID, m.LoserID)
	}
	if m := bySlot["Elimination"]; m != nil {
		ordered = append(ordered, m.LoserID)
	}

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, id := range ordered {
		if id != nil && !seen[*id] {
			seen[*id] = true
			out = append(out, *id)
		}
	}
	return appendBySeed(out, seen, entries)
}

// eliminationPlacements puts the champion first, then everyone else by how
// deep they went before their elimination: grand final losses rank above any
// other round, later rounds above earlier ones, seed breaks ties.
func eliminationPlacements(stage *Stage, entries []Entry, matches []Match) []uuid.UUID {
	exit := make(map[uuid.UUID]int)
	for _, m := range matches {
		if !m.Terminal() || m.IsBye {
			continue
		}
		key := m.RoundNumber
		if m.BracketSide == GrandFinalBracket {
			key += 2000
		} else {
			key += 1000
		}
		var out []*uuid.UUID
		switch {
		case m.WinnerID == nil:
			out = append(out, m.Team1ID, m.Team2ID)
		case m.LoserNextMatchID == nil:
			out = append(out, m.LoserID)
		}
		for _, id := range out {
			if id != nil && key > exit[*id] {
				exit[*id] = key
			}
		}
	}

	seen := make(map[uuid.UUID]bool)
	var result []uuid.UUID
	if champ := Champion(stage, entries, matches); champ != nil {
		seen[*champ] = true
		result = append(result, *champ)
	}

	rest := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !seen[e.TeamID] && exit[e.TeamID] > 0 {
			rest = append(rest, e)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := exit[rest[i].TeamID], exit[rest[j].TeamID]
		if a != b {
			return a > b
		}
		return rest[i].Seed < rest[j].Seed
	})
	for _, e := range rest {
		seen[e.TeamID] = true
		result = append(result, e.TeamID)
	}
	return appendBySeed(result, seen, entries)
}

func appendBySeed(out []uuid.UUID, seen map[uuid.UUID]bool, entries []Entry) []uuid.UUID {
	rest := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !seen[e.TeamID] {
			rest = append(rest, e)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Seed < rest[j].Seed })
	for _, e := range rest {
		out = append(out, e.TeamID)
	}
	return out
}
