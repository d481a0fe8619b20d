package bracket

import "fmt"

// roundRobin schedules every pair once per leg with the circle method: seed 1
// stays fixed while the rest rotate, and an odd field gets a dummy whose
// opponent sits the round out. The second leg replays the first with slots swapped.
func roundRobin(stage *Stage, entries []Entry) ([]Match, int) {
	ring := make([]int, len(entries))
	for i := range ring {
		ring[i] = i
	}
	if len(ring)%2 != 0 {
		ring = append(ring, -1)
	}
	n := len(ring)
	perLeg := n - 1

	type pairing struct{ home, away int }
	schedule := make([][]pairing, perLeg)
	for r := 0; r < perLeg; r++ {
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a < 0 || b < 0 {
				continue
			}
			// the fixed seed would otherwise always take slot 1
			if i == 0 && r%2 == 1 {
				a, b = b, a
			}
			schedule[r] = append(schedule[r], pairing{a, b})
		}
		ring = append([]int{ring[0], ring[n-1]}, ring[1:n-1]...)
	}

	var matches []Match
	for leg := 0; leg < stage.Legs; leg++ {
		for r, pairs := range schedule {
			round := leg*perLeg + r + 1
			for i, p := range pairs {
				home, away := entries[p.home].TeamID, entries[p.away].TeamID
				if leg == 1 {
					home, away = away, home
				}
				m := newMatch(stage, RoundRobinBracket, round, i+1, stage.BestOf, fmt.Sprintf("RR%d-%d", round, i+1))
				m.Team1ID = &home
				m.Team2ID = &away
				matches = append(matches, m)
			}
		}
	}
	return matches, perLeg * stage.Legs
}
