package bracket

import (
	"fmt"

	"github.com/AdamBeresnev/op-bracket/internal/utils"
)

// doubleElimination adds a lower bracket and a two-match grand final to the
// upper tree. Lower round 2j-1 plays lower survivors against each other (or
// upper round 1 losers when j = 1); lower round 2j takes those winners in
// slot 1 against the losers dropping from upper round j+1 in slot 2, crossed
// so rematches are pushed as late as possible.
func doubleElimination(stage *Stage, entries []Entry) ([]Match, int) {
	upper := buildUpperBracket(stage, entries)
	k := upper.depth()
	bracketSize := calcBracketSize(len(entries))

	lowerRounds := 2 * (k - 1)
	lower := make([][]Match, lowerRounds+1)
	for j := 1; j <= k-1; j++ {
		count := bracketSize >> (j + 1)
		for _, r := range []int{2*j - 1, 2 * j} {
			for m := 1; m <= count; m++ {
				lower[r] = append(lower[r], newMatch(stage, LowerBracket, r, m, stage.BestOf, fmt.Sprintf("L%d-%d", r, m)))
			}
		}
	}

	gf1 := newMatch(stage, GrandFinalBracket, 1, 1, stage.GrandFinalBestOf, "GF1")
	gf2 := newMatch(stage, GrandFinalBracket, 2, 1, stage.GrandFinalBestOf, "GF2")

	link := func(winner bool, from *Match, to *Match, slot int) {
		id := to.ID
		if winner {
			from.WinnerNextMatchID = &id
			from.WinnerNextSlot = utils.Ptr(slot)
			return
		}
		from.LoserNextMatchID = &id
		from.LoserNextSlot = utils.Ptr(slot)
	}

	final := upper.at(k, 1)
	link(true, final, &gf1, 1)

	if k == 1 {
		link(false, final, &gf1, 2)
	} else {
		for i := 1; i <= len(upper.rounds[1]); i++ {
			link(false, upper.at(1, i), &lower[1][(i-1)/2], 2-i%2)
		}
		for j := 1; j <= k-1; j++ {
			odd, even := lower[2*j-1], lower[2*j]
			count := len(even)
			for m := 1; m <= count; m++ {
				link(true, &odd[m-1], &even[m-1], 1)
				link(false, upper.at(j+1, m), &even[count-m], 2)
			}
			if 2*j == lowerRounds {
				link(true, &even[0], &gf1, 2)
				continue
			}
			next := lower[2*j+1]
			for m := 1; m <= count; m++ {
				link(true, &even[m-1], &next[(m-1)/2], 2-m%2)
			}
		}
	}

	matches := upper.matches
	for r := 1; r <= lowerRounds; r++ {
		matches = append(matches, lower[r]...)
	}
	matches = append(matches, gf1, gf2)
	return matches, k + lowerRounds + 2
}
