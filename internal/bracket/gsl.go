package bracket

import "github.com/AdamBeresnev/op-bracket/internal/utils"

const gslTeams = 4

// gsl builds the fixed five-match group. The winners match winner and the
// decider winner advance out of the group.
func gsl(stage *Stage, entries []Entry) ([]Match, int, error) {
	if len(entries) != gslTeams {
		return nil, 0, Errorf(KindInvalidTeamCount, "gsl group needs exactly %d teams, got %d", gslTeams, len(entries))
	}

	openingA := newMatch(stage, GroupBracket, 1, 1, stage.BestOf, "Opening A")
	openingB := newMatch(stage, GroupBracket, 1, 2, stage.BestOf, "Opening B")
	winners := newMatch(stage, GroupBracket, 2, 1, stage.BestOf, "Winners")
	elimination := newMatch(stage, GroupBracket, 2, 2, stage.BestOf, "Elimination")
	decider := newMatch(stage, GroupBracket, 3, 1, stage.BestOf, "Decider")

	seat(&openingA, 1, 0, entries)
	seat(&openingA, 2, 3, entries)
	seat(&openingB, 1, 1, entries)
	seat(&openingB, 2, 2, entries)

	winnerTo := func(from *Match, to Match, slot int) {
		id := to.ID
		from.WinnerNextMatchID = &id
		from.WinnerNextSlot = utils.Ptr(slot)
	}
	loserTo := func(from *Match, to Match, slot int) {
		id := to.ID
		from.LoserNextMatchID = &id
		from.LoserNextSlot = utils.Ptr(slot)
	}

	winnerTo(&openingA, winners, 1)
	loserTo(&openingA, elimination, 1)
	winnerTo(&openingB, winners, 2)
	loserTo(&openingB, elimination, 2)
	loserTo(&winners, decider, 1)
	winnerTo(&elimination, decider, 2)

	return []Match{openingA, openingB, winners, elimination, decider}, 3, nil
}
