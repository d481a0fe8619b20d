package bracket

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/google/uuid"
)

// calcBracketSize is the smallest power of two that seats count teams.
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}
	return 1 << bits.Len(uint(count-1))
}

// generateRound1Pairs returns zero-based seed indexes for each first round match.
// Every doubling of the field slots the new seed opposite the one it mirrors,
// so seeds 1 and 2 can only meet in the final.
func generateRound1Pairs(bracketSize int) [][2]int {
	order := []int{0}
	for size := 2; size <= bracketSize; size *= 2 {
		next := make([]int, 0, size)
		for _, seed := range order {
			next = append(next, seed, size-1-seed)
		}
		order = next
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i+1 < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

func newMatch(stage *Stage, side BracketType, round, number, bestOf int, slot string) Match {
	now := time.Now().UTC()
	return Match{
		ID:          uuid.New(),
		StageID:     stage.ID,
		BracketSide: side,
		RoundNumber: round,
		MatchNumber: number,
		BracketSlot: slot,
		Status:      MatchPending,
		BestOf:      bestOf,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// eliminationTree is an upper bracket with rounds[r][i] indexing into matches.
type eliminationTree struct {
	matches []Match
	rounds  [][]int
}

func (t *eliminationTree) at(round, number int) *Match {
	return &t.matches[t.rounds[round][number-1]]
}

func (t *eliminationTree) depth() int {
	return len(t.rounds) - 1
}

// buildUpperBracket wires the winners tree and seats the seeds into round 1.
// Seed indexes past the field size become void slots, which settle into byes.
func buildUpperBracket(stage *Stage, entries []Entry) *eliminationTree {
	bracketSize := calcBracketSize(len(entries))
	totalRounds := bits.TrailingZeros(uint(bracketSize))

	tree := &eliminationTree{rounds: make([][]int, totalRounds+1)}
	nextRoundMatchIDs := make(map[int]uuid.UUID)

	// Significantly easier to start from the last round and work backwards
	for r := totalRounds; r >= 1; r-- {
		matchesInCurrentRound := bracketSize >> r
		currentRoundMatchIDs := make(map[int]uuid.UUID)

		for i := 0; i < matchesInCurrentRound; i++ {
			matchOrder := i + 1
			m := newMatch(stage, UpperBracket, r, matchOrder, stage.BestOf, fmt.Sprintf("U%d-%d", r, matchOrder))

			if r < totalRounds {
				parentMatchOrder := (matchOrder + 1) / 2
				parentID := nextRoundMatchIDs[parentMatchOrder]

				m.WinnerNextMatchID = &parentID

				if matchOrder%2 != 0 {
					m.WinnerNextSlot = utils.Ptr(1)
				} else {
					m.WinnerNextSlot = utils.Ptr(2)
				}
			}

			tree.rounds[r] = append(tree.rounds[r], len(tree.matches))
			tree.matches = append(tree.matches, m)
			currentRoundMatchIDs[matchOrder] = m.ID
		}
		nextRoundMatchIDs = currentRoundMatchIDs
	}

	for i, pair := range generateRound1Pairs(bracketSize) {
		m := tree.at(1, i+1)
		seat(m, 1, pair[0], entries)
		seat(m, 2, pair[1], entries)
	}
	return tree
}

func seat(m *Match, slot, idx int, entries []Entry) {
	if idx < len(entries) {
		id := entries[idx].TeamID
		m.setTeam(slot, &id)
		return
	}
	m.setVoid(slot, true)
}

func singleElimination(stage *Stage, entries []Entry) ([]Match, int) {
	tree := buildUpperBracket(stage, entries)
	return tree.matches, tree.depth()
}
