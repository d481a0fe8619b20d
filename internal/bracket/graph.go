package bracket

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Graph is an in-memory copy of one stage's matches. Advancement, bye resolution
// and retraction mutate the copy; callers persist Changed and Added once the whole
// operation has validated, so a failure leaves the stored bracket untouched.
type Graph struct {
	matches map[uuid.UUID]*Match
	order   []uuid.UUID
	changed map[uuid.UUID]bool
	added   map[uuid.UUID]bool
	removed []uuid.UUID
}

func NewGraph(matches []Match) *Graph {
	g := &Graph{
		matches: make(map[uuid.UUID]*Match, len(matches)),
		changed: make(map[uuid.UUID]bool),
		added:   make(map[uuid.UUID]bool),
	}
	for _, m := range matches {
		c := m.clone()
		g.matches[c.ID] = &c
		g.order = append(g.order, c.ID)
	}
	return g
}

// Match returns the live pointer for id; changes through it must be followed by Touch.
func (g *Graph) Match(id uuid.UUID) *Match {
	return g.matches[id]
}

func (g *Graph) Matches() []Match {
	out := make([]Match, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.matches[id].clone())
	}
	return out
}

// Changed returns existing matches modified since the graph was built.
func (g *Graph) Changed() []Match {
	var out []Match
	for _, id := range g.order {
		if g.changed[id] && !g.added[id] {
			out = append(out, g.matches[id].clone())
		}
	}
	return out
}

func (g *Graph) Added() []Match {
	var out []Match
	for _, id := range g.order {
		if g.added[id] {
			out = append(out, g.matches[id].clone())
		}
	}
	return out
}

func (g *Graph) Add(matches ...Match) {
	for _, m := range matches {
		c := m.clone()
		g.matches[c.ID] = &c
		g.order = append(g.order, c.ID)
		g.added[c.ID] = true
	}
}

// Removed returns the stored matches dropped by Remove.
func (g *Graph) Removed() []uuid.UUID {
	return append([]uuid.UUID(nil), g.removed...)
}

// Remove drops matches from the stage. Matches added in the same operation
// simply disappear; stored ones are reported by Removed.
func (g *Graph) Remove(ids ...uuid.UUID) {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.matches[id]; !ok {
			continue
		}
		drop[id] = true
		delete(g.matches, id)
		delete(g.changed, id)
		if g.added[id] {
			delete(g.added, id)
		} else {
			g.removed = append(g.removed, id)
		}
	}
	order := g.order[:0]
	for _, id := range g.order {
		if !drop[id] {
			order = append(order, id)
		}
	}
	g.order = order
}

// DropRoundsAfter removes every match paired after round. Unplayed rounds can
// be paired again from the corrected records; a started match blocks it.
func (g *Graph) DropRoundsAfter(round int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, id := range g.order {
		m := g.matches[id]
		if m.RoundNumber <= round {
			continue
		}
		if m.Started() {
			return nil, Errorf(KindDownstreamInProgress, "match %s of round %d has already started", m.BracketSlot, m.RoundNumber)
		}
		ids = append(ids, id)
	}
	g.Remove(ids...)
	return ids, nil
}

func (g *Graph) Touch(id uuid.UUID) {
	g.changed[id] = true
}

func (g *Graph) AllTerminal() bool {
	for _, m := range g.matches {
		if !m.Terminal() {
			return false
		}
	}
	return true
}

func (g *Graph) find(pred func(*Match) bool) *Match {
	for _, id := range g.order {
		if m := g.matches[id]; pred(m) {
			return m
		}
	}
	return nil
}

// Settle resolves every pending match whose slots are already decided: both
// teams known makes it ready, a void opposite slot makes it a bye.
func (g *Graph) Settle() error {
	for _, id := range g.order {
		if err := g.settle(g.matches[id]); err != nil {
			return err
		}
	}
	return nil
}

// Advance pushes the result of a terminal match into the matches its
// winner and loser pointers address.
func (g *Graph) Advance(id uuid.UUID) error {
	m := g.matches[id]
	if m == nil {
		return Errorf(KindNotFound, "match %s is not part of this stage", id)
	}
	if !m.Terminal() {
		return Errorf(KindInvalidTransition, "match %s is %s, not finished", m.BracketSlot, m.Status)
	}

	if m.WinnerNextMatchID != nil {
		var err error
		if m.WinnerID != nil {
			err = g.place(*m.WinnerNextMatchID, m.WinnerNextSlot, *m.WinnerID)
		} else {
			err = g.voidSlot(*m.WinnerNextMatchID, m.WinnerNextSlot)
		}
		if err != nil {
			return err
		}
	}
	if m.LoserNextMatchID != nil {
		var err error
		if m.LoserID != nil {
			err = g.place(*m.LoserNextMatchID, m.LoserNextSlot, *m.LoserID)
		} else {
			err = g.voidSlot(*m.LoserNextMatchID, m.LoserNextSlot)
		}
		if err != nil {
			return err
		}
	}
	if m.isGrandFinal(1) {
		return g.resolveReset(m)
	}
	return nil
}

func (g *Graph) place(targetID uuid.UUID, slot *int, team uuid.UUID) error {
	t := g.matches[targetID]
	if t == nil {
		return Errorf(KindNotFound, "advancement target %s is missing", targetID)
	}

	s := 0
	if slot != nil {
		s = *slot
	} else {
		if t.HasTeam(team) {
			return nil
		}
		// upper position fills first
		for _, candidate := range []int{1, 2} {
			if t.team(candidate) == nil && !t.void(candidate) {
				s = candidate
				break
			}
		}
		if s == 0 {
			return Errorf(KindInvalidTransition, "match %s has no open slot for team %s", t.BracketSlot, team)
		}
	}

	if cur := t.team(s); cur != nil {
		if *cur == team {
			return nil
		}
		return Errorf(KindInvalidTransition, "slot %d of match %s already holds team %s", s, t.BracketSlot, cur)
	}
	if t.void(s) || (t.Terminal() && !t.voided()) {
		return Errorf(KindInvalidTransition, "match %s cannot take team %s in slot %d", t.BracketSlot, team, s)
	}
	if other := t.team(3 - s); other != nil && *other == team {
		return Errorf(KindInvalidTransition, "team %s would meet itself in match %s", team, t.BracketSlot)
	}

	id := team
	t.setTeam(s, &id)
	g.Touch(t.ID)
	if t.Terminal() {
		// the team is recorded but the match is over; it goes no further
		return nil
	}
	return g.settle(t)
}

func (g *Graph) voidSlot(targetID uuid.UUID, slot *int) error {
	t := g.matches[targetID]
	if t == nil {
		return Errorf(KindNotFound, "advancement target %s is missing", targetID)
	}
	s := 0
	if slot != nil {
		s = *slot
	} else {
		for _, candidate := range []int{1, 2} {
			if t.team(candidate) == nil && !t.void(candidate) {
				s = candidate
				break
			}
		}
	}
	if s == 0 || t.void(s) {
		return nil
	}
	t.setVoid(s, true)
	g.Touch(t.ID)
	return g.settle(t)
}

func (g *Graph) settle(t *Match) error {
	if t.Status != MatchPending {
		return nil
	}

	switch {
	case t.Team1ID != nil && t.Team2ID != nil:
		t.Status = MatchReady
		g.Touch(t.ID)
		return nil
	case t.Team1Void && t.Team2Void:
		t.Status = MatchCancelled
		t.IsBye = true
		g.Touch(t.ID)
		return g.Advance(t.ID)
	case t.Team1ID != nil && t.Team2Void, t.Team2ID != nil && t.Team1Void:
		winner := t.Team1ID
		if winner == nil {
			winner = t.Team2ID
		}
		t.WinnerID = cloneID(winner)
		t.LoserID = nil
		t.Status = MatchCompleted
		t.IsBye = true
		g.Touch(t.ID)
		log.Debug().Str("match_id", t.ID.String()).Str("slot", t.BracketSlot).Str("team_id", winner.String()).Msg("bye auto-resolved")
		return g.Advance(t.ID)
	}
	return nil
}

// The reset match only plays when the lower-bracket finalist (slot 2) takes the first grand final.
func (g *Graph) resolveReset(gf1 *Match) error {
	gf2 := g.find(func(m *Match) bool { return m.isGrandFinal(2) })
	if gf2 == nil || gf2.Status != MatchPending {
		return nil
	}

	if gf1.LoserID != nil && gf1.Team2ID != nil && gf1.WinnerID != nil && *gf1.WinnerID == *gf1.Team2ID {
		gf2.Team1ID = cloneID(gf1.Team1ID)
		gf2.Team2ID = cloneID(gf1.Team2ID)
		gf2.Status = MatchReady
		g.Touch(gf2.ID)
		log.Info().Str("match_id", gf2.ID.String()).Msg("grand final reset activated")
		return nil
	}

	gf2.Team1Void = true
	gf2.Team2Void = true
	g.Touch(gf2.ID)
	return g.settle(gf2)
}

// Retract undoes everything a terminal match pushed downstream so its result
// can be rewritten. Auto-resolved byes are unwound recursively; any affected
// match that has already been played blocks the retraction.
func (g *Graph) Retract(id uuid.UUID) ([]uuid.UUID, error) {
	m := g.matches[id]
	if m == nil {
		return nil, Errorf(KindNotFound, "match %s is not part of this stage", id)
	}
	var retracted []uuid.UUID
	if err := g.retractOutputs(m, &retracted); err != nil {
		return nil, err
	}
	return retracted, nil
}

func (g *Graph) retractOutputs(m *Match, out *[]uuid.UUID) error {
	if m.WinnerNextMatchID != nil {
		if err := g.unplace(*m.WinnerNextMatchID, m.WinnerNextSlot, m.WinnerID, out); err != nil {
			return err
		}
	}
	if m.LoserNextMatchID != nil {
		if err := g.unplace(*m.LoserNextMatchID, m.LoserNextSlot, m.LoserID, out); err != nil {
			return err
		}
	}
	if m.isGrandFinal(1) {
		gf2 := g.find(func(x *Match) bool { return x.isGrandFinal(2) })
		if gf2 == nil || (gf2.Status == MatchPending && gf2.Team1ID == nil && gf2.Team2ID == nil && !gf2.Team1Void && !gf2.Team2Void) {
			return nil
		}
		if gf2.Started() {
			return Errorf(KindDownstreamInProgress, "grand final reset %s has already started", gf2.ID)
		}
		resetMatch(gf2)
		gf2.Team1ID, gf2.Team2ID = nil, nil
		gf2.Team1Void, gf2.Team2Void = false, false
		g.Touch(gf2.ID)
		*out = append(*out, gf2.ID)
	}
	return nil
}

func (g *Graph) unplace(targetID uuid.UUID, slot *int, team *uuid.UUID, out *[]uuid.UUID) error {
	t := g.matches[targetID]
	if t == nil {
		return nil
	}

	s := 0
	if slot != nil {
		s = *slot
	} else if team != nil {
		s = t.SlotOf(*team)
	}
	if s == 0 || (t.team(s) == nil && !t.void(s)) {
		return nil
	}
	if t.Started() {
		return Errorf(KindDownstreamInProgress, "match %s (%s) has already started", t.ID, t.BracketSlot)
	}

	if t.Terminal() {
		if err := g.retractOutputs(t, out); err != nil {
			return err
		}
		resetMatch(t)
	}
	t.setTeam(s, nil)
	t.setVoid(s, false)
	if t.Status == MatchReady {
		t.Status = MatchPending
	}
	g.Touch(t.ID)
	*out = append(*out, t.ID)
	return nil
}

func resetMatch(m *Match) {
	m.Status = MatchPending
	m.WinnerID = nil
	m.LoserID = nil
	m.IsBye = false
	m.Team1Score = 0
	m.Team2Score = 0
}

// Downstream lists every match a result of id can reach, in discovery order.
func (g *Graph) Downstream(id uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{id: true}
	queue := []uuid.UUID{id}
	var out []uuid.UUID
	for len(queue) > 0 {
		m := g.matches[queue[0]]
		queue = queue[1:]
		if m == nil {
			continue
		}
		next := []*uuid.UUID{m.WinnerNextMatchID, m.LoserNextMatchID}
		if m.isGrandFinal(1) {
			if gf2 := g.find(func(x *Match) bool { return x.isGrandFinal(2) }); gf2 != nil {
				next = append(next, &gf2.ID)
			}
		}
		for _, n := range next {
			if n == nil || seen[*n] {
				continue
			}
			seen[*n] = true
			out = append(out, *n)
			queue = append(queue, *n)
		}
	}
	return out
}
