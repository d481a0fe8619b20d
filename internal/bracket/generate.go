package bracket

import (
	"github.com/rs/zerolog/log"
)

// Generated is everything a stage needs persisted in one transaction.
type Generated struct {
	Stage   Stage
	Entries []Entry
	Matches []Match
}

// Generate seeds teams into stage and builds its initial match graph with
// every bye already resolved. Nothing is returned on error.
func Generate(stage Stage, teams []Entry) (*Generated, error) {
	if err := stage.Validate(); err != nil {
		return nil, err
	}
	entries, err := SeedEntries(&stage, teams)
	if err != nil {
		return nil, err
	}

	var matches []Match
	var rounds int
	switch stage.Format {
	case SingleElimination:
		matches, rounds = singleElimination(&stage, entries)
	case DoubleElimination:
		matches, rounds = doubleElimination(&stage, entries)
	case RoundRobin:
		matches, rounds = roundRobin(&stage, entries)
	case Swiss:
		matches = NextSwissRound(&stage, entries, nil)
		rounds = stage.SwissWinsRequired + stage.SwissLossesRequired - 1
	case GSL:
		matches, rounds, err = gsl(&stage, entries)
		if err != nil {
			return nil, err
		}
	default:
		return nil, Errorf(KindInvalidConfig, "stage format %q cannot be generated", stage.Format)
	}

	stage.BracketType = BracketTypeFor(stage.Format)
	stage.TeamCount = len(entries)
	stage.RoundCount = rounds
	stage.Status = StageActive

	g := NewGraph(matches)
	if err := g.Settle(); err != nil {
		return nil, err
	}

	log.Info().
		Str("stage_id", stage.ID.String()).
		Str("format", string(stage.Format)).
		Int("teams", len(entries)).
		Int("matches", len(matches)).
		Msg("bracket generated")

	return &Generated{Stage: stage, Entries: entries, Matches: g.Matches()}, nil
}
