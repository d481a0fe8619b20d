package bracket

import (
	"time"

	"github.com/google/uuid"
)

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
)

// BracketType doubles as the side a match sits on inside a stage.
type BracketType string

const (
	UpperBracket      BracketType = "upper"
	LowerBracket      BracketType = "lower"
	GrandFinalBracket BracketType = "grand_final"
	SwissBracket      BracketType = "swiss"
	RoundRobinBracket BracketType = "round_robin"
	GroupBracket      BracketType = "group"
)

type SeedingMethod string

const (
	SeedByRating SeedingMethod = "rating"
	SeedManual   SeedingMethod = "manual"
	SeedRandom   SeedingMethod = "random"
)

type Stage struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	TournamentID  uuid.UUID     `db:"tournament_id" json:"tournament_id"`
	Sequence      int           `db:"sequence" json:"sequence"`
	Name          string        `db:"name" json:"name"`
	Format        Format        `db:"format" json:"format"`
	BracketType   BracketType   `db:"bracket_type" json:"bracket_type"`
	Status        StageStatus   `db:"status" json:"status"`
	SeedingMethod SeedingMethod `db:"seeding_method" json:"seeding_method"`
	TeamCount     int           `db:"team_count" json:"team_count"`
	RoundCount    int           `db:"round_count" json:"round_count"`

	BestOf              int   `db:"best_of" json:"best_of"`
	GrandFinalBestOf    int   `db:"grand_final_best_of" json:"grand_final_best_of"`
	SwissWinsRequired   int   `db:"swiss_wins_required" json:"swiss_wins_required"`
	SwissLossesRequired int   `db:"swiss_losses_required" json:"swiss_losses_required"`
	SwissDecidingBestOf int   `db:"swiss_deciding_best_of" json:"swiss_deciding_best_of"`
	Legs                int   `db:"legs" json:"legs"`
	RandomSeed          int64 `db:"random_seed" json:"random_seed"`

	// A dependent stage is materialized from the top AdvanceCount teams of its source.
	SourceStageID *uuid.UUID `db:"source_stage_id" json:"source_stage_id,omitempty"`
	AdvanceCount  int        `db:"advance_count" json:"advance_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func BracketTypeFor(f Format) BracketType {
	switch f {
	case RoundRobin:
		return RoundRobinBracket
	case Swiss:
		return SwissBracket
	case GSL:
		return GroupBracket
	default:
		return UpperBracket
	}
}

// Validate checks the format-specific options of a stage before any team is seeded.
func (s *Stage) Validate() error {
	if !s.Format.Valid() || s.Format == Custom {
		return Errorf(KindInvalidConfig, "stage format %q cannot be generated", s.Format)
	}
	if s.BestOf == 0 {
		s.BestOf = 1
	}
	if err := validBestOf(s.BestOf); err != nil {
		return err
	}
	if s.GrandFinalBestOf == 0 {
		s.GrandFinalBestOf = s.BestOf
	}
	if err := validBestOf(s.GrandFinalBestOf); err != nil {
		return err
	}
	if s.SeedingMethod == "" {
		s.SeedingMethod = SeedByRating
	}
	switch s.SeedingMethod {
	case SeedByRating, SeedManual, SeedRandom:
	default:
		return Errorf(KindInvalidConfig, "unknown seeding method %q", s.SeedingMethod)
	}
	if s.Legs == 0 {
		s.Legs = 1
	}
	if s.Legs < 1 || s.Legs > 2 {
		return Errorf(KindInvalidConfig, "round robin legs must be 1 or 2, got %d", s.Legs)
	}
	if s.Format == Swiss {
		if s.SwissWinsRequired < 1 || s.SwissLossesRequired < 1 {
			return Errorf(KindInvalidConfig, "swiss stage needs positive wins and losses required")
		}
		if s.SwissDecidingBestOf != 0 {
			if err := validBestOf(s.SwissDecidingBestOf); err != nil {
				return err
			}
		}
	}
	if s.AdvanceCount < 0 {
		return Errorf(KindInvalidConfig, "advance count cannot be negative")
	}
	return nil
}

func validBestOf(n int) error {
	if n < 1 || n%2 == 0 {
		return Errorf(KindInvalidConfig, "best_of must be an odd number >= 1, got %d", n)
	}
	return nil
}
