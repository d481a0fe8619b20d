package bracket

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInsufficientTeams      Kind = "insufficient_teams"
	KindInvalidTeamCount       Kind = "invalid_team_count"
	KindInvalidSeeding         Kind = "invalid_seeding"
	KindInvalidConfig          Kind = "invalid_config"
	KindAmbiguousResult        Kind = "ambiguous_result"
	KindInvalidScore           Kind = "invalid_score"
	KindStageInProgress        Kind = "stage_in_progress"
	KindMatchNotReady          Kind = "match_not_ready"
	KindMatchAlreadyCompleted  Kind = "match_already_completed"
	KindInvalidTransition      Kind = "invalid_transition"
	KindConcurrentModification Kind = "concurrent_modification"
	KindDownstreamInProgress   Kind = "downstream_in_progress"
	KindNotFound               Kind = "not_found"
)

// Error is the terse, structured failure returned to callers of the engine.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInsufficientTeams      = &Error{Kind: KindInsufficientTeams}
	ErrInvalidTeamCount       = &Error{Kind: KindInvalidTeamCount}
	ErrInvalidSeeding         = &Error{Kind: KindInvalidSeeding}
	ErrInvalidConfig          = &Error{Kind: KindInvalidConfig}
	ErrAmbiguousResult        = &Error{Kind: KindAmbiguousResult}
	ErrInvalidScore           = &Error{Kind: KindInvalidScore}
	ErrStageInProgress        = &Error{Kind: KindStageInProgress}
	ErrMatchNotReady          = &Error{Kind: KindMatchNotReady}
	ErrMatchAlreadyCompleted  = &Error{Kind: KindMatchAlreadyCompleted}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrDownstreamInProgress   = &Error{Kind: KindDownstreamInProgress}
	ErrNotFound               = &Error{Kind: KindNotFound}
)

func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
