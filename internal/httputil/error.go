package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/rs/zerolog/log"
)

// retryAfterSeconds is sent with 503s for commands that lost the race for a match lock.
const retryAfterSeconds = "1"

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// StatusFor maps an engine error kind to the HTTP status it is reported with.
func StatusFor(kind bracket.Kind) int {
	switch kind {
	case bracket.KindInvalidConfig, bracket.KindInvalidTeamCount, bracket.KindInvalidSeeding,
		bracket.KindInvalidScore, bracket.KindInsufficientTeams:
		return http.StatusBadRequest
	case bracket.KindAmbiguousResult:
		return http.StatusUnprocessableEntity
	case bracket.KindStageInProgress, bracket.KindMatchNotReady, bracket.KindMatchAlreadyCompleted,
		bracket.KindInvalidTransition, bracket.KindDownstreamInProgress:
		return http.StatusConflict
	case bracket.KindConcurrentModification:
		return http.StatusServiceUnavailable
	case bracket.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// WriteError reports err as {kind, message}. Errors that are not engine
// errors are logged and hidden behind a generic 500.
func WriteError(w http.ResponseWriter, msg string, err error) {
	kind := bracket.KindOf(err)
	if kind == "" {
		InternalServerError(w, msg, err)
		return
	}
	status := StatusFor(kind)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	log.Warn().Err(err).Str("kind", string(kind)).Int("status", status).Msg(msg)
	WriteJSON(w, status, &bracket.Error{Kind: kind, Message: err.Error()})
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	log.Error().Err(err).Msg(msg)
	WriteJSON(w, http.StatusInternalServerError, &bracket.Error{Kind: "internal", Message: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	event := log.Warn().Str("message", msg)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("bad request")
	WriteJSON(w, http.StatusBadRequest, &bracket.Error{Kind: "bad_request", Message: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	event := log.Warn().Str("message", msg)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("not found")
	WriteJSON(w, http.StatusNotFound, &bracket.Error{Kind: bracket.KindNotFound, Message: msg})
}
