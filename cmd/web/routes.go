package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/httputil"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type generateRequest struct {
	Teams []service.TeamInput `json:"teams"`
}

type scoreRequest struct {
	Team1Score int  `json:"team1_score"`
	Team2Score int  `json:"team2_score"`
	Complete   bool `json:"complete"`
}

type forfeitRequest struct {
	TeamID uuid.UUID `json:"team_id"`
}

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

type startMapRequest struct {
	MapName string `json:"map_name"`
}

// matchCommand is the shape shared by every command that only needs the match id.
type matchCommand func(ctx context.Context, matchID uuid.UUID) (*service.MatchSnapshot, error)

func newRouter(tournaments *service.TournamentService, matches *service.MatchService) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.LoadActor)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/tournaments", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var input service.TournamentInput
			if !decode(w, r, &input) {
				return
			}
			data, err := tournaments.CreateTournament(r.Context(), input)
			if err != nil {
				httputil.WriteError(w, "Failed to create tournament", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, data)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			list, err := tournaments.ListTournaments(r.Context())
			if err != nil {
				httputil.WriteError(w, "Failed to list tournaments", err)
				return
			}
			if list == nil {
				list = []bracket.Tournament{}
			}
			httputil.WriteJSON(w, http.StatusOK, list)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			data, err := tournaments.GetTournament(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, "Failed to get tournament", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, data)
		})
	})

	r.Route("/stages/{id}", func(r chi.Router) {
		r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			var req generateRequest
			if !decode(w, r, &req) {
				return
			}
			stage, err := tournaments.GenerateBracket(r.Context(), id, req.Teams)
			if err != nil {
				httputil.WriteError(w, "Failed to generate bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusCreated, stage)
		})

		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
			if err := tournaments.ResetBracket(r.Context(), id, force); err != nil {
				httputil.WriteError(w, "Failed to reset bracket", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/bracket", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			view, err := tournaments.GetBracketView(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, "Failed to get bracket", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, view)
		})

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			q := r.URL.Query()
			after, err := queryInt(q.Get("after"))
			if err != nil {
				httputil.BadRequest(w, "Invalid after", err)
				return
			}
			limit, err := queryInt(q.Get("limit"))
			if err != nil {
				httputil.BadRequest(w, "Invalid limit", err)
				return
			}
			evs, err := tournaments.ListEvents(r.Context(), id, int64(after), limit)
			if err != nil {
				httputil.WriteError(w, "Failed to list events", err)
				return
			}
			if evs == nil {
				evs = []bracket.Event{}
			}
			httputil.WriteJSON(w, http.StatusOK, evs)
		})
	})

	r.Route("/matches/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			snap, err := matches.GetMatch(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, "Failed to get match", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/start", runCommand("Failed to start match", matches.StartMatch))
		r.Post("/pause", runCommand("Failed to pause match", matches.PauseMatch))
		r.Post("/resume", runCommand("Failed to resume match", matches.ResumeMatch))
		r.Post("/cancel", runCommand("Failed to cancel match", matches.CancelMatch))

		r.Post("/forfeit", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			var req forfeitRequest
			if !decode(w, r, &req) {
				return
			}
			snap, err := matches.Forfeit(r.Context(), id, req.TeamID)
			if err != nil {
				httputil.WriteError(w, "Failed to forfeit match", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/schedule", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			var req scheduleRequest
			if !decode(w, r, &req) {
				return
			}
			snap, err := matches.ScheduleMatch(r.Context(), id, req.ScheduledAt)
			if err != nil {
				httputil.WriteError(w, "Failed to schedule match", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/maps/{index}/start", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			index, ok := mapIndex(w, r)
			if !ok {
				return
			}
			var req startMapRequest
			if r.ContentLength != 0 && !decode(w, r, &req) {
				return
			}
			snap, err := matches.StartMap(r.Context(), id, index, req.MapName)
			if err != nil {
				httputil.WriteError(w, "Failed to start map", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/maps/{index}/result", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			index, ok := mapIndex(w, r)
			if !ok {
				return
			}
			var req service.MapResult
			if !decode(w, r, &req) {
				return
			}
			snap, err := matches.ReportMapResult(r.Context(), id, index, req)
			if err != nil {
				httputil.WriteError(w, "Failed to report map result", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/result", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			var req scoreRequest
			if !decode(w, r, &req) {
				return
			}
			snap, err := matches.ReportSeriesResult(r.Context(), id, req.Team1Score, req.Team2Score, req.Complete)
			if err != nil {
				httputil.WriteError(w, "Failed to report series result", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/correction", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlID(w, r, "id")
			if !ok {
				return
			}
			var req scoreRequest
			if !decode(w, r, &req) {
				return
			}
			snap, err := matches.CorrectResult(r.Context(), id, req.Team1Score, req.Team2Score)
			if err != nil {
				httputil.WriteError(w, "Failed to correct result", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, snap)
		})
	})

	return r
}

func runCommand(msg string, cmd matchCommand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		snap, err := cmd(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, msg, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, snap)
	}
}

func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func mapIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.BadRequest(w, "Invalid map index", err)
		return 0, false
	}
	return index, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
