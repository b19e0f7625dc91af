package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/kartboard/internal/domain/types"
)

// TournamentReader exposes tournament views.
type TournamentReader interface {
	Tournaments(ctx context.Context) []types.TournamentSummary
	Tournament(ctx context.Context, id string) (types.Tournament, error)
	Standings(ctx context.Context, tournamentID string) (types.SeasonTable, error)
	Race(ctx context.Context, tournamentID, raceID, sortKey, dir string) (types.RaceRanking, error)
}

// TournamentHandler handles tournament, standings and race requests.
type TournamentHandler struct {
	reader TournamentReader
	fail   failFunc
}

// NewTournamentHandler creates a new tournament handler.
func NewTournamentHandler(reader TournamentReader, fail failFunc) *TournamentHandler {
	return &TournamentHandler{reader: reader, fail: fail}
}

// HandleList handles GET /api/tournaments.
func (h *TournamentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Tournaments(r.Context()))
}

// HandleGet handles GET /api/tournaments/{tournamentID}.
func (h *TournamentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.reader.Tournament(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleStandings handles GET /api/tournaments/{tournamentID}/standings.
func (h *TournamentHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	table, err := h.reader.Standings(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// HandleRace handles GET /api/tournaments/{tournamentID}/races/{raceID}.
// Query: sort=finish-order|best-lap-time|start-order, dir=asc|desc.
func (h *TournamentHandler) HandleRace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	race, err := h.reader.Race(r.Context(),
		chi.URLParam(r, "tournamentID"), chi.URLParam(r, "raceID"),
		q.Get("sort"), q.Get("dir"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}
