package api

import (
	"context"
	"net/http"

	"github.com/okian/kartboard/internal/domain/types"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() types.Stats
}

type refresher interface {
	StatsProvider
	Refresh(ctx context.Context) error
}

// StatsHandler handles stats and manual refresh requests.
type StatsHandler struct {
	deps refresher
	fail failFunc
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps refresher, fail failFunc) *StatsHandler {
	return &StatsHandler{deps: deps, fail: fail}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.GetStats())
}

// HandleRefresh handles POST /api/refresh.
func (h *StatsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Refresh(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.GetStats())
}
