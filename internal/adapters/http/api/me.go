package api

import (
	"context"
	"net/http"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/types"
)

// LinkReader exposes the caller-specific linking views.
type LinkReader interface {
	LinkOutcome(ctx context.Context, id linking.Identity) types.LinkOutcome
	SearchUnlinked(ctx context.Context, query string) []types.Driver
}

// MeHandler handles requests about the authenticated caller.
type MeHandler struct {
	reader LinkReader
}

// NewMeHandler creates a new handler for the caller's link state.
func NewMeHandler(reader LinkReader) *MeHandler {
	return &MeHandler{reader: reader}
}

// HandleLinkOutcome handles GET /api/me/link.
func (h *MeHandler) HandleLinkOutcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.LinkOutcome(r.Context(), identityFrom(r.Context())))
}

// HandleSearch handles GET /api/me/link/search?q=.
func (h *MeHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.SearchUnlinked(r.Context(), r.URL.Query().Get("q")))
}
