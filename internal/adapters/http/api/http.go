// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/kartboard/internal/adapters/http/swagger"
	"github.com/okian/kartboard/internal/adapters/identity"
	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/types"
	"github.com/okian/kartboard/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	Tournaments(ctx context.Context) []types.TournamentSummary
	Tournament(ctx context.Context, id string) (types.Tournament, error)
	Standings(ctx context.Context, tournamentID string) (types.SeasonTable, error)
	Race(ctx context.Context, tournamentID, raceID, sortKey, dir string) (types.RaceRanking, error)
	Drivers(ctx context.Context) []types.Driver
	Driver(ctx context.Context, id string) (types.Driver, error)

	LinkOutcome(ctx context.Context, id linking.Identity) types.LinkOutcome
	SearchUnlinked(ctx context.Context, query string) []types.Driver

	Link(ctx context.Context, id linking.Identity, driverID string) (types.Driver, error)
	Unlink(ctx context.Context, id linking.Identity, driverID string) (types.Driver, error)
	CreateDriver(ctx context.Context, id linking.Identity, nd model.NewDriver) (types.Driver, error)
	UpdateProfile(ctx context.Context, id linking.Identity, driverID string, p model.ProfileUpdate) (types.Driver, error)
	SetAttendance(ctx context.Context, id linking.Identity, driverID string, attending bool) (types.Driver, error)
	UploadPhoto(ctx context.Context, id linking.Identity, driverID, contentType string, r io.Reader) (types.Driver, error)

	Refresh(ctx context.Context) error
	Ready() bool
}

// failFunc renders an error response for a failed request.
type failFunc func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator turns a bearer token into an identity.
type Authenticator interface {
	Verify(ctx context.Context, raw string) (identity.Identity, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	auth    Authenticator
	live    http.Handler
	origins []string
	timeout time.Duration
	logger  logger.Logger

	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	tournamentHandler *TournamentHandler
	driverHandler     *DriverHandler
	meHandler         *MeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		origins: []string{"*"},
		timeout: 30 * time.Second,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps, s.fail)
	s.tournamentHandler = NewTournamentHandler(deps, s.fail)
	s.driverHandler = NewDriverHandler(deps, s.fail)
	s.meHandler = NewMeHandler(deps)
	return s
}

// Handler builds the router with every route attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", s.statsHandler.HandleStats)
	swagger.Register(r)
	if s.live != nil {
		r.Handle("/live", s.live)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Get("/tournaments", s.tournamentHandler.HandleList)
		r.Get("/tournaments/{tournamentID}", s.tournamentHandler.HandleGet)
		r.Get("/tournaments/{tournamentID}/standings", s.tournamentHandler.HandleStandings)
		r.Get("/tournaments/{tournamentID}/races/{raceID}", s.tournamentHandler.HandleRace)
		r.Get("/drivers", s.driverHandler.HandleList)
		r.Get("/drivers/{driverID}", s.driverHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/me/link", s.meHandler.HandleLinkOutcome)
			r.Get("/me/link/search", s.meHandler.HandleSearch)
			r.Post("/drivers", s.driverHandler.HandleCreate)
			r.Post("/drivers/{driverID}/link", s.driverHandler.HandleLink)
			r.Delete("/drivers/{driverID}/link", s.driverHandler.HandleUnlink)
			r.Patch("/drivers/{driverID}/profile", s.driverHandler.HandleProfile)
			r.Put("/drivers/{driverID}/attendance", s.driverHandler.HandleAttendance)
			r.Put("/drivers/{driverID}/photo", s.driverHandler.HandlePhoto)
			r.Post("/refresh", s.statsHandler.HandleRefresh)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	return r
}

// fail renders err with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	markErrorCode(r, code)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Int("status", status),
			logger.Error(err))
		writeError(w, status, code, publicError(err, status))
		return
	}
	writeError(w, status, code, err)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
