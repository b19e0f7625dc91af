package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/types"
)

// DriverService exposes roster views and the owner writes.
type DriverService interface {
	Drivers(ctx context.Context) []types.Driver
	Driver(ctx context.Context, id string) (types.Driver, error)
	Link(ctx context.Context, id linking.Identity, driverID string) (types.Driver, error)
	Unlink(ctx context.Context, id linking.Identity, driverID string) (types.Driver, error)
	CreateDriver(ctx context.Context, id linking.Identity, nd model.NewDriver) (types.Driver, error)
	UpdateProfile(ctx context.Context, id linking.Identity, driverID string, p model.ProfileUpdate) (types.Driver, error)
	SetAttendance(ctx context.Context, id linking.Identity, driverID string, attending bool) (types.Driver, error)
	UploadPhoto(ctx context.Context, id linking.Identity, driverID, contentType string, r io.Reader) (types.Driver, error)
}

// DriverHandler handles roster requests.
type DriverHandler struct {
	svc  DriverService
	fail failFunc
}

// NewDriverHandler creates a new driver handler.
func NewDriverHandler(svc DriverService, fail failFunc) *DriverHandler {
	return &DriverHandler{svc: svc, fail: fail}
}

// createDriverRequest mirrors the OpenAPI schema for POST /api/drivers.
type createDriverRequest struct {
	GivenName  string   `json:"givenName"`
	FamilyName string   `json:"familyName"`
	Phrase     string   `json:"phrase"`
	Number     *int     `json:"number"`
	WeightKg   *float64 `json:"weightKg"`
}

type profileRequest struct {
	Phrase   string   `json:"phrase"`
	Number   *int     `json:"number"`
	WeightKg *float64 `json:"weightKg"`
}

type attendanceRequest struct {
	Attending *bool `json:"attending"`
}

// HandleList handles GET /api/drivers.
func (h *DriverHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Drivers(r.Context()))
}

// HandleGet handles GET /api/drivers/{driverID}.
func (h *DriverHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Driver(r.Context(), chi.URLParam(r, "driverID"))
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleCreate handles POST /api/drivers.
func (h *DriverHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.CreateDriver(r.Context(), identityFrom(r.Context()), model.NewDriver{
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Phrase:     req.Phrase,
		Number:     req.Number,
		WeightKg:   req.WeightKg,
	})
	h.respond(w, r, http.StatusCreated, d, err)
}

// HandleLink handles POST /api/drivers/{driverID}/link.
func (h *DriverHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Link(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "driverID"))
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleUnlink handles DELETE /api/drivers/{driverID}/link.
func (h *DriverHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Unlink(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "driverID"))
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleProfile handles PATCH /api/drivers/{driverID}/profile.
func (h *DriverHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.UpdateProfile(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "driverID"), model.ProfileUpdate{
		Phrase:   req.Phrase,
		Number:   req.Number,
		WeightKg: req.WeightKg,
	})
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleAttendance handles PUT /api/drivers/{driverID}/attendance.
func (h *DriverHandler) HandleAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Attending == nil {
		h.fail(w, r, fmt.Errorf("%w: missing attending", ErrBadRequest))
		return
	}
	d, err := h.svc.SetAttendance(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "driverID"), *req.Attending)
	h.respond(w, r, http.StatusOK, d, err)
}

// HandlePhoto handles PUT /api/drivers/{driverID}/photo. The body is the
// raw image; its type comes from the Content-Type header.
func (h *DriverHandler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		h.fail(w, r, fmt.Errorf("%w: content type must be an image", ErrBadRequest))
		return
	}
	d, err := h.svc.UploadPhoto(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "driverID"), mediaType, r.Body)
	h.respond(w, r, http.StatusOK, d, err)
}

func (h *DriverHandler) respond(w http.ResponseWriter, r *http.Request, status int, d types.Driver, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, d)
}
