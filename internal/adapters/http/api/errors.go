package api

import (
	"errors"
	"net/http"

	"github.com/okian/kartboard/internal/adapters/identity"
	"github.com/okian/kartboard/internal/adapters/storage"
	app "github.com/okian/kartboard/internal/app"
	"github.com/okian/kartboard/internal/domain/linking"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// classify maps an error kind to an HTTP status and a response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrDisabled):
		return http.StatusServiceUnavailable, "auth_disabled"
	case identity.IsAuthError(err):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, linking.ErrNotOwner), errors.Is(err, linking.ErrNoEmail):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, app.ErrTournamentNotFound), errors.Is(err, app.ErrRaceNotFound),
		errors.Is(err, app.ErrDriverNotFound), errors.Is(err, linking.ErrDriverNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, linking.ErrAlreadyLinked), errors.Is(err, linking.ErrIdentityLinked),
		errors.Is(err, app.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, app.ErrPhotoTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest), errors.Is(err, app.ErrInvalidArgument),
		errors.Is(err, linking.ErrEmptyName), errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, app.ErrPhotosDisabled):
		return http.StatusNotImplemented, "photos_disabled"
	case errors.Is(err, app.ErrStaleAfterWrite):
		return http.StatusServiceUnavailable, "stale"
	case errors.Is(err, app.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// publicError hides store details from server-side failures.
func publicError(err error, status int) error {
	for _, kind := range []error{app.ErrStaleAfterWrite, app.ErrPhotosDisabled, app.ErrUnavailable, identity.ErrDisabled} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return errors.New(http.StatusText(status))
}
