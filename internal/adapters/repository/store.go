// Package repository holds the document store behind the roster and the
// result history.
package repository

import (
	"context"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
)

// Store provides read/write access to drivers and tournaments.
//
// Reads return copies; callers may not observe later writes through them.
// Write failures caused by the backend are reported wrapped in ErrUnavailable.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// ListDrivers returns the full roster in a stable order.
	ListDrivers(ctx context.Context) ([]model.Driver, error)
	// ListTournaments returns every tournament with its races ordered by
	// date, unscheduled races last.
	ListTournaments(ctx context.Context) ([]model.Tournament, error)

	// CreateDriver inserts d. Returns ErrConflict if the id or the linked
	// email is already taken.
	CreateDriver(ctx context.Context, d model.Driver) error
	// ApplyLink executes a link or unlink intent. Linking a driver that
	// is already linked, or to an email held by another driver, returns
	// ErrConflict; unlinking a driver not held by the intent's email also
	// returns ErrConflict.
	ApplyLink(ctx context.Context, in linking.Intent) error
	// UpdateProfile replaces the self-editable fields of a driver.
	UpdateProfile(ctx context.Context, driverID string, p model.ProfileUpdate) error
	// SetAttendance records whether the driver attends the next race.
	SetAttendance(ctx context.Context, driverID string, attending bool) error
	// SetPhoto stores the public URL of the driver's photo.
	SetPhoto(ctx context.Context, driverID, url string) error

	// PutDriver and PutTournament upsert whole records. They are used by
	// seeding and administration.
	PutDriver(ctx context.Context, d model.Driver) error
	PutTournament(ctx context.Context, t model.Tournament) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}
