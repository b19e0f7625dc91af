package service

import "errors"

// Sentinel errors returned by the service. Linking rule violations are
// returned as the linking package's errors.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRaceNotFound       = errors.New("race not found")
	ErrDriverNotFound     = errors.New("driver not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("conflicting update")
	ErrUnavailable        = errors.New("store unavailable")
	ErrPhotosDisabled     = errors.New("photo uploads are not configured")
	ErrPhotoTooLarge      = errors.New("photo too large")
	ErrStaleAfterWrite    = errors.New("change saved but standings could not be reloaded")
)
