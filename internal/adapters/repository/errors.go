package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record changed concurrently or violates a uniqueness rule")
	ErrInvalid     = errors.New("invalid record")
	ErrUnavailable = errors.New("store unavailable")
)
