package model

import "errors"

// Sentinel errors for structurally invalid records.
var (
	ErrMissingDriverID = errors.New("participation without driver id")
	ErrInvalidDate     = errors.New("invalid race date")
)
