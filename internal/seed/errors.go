package seed

import "errors"

// Sentinel errors for fixture loading.
var (
	ErrLoad    = errors.New("load fixture failed")
	ErrInvalid = errors.New("invalid fixture")
)
