package standings

import "errors"

// Sentinel errors for invalid ranking requests.
var (
	ErrUnknownSortKey   = errors.New("unknown sort key")
	ErrUnknownDirection = errors.New("unknown sort direction")
)
