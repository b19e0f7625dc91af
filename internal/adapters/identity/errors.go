package identity

import "errors"

var (
	ErrDisabled        = errors.New("identity verification is not configured")
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid identity token")
	ErrUnverifiedEmail = errors.New("identity email is not verified")
)
