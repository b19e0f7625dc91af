package linking

import "errors"

var (
	ErrNoEmail        = errors.New("identity has no email")
	ErrDriverNotFound = errors.New("driver not found")
	ErrAlreadyLinked  = errors.New("driver is linked to another identity")
	ErrIdentityLinked = errors.New("identity is already linked to a driver")
	ErrNotOwner       = errors.New("driver is not linked to this identity")
	ErrEmptyName      = errors.New("given name is required")
)
