package storage

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid object storage configuration")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrUpload          = errors.New("object upload failed")
)
