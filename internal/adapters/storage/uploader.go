// Package storage uploads driver photos to object storage.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// Uploader stores objects and resolves their public URLs.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (UploadResult, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// PhotoKey returns a fresh object key for a driver photo of contentType:
// drivers/{driverID}/{uuid}.{ext}.
func PhotoKey(driverID, contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	return fmt.Sprintf("drivers/%s/%s.%s", driverID, uuid.NewString(), ext), nil
}
