package storage

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // etag only
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// Object is an object held by a MemoryUploader.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryUploader keeps objects in memory. It serves development runs and
// tests.
type MemoryUploader struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]Object
	fail    error
}

var _ Uploader = (*MemoryUploader)(nil)

// NewMemoryUploader returns an uploader whose public URLs start with baseURL.
func NewMemoryUploader(baseURL string) *MemoryUploader {
	return &MemoryUploader{baseURL: baseURL, objects: make(map[string]Object)}
}

// FailWith makes subsequent uploads return err; nil restores normal behavior.
func (u *MemoryUploader) FailWith(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fail = err
}

// Upload implements Uploader.
func (u *MemoryUploader) Upload(ctx context.Context, key, contentType string, r io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", ErrUpload, u.fail)
	}
	u.objects[key] = Object{ContentType: contentType, Data: buf.Bytes()}
	sum := md5.Sum(buf.Bytes()) //nolint:gosec // etag only
	return UploadResult{Key: key, Location: u.PublicURL(key), ETag: hex.EncodeToString(sum[:])}, nil
}

// Delete implements Uploader.
func (u *MemoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

// PublicURL implements Uploader.
func (u *MemoryUploader) PublicURL(key string) string {
	return joinURL(u.baseURL, key)
}

// Object returns a stored object.
func (u *MemoryUploader) Object(key string) (Object, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	o, ok := u.objects[key]
	return o, ok
}

// Len returns the number of stored objects.
func (u *MemoryUploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}
