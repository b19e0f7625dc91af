package service

import (
	"time"

	"github.com/okian/kartboard/internal/adapters/storage"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUploader enables photo uploads through u.
func WithUploader(u storage.Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithNotifier registers a listener for successful refreshes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithSeed sets the snapshot served when the store is unreachable before
// any successful refresh.
func WithSeed(snap model.Snapshot) Option {
	return func(s *Service) {
		s.seed = &snap
	}
}

// WithFetchTimeout bounds a single snapshot fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRefreshInterval enables periodic background refreshes.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithMaxPhotoBytes caps the size of uploaded photos.
func WithMaxPhotoBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPhotoBytes = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
