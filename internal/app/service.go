// Package service holds the snapshot of the roster and result history and
// serves every standings view computed from it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/kartboard/internal/adapters/repository"
	"github.com/okian/kartboard/internal/adapters/storage"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/types"
	"github.com/okian/kartboard/pkg/logger"
	"github.com/okian/kartboard/pkg/metrics"
)

// Notifier is told about every successful refresh.
type Notifier interface {
	SnapshotRefreshed(ctx context.Context, fetchedAt time.Time)
}

// Source says where the served snapshot came from.
type Source string

const (
	SourceNone          Source = "none"
	SourceStore         Source = "store"
	SourceLastKnownGood Source = "last_known_good"
	SourceSeed          Source = "seed"
	SourceEmpty         Source = "empty"
)

// Service implements the API dependencies of the standings service.
type Service struct {
	store     repository.Store
	uploader  storage.Uploader
	notifiers []Notifier
	seed      *model.Snapshot

	// Configuration
	fetchTimeout    time.Duration
	refreshInterval time.Duration
	maxPhotoBytes   int64
	now             func() time.Time

	// refreshMu serializes refreshes; mu guards the fields below it.
	refreshMu sync.Mutex
	mu        sync.RWMutex
	snap      model.Snapshot
	source    Source
	lastErr   error
	loaded    bool
	started   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service reading from store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		fetchTimeout:  10 * time.Second,
		maxPhotoBytes: 5 << 20,
		now:           time.Now,
		source:        SourceNone,
		stopCh:        make(chan struct{}),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the first snapshot and starts the periodic refresh, if
// configured. A failed first load is not fatal: the service serves its
// fallback snapshot until a refresh succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info(ctx, "starting standings service...",
		logger.String("store", s.store.Name()),
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.Bool("photos", s.uploader != nil))

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial snapshot load failed, serving fallback", logger.Error(err))
	}

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.refreshLoop(ctx)
	}
	s.logger.Info(ctx, "standings service started")
	return nil
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "periodic refresh failed", logger.Error(err))
			}
		}
	}
}

// Stop halts the periodic refresh and closes the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
	if err := s.store.Close(ctx); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}
	s.logger.Info(ctx, "standings service stopped")
}

// Refresh fetches a new snapshot and swaps it in. On failure the current
// snapshot is kept; before the first success the seed (or an empty
// snapshot) is served instead. The returned error is opaque and wraps
// ErrUnavailable.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var (
		drivers     []model.Driver
		tournaments []model.Tournament
	)
	g, gctx := errgroup.WithContext(fctx)
	g.Go(func() error {
		var err error
		drivers, err = s.store.ListDrivers(gctx)
		if err != nil {
			return fmt.Errorf("list drivers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tournaments, err = s.store.ListTournaments(gctx)
		if err != nil {
			return fmt.Errorf("list tournaments: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.fallback(ctx, err)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	snap := model.Snapshot{Tournaments: tournaments, Drivers: drivers, FetchedAt: s.now()}
	s.mu.Lock()
	s.snap, s.source, s.lastErr, s.loaded = snap, SourceStore, nil, true
	s.mu.Unlock()

	size := snap.Size()
	metrics.UpdateSnapshotSize(size.Drivers, size.Linked, size.Tournaments, size.Races, size.Participations)
	metrics.RecordSnapshotRefresh(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Debug(ctx, "snapshot refreshed",
		logger.Int("drivers", size.Drivers),
		logger.Int("tournaments", size.Tournaments),
		logger.Int("races", size.Races),
		logger.Duration("took", time.Since(start)))

	for _, n := range s.notifiers {
		n.SnapshotRefreshed(ctx, snap.FetchedAt)
	}
	return nil
}

func (s *Service) fallback(ctx context.Context, err error) {
	metrics.RecordSnapshotRefreshFailure()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	switch {
	case s.loaded && s.source != SourceSeed && s.source != SourceEmpty:
		s.source = SourceLastKnownGood
	case s.loaded:
		// keep serving the seed or empty snapshot
	case s.seed != nil:
		s.snap, s.source = *s.seed, SourceSeed
	default:
		s.snap, s.source = model.Snapshot{}, SourceEmpty
	}
	s.loaded = true
	if s.source != SourceEmpty {
		metrics.RecordSnapshotFallback()
	}
	s.logger.Error(ctx, "snapshot refresh failed", logger.String("serving", string(s.source)), logger.Error(err))
}

// Snapshot returns the snapshot currently served.
func (s *Service) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Ready reports whether the served snapshot came from the store.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source == SourceStore
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size := s.snap.Size()
	st := types.Stats{
		FetchedAt:      s.snap.FetchedAt,
		Source:         string(s.source),
		Stale:          s.source != SourceStore,
		Drivers:        size.Drivers,
		Linked:         size.Linked,
		Tournaments:    size.Tournaments,
		Races:          size.Races,
		Participations: size.Participations,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// storeError translates store sentinels into service sentinels.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrDriverNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repository.ErrInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
