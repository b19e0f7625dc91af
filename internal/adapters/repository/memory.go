package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/pkg/metrics"
)

const memoryStoreName = "memory"

// MemoryStore is an in-process Store. It backs development runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	drivers     map[string]model.Driver
	driverOrder []string
	tournaments map[string]model.Tournament
	tourOrder   []string
}

// NewMemoryStore constructs an empty store and applies opts.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		drivers:     make(map[string]model.Driver),
		tournaments: make(map[string]model.Tournament),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

// Name implements Store.
func (s *MemoryStore) Name() string { return memoryStoreName }

func observe(store, op string, start time.Time, err *error) {
	metrics.RecordStoreOperation(store, op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil {
		metrics.RecordStoreError(store, op)
	}
}

// ListDrivers implements Store.
func (s *MemoryStore) ListDrivers(ctx context.Context) (_ []model.Driver, err error) {
	defer observe(memoryStoreName, "list_drivers", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Driver, 0, len(s.driverOrder))
	for _, id := range s.driverOrder {
		out = append(out, s.drivers[id])
	}
	return out, nil
}

// ListTournaments implements Store.
func (s *MemoryStore) ListTournaments(ctx context.Context) (_ []model.Tournament, err error) {
	defer observe(memoryStoreName, "list_tournaments", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Tournament, 0, len(s.tourOrder))
	for _, id := range s.tourOrder {
		t := cloneTournament(s.tournaments[id])
		t.Races = model.SortRaces(t.Races)
		out = append(out, t)
	}
	return out, nil
}

// CreateDriver implements Store.
func (s *MemoryStore) CreateDriver(ctx context.Context, d model.Driver) (err error) {
	defer observe(memoryStoreName, "create_driver", time.Now(), &err)
	if d.ID == "" {
		return fmt.Errorf("%w: driver without id", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drivers[d.ID]; ok {
		return fmt.Errorf("%w: driver %q exists", ErrConflict, d.ID)
	}
	if d.IsLinked() {
		if _, held := s.holderLocked(d.LinkedEmail); held {
			return fmt.Errorf("%w: email already linked", ErrConflict)
		}
	}
	s.putDriver(d)
	return nil
}

// ApplyLink implements Store.
func (s *MemoryStore) ApplyLink(ctx context.Context, in linking.Intent) (err error) {
	defer observe(memoryStoreName, string(in.Action)+"_driver", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[in.DriverID]
	if !ok {
		return ErrNotFound
	}
	switch in.Action {
	case linking.ActionLink:
		if d.IsLinked() {
			return fmt.Errorf("%w: driver %q already linked", ErrConflict, d.ID)
		}
		if _, held := s.holderLocked(in.Email); held {
			return fmt.Errorf("%w: email already linked", ErrConflict)
		}
		d.LinkedEmail, d.Linked = in.Email, true
	case linking.ActionUnlink:
		if !d.OwnedBy(in.Email) {
			return fmt.Errorf("%w: driver %q not held by this identity", ErrConflict, d.ID)
		}
		d.LinkedEmail, d.Linked = "", false
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalid, in.Action)
	}
	s.drivers[d.ID] = d
	return nil
}

// UpdateProfile implements Store.
func (s *MemoryStore) UpdateProfile(ctx context.Context, driverID string, p model.ProfileUpdate) (err error) {
	defer observe(memoryStoreName, "update_profile", time.Now(), &err)
	return s.mutate(driverID, func(d *model.Driver) {
		d.Phrase, d.Number, d.WeightKg = p.Phrase, p.Number, p.WeightKg
	})
}

// SetAttendance implements Store.
func (s *MemoryStore) SetAttendance(ctx context.Context, driverID string, attending bool) (err error) {
	defer observe(memoryStoreName, "set_attendance", time.Now(), &err)
	return s.mutate(driverID, func(d *model.Driver) { d.AttendingNextRace = attending })
}

// SetPhoto implements Store.
func (s *MemoryStore) SetPhoto(ctx context.Context, driverID, url string) (err error) {
	defer observe(memoryStoreName, "set_photo", time.Now(), &err)
	return s.mutate(driverID, func(d *model.Driver) { d.Photo = url })
}

// PutDriver implements Store.
func (s *MemoryStore) PutDriver(ctx context.Context, d model.Driver) (err error) {
	defer observe(memoryStoreName, "put_driver", time.Now(), &err)
	if d.ID == "" {
		return fmt.Errorf("%w: driver without id", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putDriver(d)
	return nil
}

// PutTournament implements Store.
func (s *MemoryStore) PutTournament(ctx context.Context, t model.Tournament) (err error) {
	defer observe(memoryStoreName, "put_tournament", time.Now(), &err)
	if t.ID == "" {
		return fmt.Errorf("%w: tournament without id", ErrInvalid)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTournament(t)
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) mutate(driverID string, fn func(*model.Driver)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[driverID]
	if !ok {
		return ErrNotFound
	}
	fn(&d)
	s.drivers[driverID] = d
	return nil
}

func (s *MemoryStore) holderLocked(email string) (model.Driver, bool) {
	for _, id := range s.driverOrder {
		if d := s.drivers[id]; d.OwnedBy(email) {
			return d, true
		}
	}
	return model.Driver{}, false
}

// putDriver and putTournament expect the write lock or exclusive access.
func (s *MemoryStore) putDriver(d model.Driver) {
	if _, ok := s.drivers[d.ID]; !ok {
		s.driverOrder = append(s.driverOrder, d.ID)
	}
	s.drivers[d.ID] = d
}

func (s *MemoryStore) putTournament(t model.Tournament) {
	if _, ok := s.tournaments[t.ID]; !ok {
		s.tourOrder = append(s.tourOrder, t.ID)
	}
	s.tournaments[t.ID] = cloneTournament(t)
}

func cloneTournament(t model.Tournament) model.Tournament {
	t.Rules = slices.Clone(t.Rules)
	t.PointsTable = slices.Clone(t.PointsTable)
	t.Results = slices.Clone(t.Results)
	races := make([]model.Race, len(t.Races))
	for i, r := range t.Races {
		r.Sessions = slices.Clone(r.Sessions)
		r.Participants = slices.Clone(r.Participants)
		races[i] = r
	}
	t.Races = races
	return t
}
