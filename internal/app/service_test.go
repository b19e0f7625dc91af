package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/kartboard/internal/adapters/repository"
	"github.com/okian/kartboard/internal/adapters/storage"
	service "github.com/okian/kartboard/internal/app"
	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/standings"
	"github.com/okian/kartboard/pkg/logger"
	"github.com/okian/kartboard/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// flakyStore fails reads while down is set.
type flakyStore struct {
	*repository.MemoryStore
	down  atomic.Bool
	reads atomic.Int32
}

func (f *flakyStore) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	f.reads.Add(1)
	if f.down.Load() {
		return nil, errors.New("connection refused")
	}
	return f.MemoryStore.ListDrivers(ctx)
}

type recorder struct {
	mu    sync.Mutex
	calls []time.Time
}

func (r *recorder) SnapshotRefreshed(_ context.Context, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, at)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }

func fixture() model.Snapshot {
	return model.Snapshot{
		Drivers: []model.Driver{
			{ID: "jp", GivenName: "José", FamilyName: "Pérez", Team: "Rayo"},
			{ID: "ms", GivenName: "María", FamilyName: "Sánchez", LinkedEmail: "maria@kart.ar", Linked: true},
			{ID: "tn", GivenName: "Tano"},
		},
		Tournaments: []model.Tournament{{
			ID:     "apertura",
			Name:   "Apertura 2025",
			Status: model.StatusConcluded,
			Results: []model.SeasonResult{
				{DriverID: "jp", GivenName: "José", Points: ip(18)},
				{DriverID: "ms", GivenName: "María", Points: ip(25)},
			},
			Races: []model.Race{
				{ID: "f1", Name: "Fecha 1", Participants: []model.Participation{
					{DriverID: "ms", Name: "María", BestLapTime: fp(31.4), StartOrder: ip(2)},
					{DriverID: "jp", Name: "José", BestLapTime: fp(30.9), StartOrder: ip(1)},
				}},
			},
		}},
	}
}

// fallbacks reads the snapshot fallback counter from the service registry.
func fallbacks() float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() == "kartboard_standings_snapshot_fallbacks_total" {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func newService(opts ...service.Option) (*service.Service, *flakyStore) {
	store := &flakyStore{MemoryStore: repository.NewMemoryStore(repository.WithSnapshot(fixture()))}
	return service.New(store, opts...), store
}

func TestServiceRefresh(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		rec := &recorder{}
		svc, store := newService(service.WithNotifier(rec))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("Then the store snapshot is served", func() {
			So(svc.Ready(), ShouldBeTrue)
			st := svc.GetStats()
			So(st.Source, ShouldEqual, "store")
			So(st.Drivers, ShouldEqual, 3)
			So(st.Linked, ShouldEqual, 1)
			So(rec.count(), ShouldEqual, 1)
		})

		Convey("When the store goes down", func() {
			store.down.Store(true)
			before := fallbacks()
			err := svc.Refresh(ctx)

			Convey("Then the failure is reported and the last good snapshot kept", func() {
				So(errors.Is(err, service.ErrUnavailable), ShouldBeTrue)
				st := svc.GetStats()
				So(st.Source, ShouldEqual, "last_known_good")
				So(st.Stale, ShouldBeTrue)
				So(st.LastError, ShouldContainSubstring, "connection refused")
				So(len(svc.Drivers(ctx)), ShouldEqual, 3)
				So(rec.count(), ShouldEqual, 1)
				So(fallbacks(), ShouldEqual, before+1)
			})

			Convey("And recovers on the next refresh", func() {
				store.down.Store(false)
				So(svc.Refresh(ctx), ShouldBeNil)
				So(svc.GetStats().Source, ShouldEqual, "store")
			})
		})
	})

	Convey("Given a store that is down from the start", t, func() {
		ctx := context.Background()

		Convey("With a seed, the seed is served", func() {
			svc, store := newService(service.WithSeed(model.Snapshot{Drivers: []model.Driver{{ID: "seeded"}}}))
			store.down.Store(true)
			before := fallbacks()
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop(ctx)
			So(svc.GetStats().Source, ShouldEqual, "seed")
			So(fallbacks(), ShouldEqual, before+1)
			_, err := svc.Driver(ctx, "seeded")
			So(err, ShouldBeNil)
		})

		Convey("Without a seed, an empty snapshot is served", func() {
			svc, store := newService()
			store.down.Store(true)
			before := fallbacks()
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop(ctx)
			So(svc.GetStats().Source, ShouldEqual, "empty")
			So(fallbacks(), ShouldEqual, before)
			So(svc.Drivers(ctx), ShouldBeEmpty)
			So(svc.Tournaments(ctx), ShouldBeEmpty)
		})
	})

	Convey("Given a periodic refresh interval", t, func() {
		ctx := context.Background()
		svc, store := newService(service.WithRefreshInterval(10 * time.Millisecond))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then the store is polled until stopped", func() {
			deadline := time.Now().Add(2 * time.Second)
			for store.reads.Load() < 3 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			svc.Stop(ctx)
			So(store.reads.Load(), ShouldBeGreaterThanOrEqualTo, 3)
			after := store.reads.Load()
			time.Sleep(30 * time.Millisecond)
			So(store.reads.Load(), ShouldEqual, after)
		})
	})
}

func TestServiceQueries(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, _ := newService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("Then tournaments are listed and detailed", func() {
			So(svc.Tournaments(ctx)[0].Races, ShouldEqual, 1)
			tour, err := svc.Tournament(ctx, "apertura")
			So(err, ShouldBeNil)
			So(tour.Schedule[0].ID, ShouldEqual, "f1")
			_, err = svc.Tournament(ctx, "clausura")
			So(errors.Is(err, service.ErrTournamentNotFound), ShouldBeTrue)
		})

		Convey("Then the season table is ordered by points", func() {
			table, err := svc.Standings(ctx, "apertura")
			So(err, ShouldBeNil)
			So(table.Rows[0].DriverID, ShouldEqual, "ms")
		})

		Convey("Then races rank by the requested key", func() {
			r, err := svc.Race(ctx, "apertura", "f1", "best-lap-time", "")
			So(err, ShouldBeNil)
			So(r.Sort, ShouldEqual, standings.SortBestLapTime)
			So(r.Entries[0].DriverID, ShouldEqual, "jp")
			So(r.Entries[0].Position, ShouldEqual, 2)
			So(*r.Entries[1].Gap, ShouldAlmostEqual, 0.5)

			_, err = svc.Race(ctx, "apertura", "f1", "points", "")
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.Race(ctx, "apertura", "f9", "", "")
			So(errors.Is(err, service.ErrRaceNotFound), ShouldBeTrue)
		})

		Convey("Then driver cards carry ratings", func() {
			ms, err := svc.Driver(ctx, "ms")
			So(err, ShouldBeNil)
			So(ms.Rating, ShouldEqual, 908)
			So(*ms.BestFinish, ShouldEqual, 1)
			tn, _ := svc.Driver(ctx, "tn")
			So(tn.Rating, ShouldEqual, 900)
			So(tn.BestFinish, ShouldBeNil)
		})

		Convey("Then link outcomes follow the roster", func() {
			out := svc.LinkOutcome(ctx, linking.Identity{Email: "jose@kart.ar", Name: "jose perez"})
			So(out.Mode, ShouldEqual, linking.ModeConfirm)
			So(out.Drivers[0].ID, ShouldEqual, "jp")
			So(out.Drivers[0].Rating, ShouldEqual, 907)

			out = svc.LinkOutcome(ctx, linking.Identity{Email: "maria@kart.ar"})
			So(out.Mode, ShouldEqual, linking.ModeLinked)
			So(out.Driver.ID, ShouldEqual, "ms")

			So(len(svc.SearchUnlinked(ctx, "ta")), ShouldEqual, 1)
		})
	})
}

func TestServiceWrites(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		rec := &recorder{}
		uploader := storage.NewMemoryUploader("https://cdn.test")
		svc, store := newService(service.WithNotifier(rec), service.WithUploader(uploader), service.WithMaxPhotoBytes(16))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		jose := linking.Identity{Email: "jose@kart.ar", Name: "José Pérez"}

		Convey("When José links his driver", func() {
			d, err := svc.Link(ctx, jose, "jp")

			Convey("Then the refreshed view shows the link", func() {
				So(err, ShouldBeNil)
				So(d.Linked, ShouldBeTrue)
				So(rec.count(), ShouldEqual, 2)
				So(svc.LinkOutcome(ctx, jose).Mode, ShouldEqual, linking.ModeLinked)
			})

			Convey("And can edit the profile", func() {
				d, err := svc.UpdateProfile(ctx, jose, "jp", model.ProfileUpdate{Phrase: "  a fondo ", Number: ip(7)})
				So(err, ShouldBeNil)
				So(d.Phrase, ShouldEqual, "a fondo")
				So(*d.Number, ShouldEqual, 7)
			})

			Convey("And confirm attendance", func() {
				d, err := svc.SetAttendance(ctx, jose, "jp", true)
				So(err, ShouldBeNil)
				So(d.AttendingNextRace, ShouldBeTrue)
			})

			Convey("And upload a photo", func() {
				d, err := svc.UploadPhoto(ctx, jose, "jp", "image/jpeg", strings.NewReader("tiny"))
				So(err, ShouldBeNil)
				So(d.Photo, ShouldStartWith, "https://cdn.test/drivers/jp/")
				So(uploader.Len(), ShouldEqual, 1)
			})

			Convey("And oversized or unsupported photos are refused", func() {
				_, err := svc.UploadPhoto(ctx, jose, "jp", "image/jpeg", strings.NewReader(strings.Repeat("x", 17)))
				So(errors.Is(err, service.ErrPhotoTooLarge), ShouldBeTrue)
				_, err = svc.UploadPhoto(ctx, jose, "jp", "text/plain", strings.NewReader("x"))
				So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
				So(uploader.Len(), ShouldEqual, 0)
			})

			Convey("And unlink it again", func() {
				d, err := svc.Unlink(ctx, jose, "jp")
				So(err, ShouldBeNil)
				So(d.Linked, ShouldBeFalse)
				So(d.Team, ShouldEqual, "Rayo")
			})

			Convey("And cannot create a second driver", func() {
				_, err := svc.CreateDriver(ctx, jose, model.NewDriver{GivenName: "Otro"})
				So(errors.Is(err, linking.ErrIdentityLinked), ShouldBeTrue)
			})
		})

		Convey("When someone edits a driver they do not own", func() {
			_, err := svc.SetAttendance(ctx, jose, "ms", true)
			So(errors.Is(err, linking.ErrNotOwner), ShouldBeTrue)
		})

		Convey("When a new identity registers", func() {
			ana := linking.Identity{Email: "ana@kart.ar", Name: "Ana Ruiz"}
			d, err := svc.CreateDriver(ctx, ana, model.NewDriver{GivenName: "Ana", FamilyName: "Ruiz", WeightKg: fp(61.5)})

			Convey("Then the driver exists, linked, on the default team", func() {
				So(err, ShouldBeNil)
				So(d.ID, ShouldNotBeEmpty)
				So(d.Team, ShouldEqual, model.DefaultTeam)
				So(d.Linked, ShouldBeTrue)
				So(d.Rating, ShouldEqual, standings.BaseRating)
				So(len(svc.Drivers(ctx)), ShouldEqual, 4)
			})
		})

		Convey("When invalid measures are submitted", func() {
			_, err := svc.CreateDriver(ctx, linking.Identity{Email: "x@kart.ar"}, model.NewDriver{GivenName: "X", WeightKg: fp(-1)})
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When the store fails to reload after a write", func() {
			store.down.Store(true)
			_, err := svc.Link(ctx, jose, "jp")

			Convey("Then the write is reported as saved but stale", func() {
				So(errors.Is(err, service.ErrStaleAfterWrite), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service without an uploader", t, func() {
		ctx := context.Background()
		svc, _ := newService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		_, err := svc.UploadPhoto(ctx, linking.Identity{Email: "maria@kart.ar"}, "ms", "image/png", strings.NewReader("x"))
		So(errors.Is(err, service.ErrPhotosDisabled), ShouldBeTrue)
	})
}
