package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/kartboard/internal/adapters/http/api"
	"github.com/okian/kartboard/internal/adapters/identity"
	"github.com/okian/kartboard/internal/adapters/repository"
	"github.com/okian/kartboard/internal/adapters/storage"
	app "github.com/okian/kartboard/internal/app"
	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/types"
	"github.com/okian/kartboard/pkg/logger"
	"github.com/okian/kartboard/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const secret = "test-secret"

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

type harness struct {
	handler  http.Handler
	verifier *identity.Verifier
	uploads  *storage.MemoryUploader
}

func newHarness(ctx context.Context, opts ...api.Option) (*harness, func()) {
	store := repository.NewMemoryStore(repository.WithSnapshot(fixture()))
	uploads := storage.NewMemoryUploader("https://cdn.test")
	svc := app.New(store, app.WithUploader(uploads), app.WithMaxPhotoBytes(16))
	So(svc.Start(ctx), ShouldBeNil)

	verifier := identity.NewVerifier(secret)
	opts = append([]api.Option{api.WithAuthenticator(verifier)}, opts...)
	h := &harness{
		handler:  api.NewServer(svc, opts...).Handler(),
		verifier: verifier,
		uploads:  uploads,
	}
	return h, func() { svc.Stop(ctx) }
}

func (h *harness) token(email, name string) string {
	tok, err := h.verifier.Issue(identity.Identity{Subject: email, Email: email, Name: name}, time.Hour)
	So(err, ShouldBeNil)
	return tok
}

func (h *harness) do(method, path, token, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestPublicRoutes(t *testing.T) {
	Convey("Given an API server backed by a seeded store", t, func() {
		ctx := context.Background()
		h, stop := newHarness(ctx)
		defer stop()

		Convey("When probing health", func() {
			w := h.do(http.MethodGet, "/healthz", "", "", "")

			Convey("Then the service reports ready", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode[map[string]any](w)
				So(body["status"], ShouldEqual, "ok")
				So(body["ready"], ShouldEqual, true)
			})
		})

		Convey("When scraping metrics", func() {
			w := h.do(http.MethodGet, "/metrics", "", "", "")

			Convey("Then the kartboard collectors are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "kartboard_standings_")
			})
		})

		Convey("When asking for stats", func() {
			w := h.do(http.MethodGet, "/stats", "", "", "")

			Convey("Then the snapshot size is reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				st := decode[types.Stats](w)
				So(st.Source, ShouldEqual, "store")
				So(st.Drivers, ShouldEqual, 3)
				So(st.Races, ShouldEqual, 1)
			})
		})

		Convey("When listing tournaments", func() {
			w := h.do(http.MethodGet, "/api/tournaments", "", "", "")

			Convey("Then every tournament is summarized", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				list := decode[[]types.TournamentSummary](w)
				So(len(list), ShouldEqual, 1)
				So(list[0].ID, ShouldEqual, "apertura")
			})
		})

		Convey("When requesting an unknown tournament", func() {
			w := h.do(http.MethodGet, "/api/tournaments/clausura", "", "", "")

			Convey("Then it should return not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[errorBody](w).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When requesting the season table", func() {
			w := h.do(http.MethodGet, "/api/tournaments/apertura/standings", "", "", "")

			Convey("Then rows are ordered by points", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				table := decode[types.SeasonTable](w)
				So(table.Partial, ShouldBeFalse)
				So(len(table.Rows), ShouldEqual, 2)
				So(table.Rows[0].DriverID, ShouldEqual, "ms")
			})
		})

		Convey("When requesting a race sorted by lap time", func() {
			w := h.do(http.MethodGet, "/api/tournaments/apertura/races/f1?sort=best-lap-time", "", "", "")

			Convey("Then the fastest driver leads and keeps the finish position", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				race := decode[types.RaceRanking](w)
				So(race.Entries[0].DriverID, ShouldEqual, "jp")
				So(race.Entries[0].Position, ShouldEqual, 2)
				So(race.Entries[0].Gap, ShouldBeNil)
				So(*race.Entries[1].Gap, ShouldAlmostEqual, 0.5, 1e-9)
			})
		})

		Convey("When requesting a race with an unknown sort", func() {
			w := h.do(http.MethodGet, "/api/tournaments/apertura/races/f1?sort=alphabetical", "", "", "")

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When requesting an unknown race", func() {
			w := h.do(http.MethodGet, "/api/tournaments/apertura/races/f9", "", "", "")

			Convey("Then it should return not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When listing drivers", func() {
			w := h.do(http.MethodGet, "/api/drivers", "", "", "")

			Convey("Then cards carry ratings and aggregates", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				cards := decode[[]types.Driver](w)
				So(len(cards), ShouldEqual, 3)
				byID := map[string]types.Driver{}
				for _, c := range cards {
					byID[c.ID] = c
				}
				So(byID["ms"].Rating, ShouldEqual, 908)
				So(byID["jp"].Rating, ShouldEqual, 907)
				So(byID["tn"].Rating, ShouldEqual, 900)
				So(byID["tn"].BestFinish, ShouldBeNil)
			})
		})

		Convey("When fetching one driver", func() {
			w := h.do(http.MethodGet, "/api/drivers/jp", "", "", "")

			Convey("Then the card is returned without the linked email", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "@")
				So(decode[types.Driver](w).FullName, ShouldEqual, "José Pérez")
			})
		})

		Convey("When calling an unknown route", func() {
			w := h.do(http.MethodGet, "/leaderboard", "", "", "")

			Convey("Then a JSON not found is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			})
		})

		Convey("When fetching the API docs", func() {
			So(h.do(http.MethodGet, "/api-docs", "", "", "").Code, ShouldEqual, http.StatusOK)
			So(h.do(http.MethodGet, "/openapi.yaml", "", "", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	Convey("Given an API server with identity verification", t, func() {
		ctx := context.Background()
		h, stop := newHarness(ctx)
		defer stop()
		jose := h.token("jose@kart.ar", "Jose Perez")
		maria := h.token("maria@kart.ar", "María Sánchez")

		Convey("When the token is missing or forged", func() {
			missing := h.do(http.MethodGet, "/api/me/link", "", "", "")
			forged := h.do(http.MethodGet, "/api/me/link", "not-a-jwt", "", "")

			Convey("Then both are unauthorized", func() {
				So(missing.Code, ShouldEqual, http.StatusUnauthorized)
				So(forged.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode[errorBody](forged).Code, ShouldEqual, "unauthorized")
			})
		})

		Convey("When an unlinked caller asks for candidates", func() {
			w := h.do(http.MethodGet, "/api/me/link", jose, "", "")

			Convey("Then the single name match is offered for confirmation", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.LinkOutcome](w)
				So(out.Mode, ShouldEqual, linking.ModeConfirm)
				So(len(out.Drivers), ShouldEqual, 1)
				So(out.Drivers[0].ID, ShouldEqual, "jp")
			})
		})

		Convey("When a linked caller asks for candidates", func() {
			w := h.do(http.MethodGet, "/api/me/link", maria, "", "")

			Convey("Then their own driver is returned", func() {
				out := decode[types.LinkOutcome](w)
				So(out.Mode, ShouldEqual, linking.ModeLinked)
				So(out.Driver.ID, ShouldEqual, "ms")
			})
		})

		Convey("When browsing unlinked drivers", func() {
			w := h.do(http.MethodGet, "/api/me/link/search?q=tan", jose, "", "")

			Convey("Then the filter matches substrings", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				list := decode[[]types.Driver](w)
				So(len(list), ShouldEqual, 1)
				So(list[0].ID, ShouldEqual, "tn")
			})
		})

		Convey("When claiming a driver", func() {
			w := h.do(http.MethodPost, "/api/drivers/jp/link", jose, "", "")

			Convey("Then the driver is linked and visible on the next read", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Driver](w).Linked, ShouldBeTrue)
				out := decode[types.LinkOutcome](h.do(http.MethodGet, "/api/me/link", jose, "", ""))
				So(out.Mode, ShouldEqual, linking.ModeLinked)
			})

			Convey("And a second identity cannot claim it", func() {
				other := h.token("otro@kart.ar", "Otro")
				w := h.do(http.MethodPost, "/api/drivers/jp/link", other, "", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("And the owner can release it", func() {
				w := h.do(http.MethodDelete, "/api/drivers/jp/link", jose, "", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Driver](w).Linked, ShouldBeFalse)
			})
		})

		Convey("When editing someone else's profile", func() {
			w := h.do(http.MethodPatch, "/api/drivers/ms/profile", jose, "application/json", `{"phrase":"hola"}`)

			Convey("Then it should be forbidden", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When the owner edits their profile", func() {
			w := h.do(http.MethodPatch, "/api/drivers/ms/profile", maria, "application/json", `{"phrase":"  a fondo  ","number":7}`)

			Convey("Then the trimmed values are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				d := decode[types.Driver](w)
				So(d.Phrase, ShouldEqual, "a fondo")
				So(*d.Number, ShouldEqual, 7)
			})
		})

		Convey("When the profile body has unknown fields", func() {
			w := h.do(http.MethodPatch, "/api/drivers/ms/profile", maria, "application/json", `{"email":"x@y.z"}`)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When confirming attendance", func() {
			missing := h.do(http.MethodPut, "/api/drivers/ms/attendance", maria, "application/json", `{}`)
			ok := h.do(http.MethodPut, "/api/drivers/ms/attendance", maria, "application/json", `{"attending":true}`)

			Convey("Then the flag is required and stored", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Driver](ok).AttendingNextRace, ShouldBeTrue)
			})
		})

		Convey("When uploading a photo", func() {
			text := h.do(http.MethodPut, "/api/drivers/ms/photo", maria, "text/plain", "hello")
			big := h.do(http.MethodPut, "/api/drivers/ms/photo", maria, "image/png", strings.Repeat("x", 17))
			ok := h.do(http.MethodPut, "/api/drivers/ms/photo", maria, "image/png", "png-bytes")

			Convey("Then only bounded images are stored", func() {
				So(text.Code, ShouldEqual, http.StatusBadRequest)
				So(big.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Driver](ok).Photo, ShouldStartWith, "https://cdn.test/drivers/ms/")
				So(h.uploads.Len(), ShouldEqual, 1)
			})
		})

		Convey("When creating a driver", func() {
			linked := h.do(http.MethodPost, "/api/drivers", maria, "application/json", `{"givenName":"María"}`)
			noName := h.do(http.MethodPost, "/api/drivers", jose, "application/json", `{"givenName":"  "}`)
			created := h.do(http.MethodPost, "/api/drivers", jose, "application/json", `{"givenName":" Jose ","familyName":"Perez","weightKg":72.5}`)

			Convey("Then linked identities and blank names are rejected", func() {
				So(linked.Code, ShouldEqual, http.StatusConflict)
				So(noName.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And a new linked driver is registered", func() {
				So(created.Code, ShouldEqual, http.StatusCreated)
				d := decode[types.Driver](created)
				So(d.ID, ShouldNotBeBlank)
				So(d.GivenName, ShouldEqual, "Jose")
				So(d.Team, ShouldEqual, model.DefaultTeam)
				So(d.Linked, ShouldBeTrue)
			})
		})

		Convey("When forcing a refresh", func() {
			w := h.do(http.MethodPost, "/api/refresh", jose, "", "")

			Convey("Then the fresh stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Stats](w).Source, ShouldEqual, "store")
			})
		})
	})

	Convey("Given an API server without identity verification", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithSnapshot(fixture()))
		svc := app.New(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		handler := api.NewServer(svc).Handler()

		Convey("When calling an authenticated route", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/me/link", nil)
			req.Header.Set("Authorization", "Bearer whatever")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			Convey("Then it reports authentication as unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode[errorBody](w).Code, ShouldEqual, "auth_disabled")
			})
		})

		Convey("When uploading a photo without object storage", func() {
			verifier := identity.NewVerifier(secret)
			handler := api.NewServer(svc, api.WithAuthenticator(verifier)).Handler()
			tok, err := verifier.Issue(identity.Identity{Email: "maria@kart.ar"}, time.Hour)
			So(err, ShouldBeNil)
			req := httptest.NewRequest(http.MethodPut, "/api/drivers/ms/photo", strings.NewReader("png"))
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set("Content-Type", "image/png")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			Convey("Then it is reported as not implemented", func() {
				So(w.Code, ShouldEqual, http.StatusNotImplemented)
			})
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a server restricted to one origin", t, func() {
		ctx := context.Background()
		h, stop := newHarness(ctx, api.WithAllowedOrigins([]string{"https://kart.ar"}))
		defer stop()

		Convey("When a preflight arrives from that origin", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/drivers", nil)
			req.Header.Set("Origin", "https://kart.ar")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.handler.ServeHTTP(w, req)

			Convey("Then the origin is allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://kart.ar")
			})
		})
	})
}

// counterValue reads one labelled counter from the service registry.
func counterValue(name string, labels map[string]string) float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			matched := 0
			for _, l := range m.GetLabel() {
				if v, ok := labels[l.GetName()]; ok && v == l.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRequestMetrics(t *testing.T) {
	const (
		requests = "kartboard_standings_http_requests_total"
		errs     = "kartboard_standings_errors_by_endpoint_total"
	)

	Convey("Given an API server", t, func() {
		ctx := context.Background()
		h, stop := newHarness(ctx)
		defer stop()

		Convey("When a driver is fetched", func() {
			labels := map[string]string{"endpoint": "/api/drivers/{driverID}", "method": http.MethodGet, "status_code": "200"}
			before := counterValue(requests, labels)
			w := h.do(http.MethodGet, "/api/drivers/jp", "", "", "")

			Convey("Then the request is labelled by its route pattern", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(counterValue(requests, labels), ShouldEqual, before+1)
			})
		})

		Convey("When a tournament is missing", func() {
			labels := map[string]string{"endpoint": "/api/tournaments/{tournamentID}", "method": http.MethodGet, "error_type": "not_found"}
			before := counterValue(errs, labels)
			w := h.do(http.MethodGet, "/api/tournaments/nope", "", "", "")

			Convey("Then the error is counted with its response code", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(counterValue(errs, labels), ShouldEqual, before+1)
			})
		})

		Convey("When an authenticated route is called without a token", func() {
			labels := map[string]string{"endpoint": "/api/me/link", "method": http.MethodGet, "error_type": "unauthorized"}
			before := counterValue(errs, labels)
			w := h.do(http.MethodGet, "/api/me/link", "", "", "")

			Convey("Then the rejection is counted as unauthorized", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(counterValue(errs, labels), ShouldEqual, before+1)
			})
		})

		Convey("When no route matches", func() {
			labels := map[string]string{"endpoint": "unmatched", "method": http.MethodGet, "error_type": "not_found"}
			before := counterValue(errs, labels)
			w := h.do(http.MethodGet, "/nowhere", "", "", "")

			Convey("Then the error falls back to the status text", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(counterValue(errs, labels), ShouldEqual, before+1)
			})
		})
	})
}
