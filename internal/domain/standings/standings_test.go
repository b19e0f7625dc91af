package standings_test

import (
	"errors"
	"testing"

	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/standings"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func ids(entries []standings.RankedEntry) []string {
	out := make([]string, len(entries))
	for n, e := range entries {
		out[n] = e.Participation.DriverID
	}
	return out
}

func positions(entries []standings.RankedEntry) []int {
	out := make([]int, len(entries))
	for n, e := range entries {
		out[n] = e.Position
	}
	return out
}

func race(driverIDs ...string) model.Race {
	r := model.Race{ID: "r"}
	for _, id := range driverIDs {
		r.Participants = append(r.Participants, model.Participation{DriverID: id})
	}
	return r
}

func TestRankFinishOrder(t *testing.T) {
	Convey("Given a race A, B, C without measurements", t, func() {
		ps := race("A", "B", "C").Participants

		Convey("When ranked by finish order descending", func() {
			got := standings.Rank(ps, standings.SortFinishOrder, standings.Descending)

			Convey("Then the order is reversed and positions track the original index", func() {
				So(ids(got), ShouldResemble, []string{"C", "B", "A"})
				So(positions(got), ShouldResemble, []int{3, 2, 1})
			})
		})

		Convey("When ranked by best lap time with no times recorded", func() {
			got := standings.Rank(ps, standings.SortBestLapTime, standings.Descending)

			Convey("Then the original order is kept and no gaps are shown", func() {
				So(ids(got), ShouldResemble, []string{"A", "B", "C"})
				for _, e := range got {
					So(e.Gap, ShouldBeNil)
				}
			})
		})

		Convey("When ranked by an unparsed key", func() {
			got := standings.Rank(ps, standings.SortKey("points"), standings.Descending)

			Convey("Then the participant order is kept as is", func() {
				So(ids(got), ShouldResemble, []string{"A", "B", "C"})
				So(positions(got), ShouldResemble, []int{1, 2, 3})
			})
		})

		Convey("Then the input is never reordered", func() {
			standings.Rank(ps, standings.SortFinishOrder, standings.Descending)
			So(ps[0].DriverID, ShouldEqual, "A")
		})
	})

	Convey("An empty race ranks to an empty sequence", t, func() {
		got := standings.Rank(nil, standings.SortStartOrder, standings.Ascending)
		So(got, ShouldNotBeNil)
		So(got, ShouldBeEmpty)
	})
}

func TestRankBestLapTime(t *testing.T) {
	Convey("Given a race with mixed lap times", t, func() {
		ps := []model.Participation{
			{DriverID: "A", BestLapTime: f(31.5)},
			{DriverID: "B"},
			{DriverID: "C", BestLapTime: f(30.25)},
			{DriverID: "D", BestLapTime: f(31.5)},
			{DriverID: "E"},
		}

		got := standings.Rank(ps, standings.SortBestLapTime, standings.Ascending)

		Convey("Then times sort ascending, ties are stable and missing go last", func() {
			So(ids(got), ShouldResemble, []string{"C", "A", "D", "B", "E"})
			So(positions(got), ShouldResemble, []int{3, 1, 4, 2, 5})
		})

		Convey("Then gaps are measured from the leader", func() {
			So(got[0].Gap, ShouldBeNil)
			So(*got[1].Gap, ShouldAlmostEqual, 1.25)
			So(*got[2].Gap, ShouldAlmostEqual, 1.25)
			So(got[3].Gap, ShouldBeNil)
			So(got[4].Gap, ShouldBeNil)
		})

		Convey("Then direction is ignored", func() {
			So(ids(standings.Rank(ps, standings.SortBestLapTime, standings.Descending)), ShouldResemble, ids(got))
		})

		Convey("Then sorting twice yields the same order", func() {
			So(ids(standings.Rank(ps, standings.SortBestLapTime, standings.Ascending)), ShouldResemble, ids(got))
		})

		Convey("Then no grid deltas are attached", func() {
			for _, e := range got {
				So(e.GridDelta, ShouldBeNil)
			}
		})
	})

	Convey("A driver tied with the leader gets no gap", t, func() {
		ps := []model.Participation{{DriverID: "A", BestLapTime: f(30)}, {DriverID: "B", BestLapTime: f(30)}}
		got := standings.Rank(ps, standings.SortBestLapTime, standings.Ascending)
		So(got[1].Gap, ShouldBeNil)
	})
}

func TestRankStartOrder(t *testing.T) {
	Convey("Given a race with grid positions", t, func() {
		ps := []model.Participation{
			{DriverID: "A", StartOrder: i(3)},
			{DriverID: "B", StartOrder: i(1)},
			{DriverID: "C"},
			{DriverID: "D", StartOrder: i(4)},
		}

		Convey("When ranked ascending", func() {
			got := standings.Rank(ps, standings.SortStartOrder, standings.Ascending)

			Convey("Then grid order is used with missing last", func() {
				So(ids(got), ShouldResemble, []string{"B", "A", "D", "C"})
			})

			Convey("Then grid deltas compare start order to the finish position", func() {
				So(*got[0].GridDelta, ShouldEqual, -1) // B started 1st, finished 2nd
				So(*got[1].GridDelta, ShouldEqual, 2)  // A started 3rd, won
				So(got[2].GridDelta, ShouldBeNil)      // D started and finished 4th
				So(got[3].GridDelta, ShouldBeNil)
			})
		})

		Convey("When ranked descending", func() {
			got := standings.Rank(ps, standings.SortStartOrder, standings.Descending)

			Convey("Then missing start orders still sort last", func() {
				So(ids(got), ShouldResemble, []string{"D", "A", "B", "C"})
			})
		})
	})
}

func TestPositionInvariance(t *testing.T) {
	Convey("Given any sort, a participation keeps its original finish position", t, func() {
		ps := []model.Participation{
			{DriverID: "A", BestLapTime: f(33), StartOrder: i(2)},
			{DriverID: "B", BestLapTime: f(31), StartOrder: i(3)},
			{DriverID: "C", StartOrder: i(1)},
		}
		want := map[string]int{"A": 1, "B": 2, "C": 3}
		for _, key := range []standings.SortKey{standings.SortFinishOrder, standings.SortBestLapTime, standings.SortStartOrder} {
			for _, e := range standings.Rank(ps, key, standings.Ascending) {
				So(e.Position, ShouldEqual, want[e.Participation.DriverID])
			}
		}
	})
}

func TestParse(t *testing.T) {
	Convey("Given query values", t, func() {
		k, err := standings.ParseSortKey("")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, standings.SortFinishOrder)

		k, err = standings.ParseSortKey(" Best-Lap-Time ")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, standings.SortBestLapTime)

		_, err = standings.ParseSortKey("points")
		So(errors.Is(err, standings.ErrUnknownSortKey), ShouldBeTrue)

		d, err := standings.ParseDirection("DESC")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, standings.Descending)

		_, err = standings.ParseDirection("up")
		So(errors.Is(err, standings.ErrUnknownDirection), ShouldBeTrue)
	})
}

func tournament(races ...model.Race) model.Tournament {
	return model.Tournament{ID: "t", Races: races}
}

func finishing(pos int, driverID string) model.Race {
	r := model.Race{}
	for n := 1; n < pos; n++ {
		r.Participants = append(r.Participants, model.Participation{DriverID: "filler"})
	}
	r.Participants = append(r.Participants, model.Participation{DriverID: driverID})
	return r
}

func TestRating(t *testing.T) {
	Convey("Given the position delta table", t, func() {
		So(standings.Delta(1), ShouldEqual, 8)
		So(standings.Delta(8), ShouldEqual, 1)
		So(standings.Delta(9), ShouldEqual, -1)
		So(standings.Delta(16), ShouldEqual, -8)
	})

	Convey("Given a driver who won once and finished 9th once", t, func() {
		r := standings.Rate([]model.Tournament{tournament(finishing(1, "D"), finishing(9, "D"))})

		So(r.Of("D"), ShouldEqual, 907)
	})

	Convey("A driver who never raced keeps the base rating", t, func() {
		So(standings.Rate(nil).Of("nobody"), ShouldEqual, standings.BaseRating)
	})

	Convey("Given the same races in different orders", t, func() {
		r1 := race("A", "B", "C")
		r2 := race("C", "A")
		r3 := race("B")
		forward := standings.Rate([]model.Tournament{tournament(r1, r2), tournament(r3)})
		backward := standings.Rate([]model.Tournament{tournament(r3), tournament(r2, r1)})

		Convey("Then ratings are identical", func() {
			So(forward, ShouldResemble, backward)
		})

		Convey("When one more race is added", func() {
			extra := race("X", "Y", "B")
			after := standings.Rate([]model.Tournament{tournament(r1, r2), tournament(r3, extra)})

			Convey("Then only its participants move, by the position delta", func() {
				So(after.Of("B")-forward.Of("B"), ShouldEqual, standings.Delta(3))
				So(after.Of("A"), ShouldEqual, forward.Of("A"))
				So(after.Of("C"), ShouldEqual, forward.Of("C"))
				So(after.Of("X"), ShouldEqual, standings.BaseRating+8)
			})
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given a driver finishing 5th, 2nd and 9th", t, func() {
		stats := standings.Aggregate([]model.Tournament{
			tournament(finishing(5, "D"), finishing(2, "D")),
			tournament(finishing(9, "D")),
		})

		s := stats.Of("D")
		So(s.RaceCount, ShouldEqual, 3)
		best, ok := s.Best()
		So(ok, ShouldBeTrue)
		So(best, ShouldEqual, 2)
	})

	Convey("A driver without races has no best finish", t, func() {
		_, ok := standings.Aggregate(nil).Of("D").Best()
		So(ok, ShouldBeFalse)
	})

	Convey("A driver listed twice in one race is counted once", t, func() {
		s := standings.Aggregate([]model.Tournament{tournament(race("A", "D", "D"))}).Of("D")
		So(s.RaceCount, ShouldEqual, 1)
		So(s.BestFinish, ShouldEqual, 2)
	})
}

func TestSeason(t *testing.T) {
	Convey("Given a concluded tournament", t, func() {
		tour := model.Tournament{Status: model.StatusConcluded, Results: []model.SeasonResult{
			{DriverID: "a", Points: i(10)},
			{DriverID: "b"},
			{DriverID: "c", Points: i(25)},
			{DriverID: "d", Points: i(10)},
		}}

		table := standings.Season(tour)

		Convey("Then rows are ordered by points with missing last", func() {
			So(table.Partial, ShouldBeFalse)
			got := make([]string, len(table.Rows))
			for n, r := range table.Rows {
				got[n] = r.Result.DriverID
			}
			So(got, ShouldResemble, []string{"c", "a", "d", "b"})
			So(table.Rows[0].Place, ShouldEqual, 1)
			So(table.Rows[3].Place, ShouldEqual, 4)
		})
	})

	Convey("An in-progress tournament has a partial empty table", t, func() {
		table := standings.Season(model.Tournament{Status: model.StatusInProgress, Results: []model.SeasonResult{{DriverID: "a"}}})
		So(table.Partial, ShouldBeTrue)
		So(table.Rows, ShouldBeEmpty)
	})
}

func TestCards(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		snap := model.Snapshot{
			Drivers:     []model.Driver{{ID: "A"}, {ID: "Z"}},
			Tournaments: []model.Tournament{tournament(race("A", "B"))},
		}

		cards := standings.Cards(snap)

		So(len(cards), ShouldEqual, 2)
		So(cards[0].Rating, ShouldEqual, 908)
		So(cards[0].Stats.RaceCount, ShouldEqual, 1)
		So(cards[1].Rating, ShouldEqual, standings.BaseRating)
		So(cards[1].Stats.RaceCount, ShouldEqual, 0)
	})
}
