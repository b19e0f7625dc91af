// Package types contains the JSON views returned by the API.
package types

import (
	"time"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/standings"
)

// Driver is a roster card: the driver record joined with computed values.
type Driver struct {
	ID                string   `json:"id"`
	GivenName         string   `json:"givenName"`
	FamilyName        string   `json:"familyName,omitempty"`
	FullName          string   `json:"fullName"`
	Team              string   `json:"team,omitempty"`
	SeasonPoints      *int     `json:"seasonPoints,omitempty"`
	Linked            bool     `json:"linked"`
	AttendingNextRace bool     `json:"attendingNextRace"`
	Phrase            string   `json:"phrase,omitempty"`
	Number            *int     `json:"number,omitempty"`
	WeightKg          *float64 `json:"weightKg,omitempty"`
	Photo             string   `json:"photo"`

	Rating     int  `json:"rating"`
	RaceCount  int  `json:"raceCount"`
	BestFinish *int `json:"bestFinish,omitempty"`
}

// NewDriver builds a card view. Drivers without an uploaded photo get the
// conventional static path derived from their name.
func NewDriver(c standings.Card) Driver {
	d := c.Driver
	v := Driver{
		ID:                d.ID,
		GivenName:         d.GivenName,
		FamilyName:        d.FamilyName,
		FullName:          d.FullName(),
		Team:              d.Team,
		SeasonPoints:      d.SeasonPoints,
		Linked:            d.IsLinked(),
		AttendingNextRace: d.AttendingNextRace,
		Phrase:            d.Phrase,
		Number:            d.Number,
		WeightKg:          d.WeightKg,
		Photo:             d.Photo,
		Rating:            c.Rating,
		RaceCount:         c.Stats.RaceCount,
	}
	if best, ok := c.Stats.Best(); ok {
		v.BestFinish = &best
	}
	if v.Photo == "" {
		v.Photo = "/drivers/" + linking.Slug(v.FullName) + ".jpg"
	}
	return v
}

// RankedEntry is one row of a race ranking.
type RankedEntry struct {
	Position    int      `json:"position"`
	DriverID    string   `json:"driverId"`
	Name        string   `json:"name"`
	BestLapTime *float64 `json:"bestLapTime,omitempty"`
	StartOrder  *int     `json:"startOrder,omitempty"`
	LapCount    *int     `json:"lapCount,omitempty"`
	KartNumber  *int     `json:"kartNumber,omitempty"`
	Gap         *float64 `json:"gap,omitempty"`
	GridDelta   *int     `json:"gridDelta,omitempty"`
}

// Session is a block of a race day.
type Session struct {
	Name string `json:"name"`
	Time string `json:"time,omitempty"`
}

// RaceRanking is a race with its participants in a display order.
type RaceRanking struct {
	TournamentID string              `json:"tournamentId"`
	RaceID       string              `json:"raceId"`
	Name         string              `json:"name"`
	Date         string              `json:"date,omitempty"`
	Venue        string              `json:"venue,omitempty"`
	Detail       string              `json:"detail,omitempty"`
	Sessions     []Session           `json:"sessions,omitempty"`
	Sort         standings.SortKey   `json:"sort"`
	Direction    standings.Direction `json:"dir"`
	Entries      []RankedEntry       `json:"entries"`
}

// NewRaceRanking builds the view of a ranked race.
func NewRaceRanking(tournamentID string, r model.Race, key standings.SortKey, dir standings.Direction, ranked []standings.RankedEntry) RaceRanking {
	entries := make([]RankedEntry, len(ranked))
	for i, e := range ranked {
		p := e.Participation
		entries[i] = RankedEntry{
			Position:    e.Position,
			DriverID:    p.DriverID,
			Name:        p.Name,
			BestLapTime: p.BestLapTime,
			StartOrder:  p.StartOrder,
			LapCount:    p.LapCount,
			KartNumber:  p.KartNumber,
			Gap:         e.Gap,
			GridDelta:   e.GridDelta,
		}
	}
	return RaceRanking{
		TournamentID: tournamentID,
		RaceID:       r.ID,
		Name:         r.Name,
		Date:         r.DateString(),
		Venue:        r.Venue,
		Detail:       r.Detail,
		Sessions:     sessions(r.Sessions),
		Sort:         key,
		Direction:    dir,
		Entries:      entries,
	}
}

func sessions(in []model.Session) []Session {
	if len(in) == 0 {
		return nil
	}
	out := make([]Session, len(in))
	for i, s := range in {
		out[i] = Session{Name: s.Name, Time: s.Time}
	}
	return out
}

// RaceSummary describes a race without its results.
type RaceSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Date         string    `json:"date,omitempty"`
	Venue        string    `json:"venue,omitempty"`
	Featured     bool      `json:"featured,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Sessions     []Session `json:"sessions,omitempty"`
	Participants int       `json:"participants"`
}

// PointsRow is a line of a points-by-position table.
type PointsRow struct {
	Position string `json:"position"`
	Points   int    `json:"points"`
}

// TournamentSummary is a tournament list item.
type TournamentSummary struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Venue  string       `json:"venue,omitempty"`
	Status model.Status `json:"status,omitempty"`
	Races  int          `json:"races"`
}

// NewTournamentSummary builds a list item.
func NewTournamentSummary(t model.Tournament) TournamentSummary {
	return TournamentSummary{ID: t.ID, Name: t.Name, Venue: t.Venue, Status: t.Status, Races: len(t.Races)}
}

// Tournament is the detail view of a tournament.
type Tournament struct {
	TournamentSummary
	Rules       []string      `json:"rules,omitempty"`
	PointsTable []PointsRow   `json:"pointsTable,omitempty"`
	ExtraPoints string        `json:"extraPoints,omitempty"`
	Schedule    []RaceSummary `json:"schedule"`
}

// NewTournament builds the detail view of a tournament.
func NewTournament(t model.Tournament) Tournament {
	v := Tournament{
		TournamentSummary: NewTournamentSummary(t),
		Rules:             t.Rules,
		ExtraPoints:       t.ExtraPoints,
		Schedule:          make([]RaceSummary, len(t.Races)),
	}
	for _, p := range t.PointsTable {
		v.PointsTable = append(v.PointsTable, PointsRow{Position: p.Position, Points: p.Points})
	}
	for i, r := range t.Races {
		v.Schedule[i] = RaceSummary{
			ID:           r.ID,
			Name:         r.Name,
			Date:         r.DateString(),
			Venue:        r.Venue,
			Featured:     r.Featured,
			Detail:       r.Detail,
			Sessions:     sessions(r.Sessions),
			Participants: len(r.Participants),
		}
	}
	return v
}

// SeasonRow is a place in a season table.
type SeasonRow struct {
	Place      int    `json:"place"`
	DriverID   string `json:"driverId"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName,omitempty"`
	Team       string `json:"team,omitempty"`
	Points     *int   `json:"points,omitempty"`
}

// SeasonTable is the standings table of a tournament.
type SeasonTable struct {
	TournamentID string      `json:"tournamentId"`
	Partial      bool        `json:"partial"`
	Rows         []SeasonRow `json:"rows"`
}

// NewSeasonTable builds the view of a season table.
func NewSeasonTable(tournamentID string, st standings.SeasonTable) SeasonTable {
	rows := make([]SeasonRow, len(st.Rows))
	for i, r := range st.Rows {
		rows[i] = SeasonRow{
			Place:      r.Place,
			DriverID:   r.Result.DriverID,
			GivenName:  r.Result.GivenName,
			FamilyName: r.Result.FamilyName,
			Team:       r.Result.Team,
			Points:     r.Result.Points,
		}
	}
	return SeasonTable{TournamentID: tournamentID, Partial: st.Partial, Rows: rows}
}

// LinkOutcome tells the client which linking flow to show.
type LinkOutcome struct {
	Mode    linking.Mode `json:"mode"`
	Driver  *Driver      `json:"driver,omitempty"`
	Drivers []Driver     `json:"drivers"`
}

// Stats describes the snapshot the service is serving.
type Stats struct {
	FetchedAt      time.Time `json:"fetchedAt"`
	Source         string    `json:"source"`
	Stale          bool      `json:"stale"`
	LastError      string    `json:"lastError,omitempty"`
	Drivers        int       `json:"drivers"`
	Linked         int       `json:"linked"`
	Tournaments    int       `json:"tournaments"`
	Races          int       `json:"races"`
	Participations int       `json:"participations"`
}
