package repository

import (
	"fmt"

	"github.com/okian/kartboard/internal/domain/model"
)

// Document shapes stored in MongoDB. Races are embedded in their tournament.

type driverDoc struct {
	ID                string   `bson:"_id"`
	GivenName         string   `bson:"givenName"`
	FamilyName        string   `bson:"familyName,omitempty"`
	Team              string   `bson:"team,omitempty"`
	SeasonPoints      *int     `bson:"seasonPoints,omitempty"`
	LinkedEmail       string   `bson:"linkedEmail,omitempty"`
	Linked            bool     `bson:"linked"`
	AttendingNextRace bool     `bson:"attendingNextRace"`
	Phrase            string   `bson:"phrase,omitempty"`
	Number            *int     `bson:"number,omitempty"`
	WeightKg          *float64 `bson:"weightKg,omitempty"`
	Photo             string   `bson:"photo,omitempty"`
}

type participationDoc struct {
	DriverID    string   `bson:"driverId"`
	Name        string   `bson:"name,omitempty"`
	BestLapTime *float64 `bson:"bestLapTime,omitempty"`
	StartOrder  *int     `bson:"startOrder,omitempty"`
	LapCount    *int     `bson:"lapCount,omitempty"`
	KartNumber  *int     `bson:"kartNumber,omitempty"`
}

type sessionDoc struct {
	Name string `bson:"name"`
	Time string `bson:"time,omitempty"`
}

type raceDoc struct {
	ID           string             `bson:"id"`
	Name         string             `bson:"name"`
	Date         string             `bson:"date,omitempty"`
	Venue        string             `bson:"venue,omitempty"`
	Featured     bool               `bson:"featured,omitempty"`
	Detail       string             `bson:"detail,omitempty"`
	Sessions     []sessionDoc       `bson:"sessions,omitempty"`
	Participants []participationDoc `bson:"participants"`
}

type pointsRowDoc struct {
	Position string `bson:"position"`
	Points   int    `bson:"points"`
}

type seasonResultDoc struct {
	DriverID   string `bson:"driverId"`
	GivenName  string `bson:"givenName"`
	FamilyName string `bson:"familyName,omitempty"`
	Team       string `bson:"team,omitempty"`
	Points     *int   `bson:"points,omitempty"`
}

type tournamentDoc struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Venue       string            `bson:"venue,omitempty"`
	Status      string            `bson:"status,omitempty"`
	Rules       []string          `bson:"rules,omitempty"`
	PointsTable []pointsRowDoc    `bson:"pointsTable,omitempty"`
	ExtraPoints string            `bson:"extraPoints,omitempty"`
	Results     []seasonResultDoc `bson:"results,omitempty"`
	Races       []raceDoc         `bson:"races"`
}

func toDriverDoc(d model.Driver) driverDoc {
	return driverDoc{
		ID:                d.ID,
		GivenName:         d.GivenName,
		FamilyName:        d.FamilyName,
		Team:              d.Team,
		SeasonPoints:      d.SeasonPoints,
		LinkedEmail:       d.LinkedEmail,
		Linked:            d.IsLinked(),
		AttendingNextRace: d.AttendingNextRace,
		Phrase:            d.Phrase,
		Number:            d.Number,
		WeightKg:          d.WeightKg,
		Photo:             d.Photo,
	}
}

func (d driverDoc) model() model.Driver {
	return model.Driver{
		ID:                d.ID,
		GivenName:         d.GivenName,
		FamilyName:        d.FamilyName,
		Team:              d.Team,
		SeasonPoints:      d.SeasonPoints,
		LinkedEmail:       d.LinkedEmail,
		Linked:            d.Linked && d.LinkedEmail != "",
		AttendingNextRace: d.AttendingNextRace,
		Phrase:            d.Phrase,
		Number:            d.Number,
		WeightKg:          d.WeightKg,
		Photo:             d.Photo,
	}
}

func toTournamentDoc(t model.Tournament) tournamentDoc {
	doc := tournamentDoc{
		ID:          t.ID,
		Name:        t.Name,
		Venue:       t.Venue,
		Status:      string(t.Status),
		Rules:       t.Rules,
		ExtraPoints: t.ExtraPoints,
		Races:       make([]raceDoc, len(t.Races)),
	}
	for _, p := range t.PointsTable {
		doc.PointsTable = append(doc.PointsTable, pointsRowDoc(p))
	}
	for _, r := range t.Results {
		doc.Results = append(doc.Results, seasonResultDoc(r))
	}
	for i, r := range t.Races {
		rd := raceDoc{
			ID:           r.ID,
			Name:         r.Name,
			Date:         r.DateString(),
			Venue:        r.Venue,
			Featured:     r.Featured,
			Detail:       r.Detail,
			Participants: make([]participationDoc, len(r.Participants)),
		}
		for _, s := range r.Sessions {
			rd.Sessions = append(rd.Sessions, sessionDoc(s))
		}
		for j, p := range r.Participants {
			rd.Participants[j] = participationDoc(p)
		}
		doc.Races[i] = rd
	}
	return doc
}

// model converts a stored tournament. Unparseable dates become unscheduled
// and are reported in warnings; a participation without a driver id makes
// the whole tournament invalid.
func (d tournamentDoc) model() (model.Tournament, []string, error) {
	var warnings []string
	t := model.Tournament{
		ID:          d.ID,
		Name:        d.Name,
		Venue:       d.Venue,
		Status:      model.ParseStatus(d.Status),
		Rules:       d.Rules,
		ExtraPoints: d.ExtraPoints,
		Races:       make([]model.Race, len(d.Races)),
	}
	for _, p := range d.PointsTable {
		t.PointsTable = append(t.PointsTable, model.PointsRow(p))
	}
	for _, r := range d.Results {
		t.Results = append(t.Results, model.SeasonResult(r))
	}
	for i, rd := range d.Races {
		date, err := model.ParseDate(rd.Date)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("race %q: %v", rd.ID, err))
		}
		r := model.Race{
			ID:           rd.ID,
			Name:         rd.Name,
			Date:         date,
			Venue:        rd.Venue,
			Featured:     rd.Featured,
			Detail:       rd.Detail,
			Participants: make([]model.Participation, len(rd.Participants)),
		}
		for _, s := range rd.Sessions {
			r.Sessions = append(r.Sessions, model.Session(s))
		}
		for j, p := range rd.Participants {
			r.Participants[j] = model.Participation(p)
		}
		t.Races[i] = r
	}
	if err := t.Validate(); err != nil {
		return model.Tournament{}, warnings, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	t.Races = model.SortRaces(t.Races)
	return t, warnings, nil
}
