// Package seed reads YAML league fixtures and writes them into a store.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/kartboard/internal/domain/model"
)

// Fixture is the YAML layout of a league.
type Fixture struct {
	Drivers     []Driver     `koanf:"drivers"`
	Tournaments []Tournament `koanf:"tournaments"`
}

// Driver is a roster entry of a fixture.
type Driver struct {
	ID                string   `koanf:"id"`
	GivenName         string   `koanf:"given_name"`
	FamilyName        string   `koanf:"family_name"`
	Team              string   `koanf:"team"`
	SeasonPoints      *int     `koanf:"season_points"`
	LinkedEmail       string   `koanf:"linked_email"`
	AttendingNextRace bool     `koanf:"attending_next_race"`
	Phrase            string   `koanf:"phrase"`
	Number            *int     `koanf:"number"`
	WeightKg          *float64 `koanf:"weight_kg"`
	Photo             string   `koanf:"photo"`
}

// Tournament is a tournament of a fixture.
type Tournament struct {
	ID          string         `koanf:"id"`
	Name        string         `koanf:"name"`
	Venue       string         `koanf:"venue"`
	Status      string         `koanf:"status"`
	Rules       []string       `koanf:"rules"`
	PointsTable []PointsRow    `koanf:"points_table"`
	ExtraPoints string         `koanf:"extra_points"`
	Results     []SeasonResult `koanf:"results"`
	Races       []Race         `koanf:"races"`
}

// PointsRow is a points-by-position line.
type PointsRow struct {
	Position string `koanf:"position"`
	Points   int    `koanf:"points"`
}

// SeasonResult is a final table row.
type SeasonResult struct {
	DriverID   string `koanf:"driver_id"`
	GivenName  string `koanf:"given_name"`
	FamilyName string `koanf:"family_name"`
	Team       string `koanf:"team"`
	Points     *int   `koanf:"points"`
}

// Race is a race of a fixture; participants are listed in finish order.
type Race struct {
	ID           string          `koanf:"id"`
	Name         string          `koanf:"name"`
	Date         string          `koanf:"date"`
	Venue        string          `koanf:"venue"`
	Featured     bool            `koanf:"featured"`
	Detail       string          `koanf:"detail"`
	Sessions     []Session       `koanf:"sessions"`
	Participants []Participation `koanf:"participants"`
}

// Session is a block of a race day.
type Session struct {
	Name string `koanf:"name"`
	Time string `koanf:"time"`
}

// Participation is one result line.
type Participation struct {
	DriverID    string   `koanf:"driver_id"`
	Name        string   `koanf:"name"`
	BestLapTime *float64 `koanf:"best_lap_time"`
	StartOrder  *int     `koanf:"start_order"`
	LapCount    *int     `koanf:"lap_count"`
	KartNumber  *int     `koanf:"kart_number"`
}

// Writer is the part of a store that seeding needs.
type Writer interface {
	PutDriver(ctx context.Context, d model.Driver) error
	PutTournament(ctx context.Context, t model.Tournament) error
}

// Load reads the fixture at path and converts it to a snapshot.
func Load(path string) (model.Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	var f Fixture
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return f.Snapshot()
}

// Snapshot validates the fixture and converts it.
func (f Fixture) Snapshot() (model.Snapshot, error) {
	var snap model.Snapshot
	ids := make(map[string]bool, len(f.Drivers))
	emails := make(map[string]string)
	for i, d := range f.Drivers {
		if strings.TrimSpace(d.ID) == "" {
			return model.Snapshot{}, fmt.Errorf("%w: driver %d has no id", ErrInvalid, i+1)
		}
		if ids[d.ID] {
			return model.Snapshot{}, fmt.Errorf("%w: duplicate driver %q", ErrInvalid, d.ID)
		}
		ids[d.ID] = true
		email := strings.ToLower(strings.TrimSpace(d.LinkedEmail))
		if email != "" {
			if other, ok := emails[email]; ok {
				return model.Snapshot{}, fmt.Errorf("%w: %s links both %q and %q", ErrInvalid, email, other, d.ID)
			}
			emails[email] = d.ID
		}
		snap.Drivers = append(snap.Drivers, model.Driver{
			ID:                d.ID,
			GivenName:         strings.TrimSpace(d.GivenName),
			FamilyName:        strings.TrimSpace(d.FamilyName),
			Team:              d.Team,
			SeasonPoints:      d.SeasonPoints,
			LinkedEmail:       email,
			Linked:            email != "",
			AttendingNextRace: d.AttendingNextRace,
			Phrase:            d.Phrase,
			Number:            d.Number,
			WeightKg:          d.WeightKg,
			Photo:             d.Photo,
		})
	}

	for _, ft := range f.Tournaments {
		t, err := ft.model()
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Tournaments = append(snap.Tournaments, t)
	}
	return snap, nil
}

func (ft Tournament) model() (model.Tournament, error) {
	t := model.Tournament{
		ID:          ft.ID,
		Name:        ft.Name,
		Venue:       ft.Venue,
		Status:      model.ParseStatus(ft.Status),
		Rules:       ft.Rules,
		ExtraPoints: ft.ExtraPoints,
	}
	if strings.TrimSpace(t.ID) == "" {
		return model.Tournament{}, fmt.Errorf("%w: tournament %q has no id", ErrInvalid, ft.Name)
	}
	for _, p := range ft.PointsTable {
		t.PointsTable = append(t.PointsTable, model.PointsRow{Position: p.Position, Points: p.Points})
	}
	for _, r := range ft.Results {
		t.Results = append(t.Results, model.SeasonResult{
			DriverID:   r.DriverID,
			GivenName:  r.GivenName,
			FamilyName: r.FamilyName,
			Team:       r.Team,
			Points:     r.Points,
		})
	}
	for _, fr := range ft.Races {
		date, err := model.ParseDate(fr.Date)
		if err != nil {
			return model.Tournament{}, fmt.Errorf("%w: tournament %q race %q: %w", ErrInvalid, ft.ID, fr.ID, err)
		}
		r := model.Race{
			ID:       fr.ID,
			Name:     fr.Name,
			Date:     date,
			Venue:    fr.Venue,
			Featured: fr.Featured,
			Detail:   fr.Detail,
		}
		for _, s := range fr.Sessions {
			r.Sessions = append(r.Sessions, model.Session{Name: s.Name, Time: s.Time})
		}
		for _, p := range fr.Participants {
			r.Participants = append(r.Participants, model.Participation{
				DriverID:    p.DriverID,
				Name:        p.Name,
				BestLapTime: p.BestLapTime,
				StartOrder:  p.StartOrder,
				LapCount:    p.LapCount,
				KartNumber:  p.KartNumber,
			})
		}
		t.Races = append(t.Races, r)
	}
	if err := t.Validate(); err != nil {
		return model.Tournament{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return t, nil
}

// Apply upserts every record of snap into w.
func Apply(ctx context.Context, w Writer, snap model.Snapshot) error {
	for _, d := range snap.Drivers {
		if err := w.PutDriver(ctx, d); err != nil {
			return fmt.Errorf("put driver %q: %w", d.ID, err)
		}
	}
	for _, t := range snap.Tournaments {
		if err := w.PutTournament(ctx, t); err != nil {
			return fmt.Errorf("put tournament %q: %w", t.ID, err)
		}
	}
	return nil
}
