package model

import "fmt"

// Status is the lifecycle state of a tournament.
type Status string

const (
	StatusUnknown    Status = ""
	StatusConcluded  Status = "concluded"
	StatusInProgress Status = "in_progress"
)

// ParseStatus maps stored values to a Status; unknown values become StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusConcluded, StatusInProgress:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// PointsRow is one line of a tournament's points-by-position table.
// Position is a label such as "1°" or "4° a 10°".
type PointsRow struct {
	Position string
	Points   int
}

// SeasonResult is a row of a concluded tournament's final table.
type SeasonResult struct {
	DriverID   string
	GivenName  string
	FamilyName string
	Team       string
	Points     *int
}

// Tournament groups races with their rules and points tables.
type Tournament struct {
	ID          string
	Name        string
	Venue       string
	Status      Status
	Rules       []string
	PointsTable []PointsRow
	ExtraPoints string

	// Results is the season table, present only for concluded tournaments.
	Results []SeasonResult
	Races   []Race
}

// InProgress reports whether the tournament is live.
func (t Tournament) InProgress() bool {
	return t.Status == StatusInProgress
}

// Race looks up a race by id.
func (t Tournament) Race(id string) (Race, bool) {
	for _, r := range t.Races {
		if r.ID == id {
			return r, true
		}
	}
	return Race{}, false
}

// Validate checks every race of the tournament.
func (t Tournament) Validate() error {
	for _, r := range t.Races {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("tournament %q: %w", t.ID, err)
		}
	}
	return nil
}
