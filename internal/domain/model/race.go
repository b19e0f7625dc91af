package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by stores and the API.
const DateLayout = "2006-01-02"

// Participation is one driver's entry in one race. The measurement fields
// are a fixed set; nil means the value was not recorded.
type Participation struct {
	DriverID string
	// Name is the snapshot of the driver's name at race time.
	Name string

	BestLapTime *float64 // seconds, lower is better
	StartOrder  *int     // grid position
	LapCount    *int
	KartNumber  *int
}

// Validate rejects structurally invalid participations.
func (p Participation) Validate() error {
	if strings.TrimSpace(p.DriverID) == "" {
		return ErrMissingDriverID
	}
	return nil
}

// Session is a scheduled block inside a race day (heats, qualifying...).
type Session struct {
	Name string
	Time string
}

// Race is a single event. Participants order is the finishing order and
// is never re-sorted.
type Race struct {
	ID       string
	Name     string
	Date     time.Time // zero when not yet scheduled
	Venue    string
	Featured bool
	Detail   string
	Sessions []Session

	Participants []Participation
}

// Scheduled reports whether the race has a calendar date.
func (r Race) Scheduled() bool {
	return !r.Date.IsZero()
}

// DateString formats the race date, or returns "" when unscheduled.
func (r Race) DateString() string {
	if !r.Scheduled() {
		return ""
	}
	return r.Date.Format(DateLayout)
}

// Validate checks every participation of the race.
func (r Race) Validate() error {
	for i, p := range r.Participants {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("race %q participant %d: %w", r.ID, i+1, err)
		}
	}
	return nil
}

// ParseDate parses a DateLayout date. The empty string is an unscheduled date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// SortRaces returns races ordered by date with unscheduled races last.
// Races on the same date keep their relative order.
func SortRaces(races []Race) []Race {
	out := slices.Clone(races)
	slices.SortStableFunc(out, func(a, b Race) int {
		switch {
		case a.Scheduled() && b.Scheduled():
			return a.Date.Compare(b.Date)
		case a.Scheduled():
			return -1
		case b.Scheduled():
			return 1
		default:
			return 0
		}
	})
	return out
}
