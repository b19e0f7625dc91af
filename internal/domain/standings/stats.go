package standings

import "github.com/okian/kartboard/internal/domain/model"

// Stats are the per-driver aggregates over the full result history.
type Stats struct {
	RaceCount int
	// BestFinish is the lowest finish position; 0 when RaceCount is 0.
	BestFinish int
}

// Best returns the best finish and whether the driver has raced.
func (s Stats) Best() (int, bool) {
	return s.BestFinish, s.RaceCount > 0
}

// StatsTable maps driver id to aggregates.
type StatsTable map[string]Stats

// Of returns the aggregates of a driver; the zero Stats if they never raced.
func (t StatsTable) Of(driverID string) Stats {
	return t[driverID]
}

// Aggregate counts races and best finishes per driver. A driver listed
// twice in one race is counted once for that race, at their best position.
func Aggregate(tournaments []model.Tournament) StatsTable {
	table := make(StatsTable)
	for _, t := range tournaments {
		for _, race := range t.Races {
			seen := make(map[string]bool, len(race.Participants))
			for i, p := range race.Participants {
				pos := i + 1
				s := table[p.DriverID]
				if !seen[p.DriverID] {
					seen[p.DriverID] = true
					s.RaceCount++
				}
				if s.BestFinish == 0 || pos < s.BestFinish {
					s.BestFinish = pos
				}
				table[p.DriverID] = s
			}
		}
	}
	return table
}
