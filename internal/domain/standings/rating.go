package standings

import "github.com/okian/kartboard/internal/domain/model"

// BaseRating is the rating of a driver before any race.
const BaseRating = 900

// mid is the last finish position that still earns a positive delta.
const mid = 8

// Delta is the rating change for finishing at 1-based position p:
// 1st earns +8 down to 8th +1, then 9th loses 1, 10th loses 2 and so on.
func Delta(p int) int {
	if p <= mid {
		return mid + 1 - p
	}
	return mid - p
}

// Ratings maps driver id to rating. Drivers without races are absent.
type Ratings map[string]int

// Of returns the rating of a driver, BaseRating if they never raced.
func (r Ratings) Of(driverID string) int {
	if v, ok := r[driverID]; ok {
		return v
	}
	return BaseRating
}

// Rate folds every participation of every race into a rating per driver.
// There is no decay or normalization.
func Rate(tournaments []model.Tournament) Ratings {
	ratings := make(Ratings)
	for _, t := range tournaments {
		for _, race := range t.Races {
			for i, p := range race.Participants {
				ratings[p.DriverID] = ratings.Of(p.DriverID) + Delta(i+1)
			}
		}
	}
	return ratings
}
