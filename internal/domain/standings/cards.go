package standings

import "github.com/okian/kartboard/internal/domain/model"

// Card joins a roster driver with their computed rating and aggregates.
type Card struct {
	Driver model.Driver
	Rating int
	Stats  Stats
}

// Cards computes a card for every roster driver, in roster order.
func Cards(snap model.Snapshot) []Card {
	ratings := Rate(snap.Tournaments)
	stats := Aggregate(snap.Tournaments)
	cards := make([]Card, len(snap.Drivers))
	for i, d := range snap.Drivers {
		cards[i] = Card{Driver: d, Rating: ratings.Of(d.ID), Stats: stats.Of(d.ID)}
	}
	return cards
}
