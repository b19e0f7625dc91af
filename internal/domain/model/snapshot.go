package model

import "time"

// Snapshot is a point-in-time copy of the roster and the result history.
// Consumers treat it as read-only.
type Snapshot struct {
	Tournaments []Tournament
	Drivers     []Driver
	FetchedAt   time.Time
}

// Driver looks up a driver by id.
func (s Snapshot) Driver(id string) (Driver, bool) {
	for _, d := range s.Drivers {
		if d.ID == id {
			return d, true
		}
	}
	return Driver{}, false
}

// DriverByEmail returns the first driver linked to email in roster order.
func (s Snapshot) DriverByEmail(email string) (Driver, bool) {
	if email == "" {
		return Driver{}, false
	}
	for _, d := range s.Drivers {
		if d.OwnedBy(email) {
			return d, true
		}
	}
	return Driver{}, false
}

// Tournament looks up a tournament by id.
func (s Snapshot) Tournament(id string) (Tournament, bool) {
	for _, t := range s.Tournaments {
		if t.ID == id {
			return t, true
		}
	}
	return Tournament{}, false
}

// Size summarizes a snapshot.
type Size struct {
	Drivers        int
	Linked         int
	Tournaments    int
	Races          int
	Participations int
}

// Size counts the records in the snapshot.
func (s Snapshot) Size() Size {
	sz := Size{Drivers: len(s.Drivers), Tournaments: len(s.Tournaments)}
	for _, d := range s.Drivers {
		if d.IsLinked() {
			sz.Linked++
		}
	}
	for _, t := range s.Tournaments {
		sz.Races += len(t.Races)
		for _, r := range t.Races {
			sz.Participations += len(r.Participants)
		}
	}
	return sz
}
