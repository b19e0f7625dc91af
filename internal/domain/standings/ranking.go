// Package standings computes the derived views of a result history:
// per-race rankings, the cumulative rating, per-driver aggregates and
// season tables. Every function is pure and recomputes from its inputs.
package standings

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/kartboard/internal/domain/model"
)

// SortKey selects the ordering of a race ranking.
type SortKey string

const (
	SortFinishOrder SortKey = "finish-order"
	SortBestLapTime SortKey = "best-lap-time"
	SortStartOrder  SortKey = "start-order"
)

// Direction is the requested sort direction. It is ignored for SortBestLapTime.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey parses a sort key; the empty string selects finish order.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortFinishOrder, nil
	case SortFinishOrder, SortBestLapTime, SortStartOrder:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}

// ParseDirection parses a direction; the empty string selects ascending.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Ascending, nil
	case Ascending, Descending:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// RankedEntry is one row of a race ranking.
type RankedEntry struct {
	Participation model.Participation

	// Position is the 1-based finish position in the original participant
	// order, whatever the active sort.
	Position int

	// Gap to the fastest lap; set only under SortBestLapTime when positive.
	Gap *float64
	// GridDelta is start order minus finish position; set only under
	// SortStartOrder when both are known and the delta is non-zero.
	// Positive means places gained.
	GridDelta *int
}

// Rank projects participants into a display order. The input is not modified.
// An unknown key keeps the participant order; use ParseSortKey to reject it.
func Rank(participants []model.Participation, key SortKey, dir Direction) []RankedEntry {
	entries := make([]RankedEntry, len(participants))
	for i, p := range participants {
		entries[i] = RankedEntry{Participation: p, Position: i + 1}
	}
	if len(entries) == 0 {
		return entries
	}

	switch key {
	case SortBestLapTime:
		slices.SortStableFunc(entries, compareLapTime)
		fillGaps(entries)
	case SortStartOrder:
		slices.SortStableFunc(entries, func(a, b RankedEntry) int {
			return compareStartOrder(a, b, dir)
		})
		fillGridDeltas(entries)
	case SortFinishOrder:
		if dir == Descending {
			slices.Reverse(entries)
		}
	}
	return entries
}

// compareLapTime orders by best lap ascending; missing times sort last.
func compareLapTime(a, b RankedEntry) int {
	at, bt := a.Participation.BestLapTime, b.Participation.BestLapTime
	switch {
	case at == nil && bt == nil:
		return 0
	case at == nil:
		return 1
	case bt == nil:
		return -1
	default:
		return cmp.Compare(*at, *bt)
	}
}

// compareStartOrder orders by grid position in dir; missing positions sort
// last in both directions.
func compareStartOrder(a, b RankedEntry, dir Direction) int {
	as, bs := a.Participation.StartOrder, b.Participation.StartOrder
	switch {
	case as == nil && bs == nil:
		return 0
	case as == nil:
		return 1
	case bs == nil:
		return -1
	case dir == Descending:
		return cmp.Compare(*bs, *as)
	default:
		return cmp.Compare(*as, *bs)
	}
}

func fillGaps(entries []RankedEntry) {
	leader := entries[0].Participation.BestLapTime
	if leader == nil {
		return
	}
	for i := 1; i < len(entries); i++ {
		t := entries[i].Participation.BestLapTime
		if t == nil {
			continue
		}
		if gap := *t - *leader; gap > 0 {
			entries[i].Gap = &gap
		}
	}
}

func fillGridDeltas(entries []RankedEntry) {
	for i := range entries {
		so := entries[i].Participation.StartOrder
		if so == nil {
			continue
		}
		if delta := *so - entries[i].Position; delta != 0 {
			entries[i].GridDelta = &delta
		}
	}
}
