package standings

import (
	"cmp"
	"slices"

	"github.com/okian/kartboard/internal/domain/model"
)

// SeasonRow is one place of a season table.
type SeasonRow struct {
	Place  int
	Result model.SeasonResult
}

// SeasonTable is the final or partial table of a tournament.
type SeasonTable struct {
	// Partial is set for tournaments still in progress; Rows is then empty.
	Partial bool
	Rows    []SeasonRow
}

// Season orders a tournament's results by points, highest first. Rows
// without points go last; ties keep the stored order.
func Season(t model.Tournament) SeasonTable {
	if t.InProgress() {
		return SeasonTable{Partial: true, Rows: []SeasonRow{}}
	}
	results := slices.Clone(t.Results)
	slices.SortStableFunc(results, func(a, b model.SeasonResult) int {
		switch {
		case a.Points == nil && b.Points == nil:
			return 0
		case a.Points == nil:
			return 1
		case b.Points == nil:
			return -1
		default:
			return cmp.Compare(*b.Points, *a.Points)
		}
	})
	rows := make([]SeasonRow, len(results))
	for i, r := range results {
		rows[i] = SeasonRow{Place: i + 1, Result: r}
	}
	return SeasonTable{Rows: rows}
}
