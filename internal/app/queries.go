package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/standings"
	"github.com/okian/kartboard/internal/domain/types"
	"github.com/okian/kartboard/pkg/metrics"
)

func observeCompute(view string, start time.Time) {
	metrics.RecordComputeDuration(view, float64(time.Since(start).Microseconds())/1000)
}

// Tournaments lists every tournament.
func (s *Service) Tournaments(ctx context.Context) []types.TournamentSummary {
	snap := s.Snapshot()
	out := make([]types.TournamentSummary, len(snap.Tournaments))
	for i, t := range snap.Tournaments {
		out[i] = types.NewTournamentSummary(t)
	}
	return out
}

// Tournament returns the detail view of a tournament.
func (s *Service) Tournament(ctx context.Context, id string) (types.Tournament, error) {
	t, ok := s.Snapshot().Tournament(id)
	if !ok {
		return types.Tournament{}, fmt.Errorf("%w: %q", ErrTournamentNotFound, id)
	}
	return types.NewTournament(t), nil
}

// Standings returns the season table of a tournament.
func (s *Service) Standings(ctx context.Context, tournamentID string) (types.SeasonTable, error) {
	defer observeCompute("season", time.Now())
	t, ok := s.Snapshot().Tournament(tournamentID)
	if !ok {
		return types.SeasonTable{}, fmt.Errorf("%w: %q", ErrTournamentNotFound, tournamentID)
	}
	return types.NewSeasonTable(t.ID, standings.Season(t)), nil
}

// Race ranks a race by sortKey in direction dir. Empty values select
// finish order ascending.
func (s *Service) Race(ctx context.Context, tournamentID, raceID, sortKey, dir string) (types.RaceRanking, error) {
	defer observeCompute("ranking", time.Now())
	key, err := standings.ParseSortKey(sortKey)
	if err != nil {
		return types.RaceRanking{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	d, err := standings.ParseDirection(dir)
	if err != nil {
		return types.RaceRanking{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	t, ok := s.Snapshot().Tournament(tournamentID)
	if !ok {
		return types.RaceRanking{}, fmt.Errorf("%w: %q", ErrTournamentNotFound, tournamentID)
	}
	r, ok := t.Race(raceID)
	if !ok {
		return types.RaceRanking{}, fmt.Errorf("%w: %q", ErrRaceNotFound, raceID)
	}
	return types.NewRaceRanking(t.ID, r, key, d, standings.Rank(r.Participants, key, d)), nil
}

// Drivers returns a card for every roster driver.
func (s *Service) Drivers(ctx context.Context) []types.Driver {
	defer observeCompute("cards", time.Now())
	cards := standings.Cards(s.Snapshot())
	out := make([]types.Driver, len(cards))
	for i, c := range cards {
		out[i] = types.NewDriver(c)
	}
	return out
}

// Driver returns the card of one driver.
func (s *Service) Driver(ctx context.Context, id string) (types.Driver, error) {
	for _, d := range s.Drivers(ctx) {
		if d.ID == id {
			return d, nil
		}
	}
	return types.Driver{}, fmt.Errorf("%w: %q", ErrDriverNotFound, id)
}

// LinkOutcome resolves which linking flow an identity should see.
func (s *Service) LinkOutcome(ctx context.Context, id linking.Identity) types.LinkOutcome {
	defer observeCompute("candidates", time.Now())
	snap := s.Snapshot()
	out := linking.Resolve(snap.Drivers, id)
	cards := cardIndex(snap)
	v := types.LinkOutcome{Mode: out.Mode, Drivers: make([]types.Driver, len(out.Drivers))}
	if out.Driver != nil {
		d := cards[out.Driver.ID]
		v.Driver = &d
	}
	for i, d := range out.Drivers {
		v.Drivers[i] = cards[d.ID]
	}
	return v
}

// SearchUnlinked filters the unlinked roster by a free-text query.
func (s *Service) SearchUnlinked(ctx context.Context, query string) []types.Driver {
	defer observeCompute("search", time.Now())
	snap := s.Snapshot()
	matches := linking.Filter(snap.Drivers, query)
	cards := cardIndex(snap)
	out := make([]types.Driver, len(matches))
	for i, d := range matches {
		out[i] = cards[d.ID]
	}
	return out
}

func cardIndex(snap model.Snapshot) map[string]types.Driver {
	cards := standings.Cards(snap)
	idx := make(map[string]types.Driver, len(cards))
	for _, c := range cards {
		idx[c.Driver.ID] = types.NewDriver(c)
	}
	return idx
}
