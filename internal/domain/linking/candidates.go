package linking

import (
	"strings"

	"github.com/okian/kartboard/internal/domain/model"
)

// Identity is the authenticated caller as seen by the linking rules.
type Identity struct {
	Email string
	Name  string
}

// Mode tells the caller which linking flow to present.
type Mode string

const (
	// ModeNone: the identity carries no email and cannot link.
	ModeNone Mode = "none"
	// ModeLinked: a driver is already linked to the identity.
	ModeLinked Mode = "linked"
	// ModeConfirm: exactly one unlinked driver matches the name.
	ModeConfirm Mode = "confirm"
	// ModeChoose: several unlinked drivers share the name.
	ModeChoose Mode = "choose"
	// ModeBrowse: no match; browse the unlinked roster.
	ModeBrowse Mode = "browse"
)

// Outcome is the result of resolving an identity against the roster.
type Outcome struct {
	Mode Mode
	// Driver is set for ModeLinked.
	Driver *model.Driver
	// Drivers holds the matches for ModeConfirm and ModeChoose, or the
	// full unlinked roster for ModeBrowse.
	Drivers []model.Driver
}

// Candidates returns the unlinked drivers whose normalized full name equals
// the normalized display name. Matching is exact; an empty name never matches.
func Candidates(roster []model.Driver, displayName string) []model.Driver {
	want := Normalize(displayName)
	out := []model.Driver{}
	if want == "" {
		return out
	}
	for _, d := range roster {
		if d.IsLinked() {
			continue
		}
		if Normalize(d.FullName()) == want {
			out = append(out, d)
		}
	}
	return out
}

// Resolve picks the linking flow for an identity.
func Resolve(roster []model.Driver, id Identity) Outcome {
	if strings.TrimSpace(id.Email) == "" {
		return Outcome{Mode: ModeNone, Drivers: []model.Driver{}}
	}
	for _, d := range roster {
		if d.OwnedBy(id.Email) {
			return Outcome{Mode: ModeLinked, Driver: &d, Drivers: []model.Driver{}}
		}
	}
	switch c := Candidates(roster, id.Name); len(c) {
	case 0:
		return Outcome{Mode: ModeBrowse, Drivers: Unlinked(roster)}
	case 1:
		return Outcome{Mode: ModeConfirm, Drivers: c}
	default:
		return Outcome{Mode: ModeChoose, Drivers: c}
	}
}

// Unlinked returns the drivers no identity owns, in roster order.
func Unlinked(roster []model.Driver) []model.Driver {
	out := make([]model.Driver, 0, len(roster))
	for _, d := range roster {
		if !d.IsLinked() {
			out = append(out, d)
		}
	}
	return out
}

// Filter narrows the unlinked roster to names containing query, compared
// after normalization. A blank query returns every unlinked driver.
func Filter(roster []model.Driver, query string) []model.Driver {
	unlinked := Unlinked(roster)
	q := Normalize(query)
	if q == "" {
		return unlinked
	}
	out := make([]model.Driver, 0, len(unlinked))
	for _, d := range unlinked {
		if strings.Contains(Normalize(d.FullName()), q) {
			out = append(out, d)
		}
	}
	return out
}
