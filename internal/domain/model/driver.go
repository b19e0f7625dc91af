// Package model contains the domain records shared by the engine, the
// stores and the service.
package model

import "strings"

// Driver is a roster entry. Optional numeric fields are nil when absent.
type Driver struct {
	ID         string
	GivenName  string
	FamilyName string
	Team       string

	// SeasonPoints is the season aggregate maintained by roster administration.
	SeasonPoints *int

	// LinkedEmail is set only while the driver is linked to an identity.
	// At most one driver holds a given email.
	LinkedEmail string
	// Linked mirrors LinkedEmail as an explicit marker in the store.
	Linked bool

	AttendingNextRace bool

	Phrase   string
	Number   *int
	WeightKg *float64
	Photo    string
}

// FullName joins the non-empty name parts with a single space.
func (d Driver) FullName() string {
	parts := make([]string, 0, 2)
	if d.GivenName != "" {
		parts = append(parts, d.GivenName)
	}
	if d.FamilyName != "" {
		parts = append(parts, d.FamilyName)
	}
	return strings.Join(parts, " ")
}

// IsLinked reports whether an identity currently owns the driver.
func (d Driver) IsLinked() bool {
	return d.LinkedEmail != ""
}

// OwnedBy reports whether the driver is linked to email.
func (d Driver) OwnedBy(email string) bool {
	return d.IsLinked() && email != "" && strings.EqualFold(d.LinkedEmail, email)
}

// ProfileUpdate replaces the self-editable personal fields of a driver.
// A nil Number or WeightKg clears the stored value.
type ProfileUpdate struct {
	Phrase   string
	Number   *int
	WeightKg *float64
}

// NewDriver carries the fields of a self-service driver registration.
type NewDriver struct {
	GivenName  string
	FamilyName string
	Phrase     string
	Number     *int
	WeightKg   *float64
}

// DefaultTeam is assigned to drivers created through self-service.
const DefaultTeam = "a definir"
