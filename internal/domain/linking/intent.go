package linking

import (
	"strings"

	"github.com/okian/kartboard/internal/domain/model"
)

// Action is the kind of roster write an intent asks for.
type Action string

const (
	ActionLink   Action = "link"
	ActionUnlink Action = "unlink"
)

// Intent is a validated roster write. For ActionLink the store sets the
// linked email and marker; for ActionUnlink it clears them.
type Intent struct {
	Action   Action
	DriverID string
	Email    string
}

// canonicalEmail is the form emails are stored in.
func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func find(roster []model.Driver, id string) (model.Driver, bool) {
	for _, d := range roster {
		if d.ID == id {
			return d, true
		}
	}
	return model.Driver{}, false
}

func holder(roster []model.Driver, email string) (model.Driver, bool) {
	for _, d := range roster {
		if d.OwnedBy(email) {
			return d, true
		}
	}
	return model.Driver{}, false
}

// Link validates claiming driverID for email.
func Link(roster []model.Driver, driverID, email string) (Intent, error) {
	email = canonicalEmail(email)
	if email == "" {
		return Intent{}, ErrNoEmail
	}
	d, ok := find(roster, driverID)
	if !ok {
		return Intent{}, ErrDriverNotFound
	}
	if d.IsLinked() {
		if d.OwnedBy(email) {
			return Intent{}, ErrIdentityLinked
		}
		return Intent{}, ErrAlreadyLinked
	}
	if _, held := holder(roster, email); held {
		return Intent{}, ErrIdentityLinked
	}
	return Intent{Action: ActionLink, DriverID: d.ID, Email: email}, nil
}

// Unlink validates releasing driverID. Only the owner may do it.
func Unlink(roster []model.Driver, driverID, email string) (Intent, error) {
	d, err := Owned(roster, driverID, email)
	if err != nil {
		return Intent{}, err
	}
	return Intent{Action: ActionUnlink, DriverID: d.ID, Email: d.LinkedEmail}, nil
}

// Owned returns driverID if email owns it. Profile, attendance and photo
// edits go through this check.
func Owned(roster []model.Driver, driverID, email string) (model.Driver, error) {
	if strings.TrimSpace(email) == "" {
		return model.Driver{}, ErrNoEmail
	}
	d, ok := find(roster, driverID)
	if !ok {
		return model.Driver{}, ErrDriverNotFound
	}
	if !d.OwnedBy(email) {
		return model.Driver{}, ErrNotOwner
	}
	return d, nil
}

// Register validates a self-service driver creation for email and returns
// the record to insert, without an id.
func Register(roster []model.Driver, email string, nd model.NewDriver) (model.Driver, error) {
	email = canonicalEmail(email)
	if email == "" {
		return model.Driver{}, ErrNoEmail
	}
	if _, held := holder(roster, email); held {
		return model.Driver{}, ErrIdentityLinked
	}
	given := strings.TrimSpace(nd.GivenName)
	if given == "" {
		return model.Driver{}, ErrEmptyName
	}
	return model.Driver{
		GivenName:   given,
		FamilyName:  strings.TrimSpace(nd.FamilyName),
		Team:        model.DefaultTeam,
		LinkedEmail: email,
		Linked:      true,
		Phrase:      strings.TrimSpace(nd.Phrase),
		Number:      nd.Number,
		WeightKg:    nd.WeightKg,
	}, nil
}
