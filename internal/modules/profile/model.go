// README: Requester profile aggregate.
package profile

import (
	"errors"
	"time"

	"carpool/internal/types"
)

var ErrNotFound = errors.New("profile not found")

// Gender categories form a closed enumeration; the setup conversation rejects
// anything else.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

type Profile struct {
	ID            types.ID
	DisplayName   string
	Gender        string
	PetTolerant   bool
	HasPet        bool
	SmokeTolerant bool
	Smokes        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}
