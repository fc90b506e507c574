// README: Ride request record and shared sentinel errors.
package ride

import (
	"errors"
	"time"

	"carpool/internal/types"
)

var (
	ErrNotFound   = errors.New("ride request not found")
	ErrBadRequest = errors.New("bad request")
)

// Preferences are the optional compatibility attributes carried by a request.
// They are copied from the requester's profile when the request is finalized,
// so matching never needs a profile lookup.
type Preferences struct {
	Gender        string
	PetTolerant   bool
	HasPet        bool
	SmokeTolerant bool
	Smokes        bool
}

// Request is a single requester's trip ask. A requester has at most one
// active request at a time; a new one supersedes any prior one.
type Request struct {
	ID               types.ID
	RequesterID      types.ID
	Origin           types.Point
	OriginLabel      string
	Destination      types.Point
	DestinationLabel string
	// DepartAt is always stored in UTC.
	DepartAt    time.Time
	MatchedWith *types.ID
	TotalFare   *types.Money
	Share       *types.Money
	Prefs       *Preferences
	CreatedAt   time.Time
}

// Matched reports whether the request has been paired with a counterpart.
func (r *Request) Matched() bool {
	return r.MatchedWith != nil && *r.MatchedWith != ""
}
