// README: Fare configuration and quote types.
package fare

import "carpool/internal/types"

// SplitStrategy selects how a total fare is apportioned between two riders.
type SplitStrategy string

const (
	// SplitEven halves the total; the counterpart absorbs the odd unit.
	SplitEven SplitStrategy = "even"
	// SplitByDistance apportions by each rider's own trip distance.
	SplitByDistance SplitStrategy = "distance"
)

type Config struct {
	MinimumFare int64
	RatePerKm   int64
	Split       SplitStrategy
	Currency    string
}

// Quote is the fare outcome for one committed pair: the shared total and the
// share owed by each side. ShareSelf + ShareOther always equals Total.Amount.
type Quote struct {
	Total      types.Money
	ShareSelf  types.Money
	ShareOther types.Money
}
