// README: Fare calculator; pure arithmetic over trip distances.
package fare

import (
	"math"

	"carpool/internal/types"
)

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	if cfg.Split == "" {
		cfg.Split = SplitEven
	}
	if cfg.Currency == "" {
		cfg.Currency = "TWD"
	}
	return &Calculator{cfg: cfg}
}

// Total returns the fare for a trip of the given length, never below the
// configured minimum.
func (c *Calculator) Total(distanceKm float64) types.Money {
	amount := int64(math.Round(distanceKm * float64(c.cfg.RatePerKm)))
	if amount < c.cfg.MinimumFare {
		amount = c.cfg.MinimumFare
	}
	return types.Money{Amount: amount, Currency: c.cfg.Currency}
}

// Quote computes the shared total from the requesting rider's own trip
// distance and splits it between the two riders. With SplitByDistance the
// requester's share is floored and the remainder goes to the counterpart, so
// the two shares always sum exactly to the total.
func (c *Calculator) Quote(selfDistanceKm, otherDistanceKm float64) Quote {
	total := c.Total(selfDistanceKm)

	var selfShare int64
	switch c.cfg.Split {
	case SplitByDistance:
		combined := selfDistanceKm + otherDistanceKm
		if combined <= 0 {
			selfShare = total.Amount / 2
		} else {
			selfShare = int64(math.Floor(float64(total.Amount) * selfDistanceKm / combined))
		}
	default:
		selfShare = total.Amount / 2
	}

	return Quote{
		Total:      total,
		ShareSelf:  types.Money{Amount: selfShare, Currency: total.Currency},
		ShareOther: types.Money{Amount: total.Amount - selfShare, Currency: total.Currency},
	}
}
