// README: Matching engine configuration and result types.
package matching

import (
	"time"

	"carpool/internal/modules/fare"
	"carpool/internal/modules/ride"
)

// PreferenceRule selects how preference attributes are compared.
type PreferenceRule string

const (
	// PreferenceOff ignores preference attributes entirely.
	PreferenceOff PreferenceRule = "off"
	// PreferenceSymmetric requires equal gender category and checks each
	// side's pet/smoke intolerance against the other's declared status.
	PreferenceSymmetric PreferenceRule = "symmetric"
)

// Config parameterizes the single engine that replaces the historical
// per-deployment matching variants.
type Config struct {
	// TimeWindow is the maximum departure-time difference, boundary inclusive.
	TimeWindow time.Duration
	// OriginRadiusKm and DestRadiusKm bound the origin-to-origin and
	// destination-to-destination distances, boundary inclusive.
	OriginRadiusKm float64
	DestRadiusKm   float64
	Preference     PreferenceRule
}

const (
	defaultTimeWindow = 600 * time.Second
	defaultRadiusKm   = 1.0
)

// Result is a committed pairing: the counterpart that was claimed and the
// fare quote applied to both records.
type Result struct {
	Counterpart ride.Request
	Quote       fare.Quote
}
