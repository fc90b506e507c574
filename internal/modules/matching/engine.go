// README: Matching engine; greedy candidate scan plus conditional commit.
package matching

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"carpool/internal/modules/fare"
	"carpool/internal/modules/location"
	"carpool/internal/modules/ride"
	"carpool/internal/observability"
	"carpool/internal/types"
)

// RideStore is the slice of the ride store the engine needs. Candidate reads
// are unlocked; the writes are compare-and-swap conditional updates.
type RideStore interface {
	FindUnmatchedExcluding(ctx context.Context, requester types.ID) ([]ride.Request, error)
	ConditionalSetMatch(ctx context.Context, requester, counterpart types.ID, total, share types.Money) (bool, error)
	ClearMatch(ctx context.Context, requester, counterpart types.ID) error
}

type Engine struct {
	store RideStore
	fares *fare.Calculator
	cfg   Config
}

func NewEngine(store RideStore, fares *fare.Calculator, cfg Config) *Engine {
	if cfg.TimeWindow <= 0 {
		cfg.TimeWindow = defaultTimeWindow
	}
	if cfg.OriginRadiusKm <= 0 {
		cfg.OriginRadiusKm = defaultRadiusKm
	}
	if cfg.DestRadiusKm <= 0 {
		cfg.DestRadiusKm = defaultRadiusKm
	}
	if cfg.Preference == "" {
		cfg.Preference = PreferenceSymmetric
	}
	return &Engine{store: store, fares: fares, cfg: cfg}
}

// Match scans unmatched requests from other requesters in creation order and
// commits the first compatible one. It returns (nil, nil) when nothing could
// be paired; the request then stays pending until another request's creation
// triggers a new scan.
//
// Commit protocol: the candidate is claimed first, then the triggering
// request. A failed candidate claim means another matcher got there first and
// the scan simply continues. A failed self claim means the triggering request
// was superseded or cancelled mid-match; the candidate claim is rolled back
// and the match abandoned so no one-sided pairing survives.
func (e *Engine) Match(ctx context.Context, req *ride.Request) (*Result, error) {
	if req.Matched() {
		return nil, fmt.Errorf("request %s is already matched", req.ID)
	}

	candidates, err := e.store.FindUnmatchedExcluding(ctx, req.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	selfKm := location.DistanceKm(req.Origin, req.Destination)

	for i := range candidates {
		cand := &candidates[i]
		observability.MatchAttemptsTotal.Inc()
		if !e.compatible(req, cand) {
			continue
		}

		candKm := location.DistanceKm(cand.Origin, cand.Destination)
		quote := e.fares.Quote(selfKm, candKm)

		claimed, err := e.store.ConditionalSetMatch(ctx, cand.RequesterID, req.RequesterID, quote.Total, quote.ShareOther)
		if err != nil {
			return nil, fmt.Errorf("claim candidate: %w", err)
		}
		if !claimed {
			// Another matcher claimed this candidate between the read and
			// the write. Not an error; keep scanning.
			observability.ClaimConflictsTotal.Inc()
			continue
		}

		committed, err := e.store.ConditionalSetMatch(ctx, req.RequesterID, cand.RequesterID, quote.Total, quote.ShareSelf)
		if err != nil {
			return nil, fmt.Errorf("claim own request: %w", err)
		}
		if !committed {
			// The triggering request vanished mid-match (superseded or
			// cancelled). Undo the candidate claim and stop.
			observability.ClaimConflictsTotal.Inc()
			if err := e.store.ClearMatch(ctx, cand.RequesterID, req.RequesterID); err != nil {
				log.Error().Err(err).
					Str("candidate", string(cand.RequesterID)).
					Msg("failed to roll back one-sided match claim")
				return nil, fmt.Errorf("roll back candidate claim: %w", err)
			}
			return nil, nil
		}

		observability.MatchesTotal.Inc()
		matched := *cand
		other := req.RequesterID
		matched.MatchedWith = &other
		matched.TotalFare = &quote.Total
		matched.Share = &quote.ShareOther
		return &Result{Counterpart: matched, Quote: quote}, nil
	}

	return nil, nil
}

func (e *Engine) compatible(req, cand *ride.Request) bool {
	// A stored candidate with no usable departure time is skipped, never
	// allowed to abort the scan.
	if cand.DepartAt.IsZero() {
		return false
	}

	delta := req.DepartAt.Sub(cand.DepartAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > e.cfg.TimeWindow {
		return false
	}

	if location.DistanceKm(req.Origin, cand.Origin) > e.cfg.OriginRadiusKm {
		return false
	}
	if location.DistanceKm(req.Destination, cand.Destination) > e.cfg.DestRadiusKm {
		return false
	}

	if e.cfg.Preference == PreferenceSymmetric && req.Prefs != nil && cand.Prefs != nil {
		if !prefsCompatible(req.Prefs, cand.Prefs) {
			return false
		}
	}
	return true
}

// prefsCompatible applies the strictest symmetric reading: gender categories
// must match and each side's intolerance excludes the other's declared
// pet/smoking status.
func prefsCompatible(a, b *ride.Preferences) bool {
	if a.Gender != b.Gender {
		return false
	}
	if !a.PetTolerant && b.HasPet {
		return false
	}
	if !b.PetTolerant && a.HasPet {
		return false
	}
	if !a.SmokeTolerant && b.Smokes {
		return false
	}
	if !b.SmokeTolerant && a.Smokes {
		return false
	}
	return true
}
