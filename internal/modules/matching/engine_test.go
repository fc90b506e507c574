// README: Matching engine tests over an in-memory ride store.
package matching

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"carpool/internal/modules/fare"
	"carpool/internal/modules/location"
	"carpool/internal/modules/ride"
	"carpool/internal/types"
)

var (
	taipei101   = types.Point{Lat: 25.0330, Lng: 121.5654}
	mainStation = types.Point{Lat: 25.0478, Lng: 121.5319}
	departBase  = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
)

// fakeStore implements RideStore with the same conditional-write semantics as
// the Postgres store: a claim succeeds only while the record exists and is
// still unmatched.
type fakeStore struct {
	mu       sync.Mutex
	requests map[types.ID]*ride.Request
	order    []types.ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: make(map[types.ID]*ride.Request)}
}

func (f *fakeStore) add(r *ride.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.requests[r.RequesterID] = &cp
	f.order = append(f.order, r.RequesterID)
}

func (f *fakeStore) get(id types.ID) *ride.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.requests[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (f *fakeStore) FindUnmatchedExcluding(_ context.Context, requester types.ID) ([]ride.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ride.Request
	for _, id := range f.order {
		r, ok := f.requests[id]
		if !ok || r.RequesterID == requester || r.Matched() {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) ConditionalSetMatch(_ context.Context, requester, counterpart types.ID, total, share types.Money) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requester]
	if !ok || r.Matched() {
		return false, nil
	}
	r.MatchedWith = &counterpart
	r.TotalFare = &total
	r.Share = &share
	return true, nil
}

func (f *fakeStore) ClearMatch(_ context.Context, requester, counterpart types.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requester]
	if !ok || r.MatchedWith == nil || *r.MatchedWith != counterpart {
		return nil
	}
	r.MatchedWith = nil
	r.TotalFare = nil
	r.Share = nil
	return nil
}

func newRequest(requester types.ID, origin, dest types.Point, departAt time.Time) *ride.Request {
	return &ride.Request{
		ID:          types.ID("rid_" + string(requester)),
		RequesterID: requester,
		Origin:      origin,
		Destination: dest,
		DepartAt:    departAt,
		CreatedAt:   departAt.Add(-time.Hour),
	}
}

// offset shifts a point north by roughly the given number of meters.
func offset(p types.Point, meters float64) types.Point {
	return types.Point{Lat: p.Lat + meters/111194.0, Lng: p.Lng}
}

func defaultEngine(store RideStore) *Engine {
	return NewEngine(store, fare.NewCalculator(fare.Config{MinimumFare: 50, RatePerKm: 30}), Config{})
}

func TestMatchScenarioCompatiblePair(t *testing.T) {
	store := newFakeStore()
	cand := newRequest("u_c", offset(taipei101, 50), offset(mainStation, 50), departBase.Add(5*time.Minute))
	store.add(cand)

	req := newRequest("u_x", taipei101, mainStation, departBase)
	store.add(req)

	res, err := defaultEngine(store).Match(context.Background(), req)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.Counterpart.RequesterID != "u_c" {
		t.Fatalf("expected counterpart u_c, got %s", res.Counterpart.RequesterID)
	}

	tripKm := location.DistanceKm(taipei101, mainStation)
	wantTotal := int64(tripKm*30 + 0.5)
	if wantTotal < 50 {
		wantTotal = 50
	}
	if res.Quote.Total.Amount != wantTotal {
		t.Errorf("total fare = %d, want %d", res.Quote.Total.Amount, wantTotal)
	}
	if res.Quote.ShareSelf.Amount+res.Quote.ShareOther.Amount != res.Quote.Total.Amount {
		t.Error("shares do not sum to total")
	}

	// Symmetry invariant on the persisted records.
	gotX := store.get("u_x")
	gotC := store.get("u_c")
	if gotX.MatchedWith == nil || *gotX.MatchedWith != "u_c" {
		t.Fatalf("u_x matched_with = %v, want u_c", gotX.MatchedWith)
	}
	if gotC.MatchedWith == nil || *gotC.MatchedWith != "u_x" {
		t.Fatalf("u_c matched_with = %v, want u_x", gotC.MatchedWith)
	}
	if gotX.Share.Amount+gotC.Share.Amount != gotX.TotalFare.Amount {
		t.Error("persisted shares do not sum to total")
	}
}

func TestMatchTimeWindowBoundary(t *testing.T) {
	tests := []struct {
		name      string
		delta     time.Duration
		wantMatch bool
	}{
		{"exactly 600s is eligible", 600 * time.Second, true},
		{"601s is not", 601 * time.Second, false},
		{"610s is not", 610 * time.Second, false},
		{"600s earlier is eligible", -600 * time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.add(newRequest("u_c", taipei101, mainStation, departBase.Add(tt.delta)))
			req := newRequest("u_x", taipei101, mainStation, departBase)
			store.add(req)

			res, err := defaultEngine(store).Match(context.Background(), req)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if (res != nil) != tt.wantMatch {
				t.Errorf("match = %v, want %v", res != nil, tt.wantMatch)
			}
		})
	}
}

func TestMatchRadiusBoundary(t *testing.T) {
	candOrigin := offset(taipei101, 400)
	exactKm := location.DistanceKm(taipei101, candOrigin)

	tests := []struct {
		name      string
		radiusKm  float64
		wantMatch bool
	}{
		{"exactly at radius is eligible", exactKm, true},
		{"one meter beyond is not", exactKm - 0.001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.add(newRequest("u_c", candOrigin, mainStation, departBase))
			req := newRequest("u_x", taipei101, mainStation, departBase)
			store.add(req)

			eng := NewEngine(store, fare.NewCalculator(fare.Config{MinimumFare: 50, RatePerKm: 30}), Config{
				OriginRadiusKm: tt.radiusKm,
				DestRadiusKm:   1.0,
			})
			res, err := eng.Match(context.Background(), req)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if (res != nil) != tt.wantMatch {
				t.Errorf("match = %v, want %v", res != nil, tt.wantMatch)
			}
		})
	}
}

func TestMatchPreferenceFilter(t *testing.T) {
	tests := []struct {
		name      string
		reqPrefs  *ride.Preferences
		candPrefs *ride.Preferences
		wantMatch bool
	}{
		{
			name:      "pet intolerant rejects pet owner",
			reqPrefs:  &ride.Preferences{Gender: "female", PetTolerant: false, SmokeTolerant: true},
			candPrefs: &ride.Preferences{Gender: "female", PetTolerant: true, HasPet: true, SmokeTolerant: true},
			wantMatch: false,
		},
		{
			name:      "symmetric: candidate intolerance also applies",
			reqPrefs:  &ride.Preferences{Gender: "male", PetTolerant: true, SmokeTolerant: true, Smokes: true},
			candPrefs: &ride.Preferences{Gender: "male", PetTolerant: true, SmokeTolerant: false},
			wantMatch: false,
		},
		{
			name:      "gender mismatch",
			reqPrefs:  &ride.Preferences{Gender: "female", PetTolerant: true, SmokeTolerant: true},
			candPrefs: &ride.Preferences{Gender: "male", PetTolerant: true, SmokeTolerant: true},
			wantMatch: false,
		},
		{
			name:      "fully compatible",
			reqPrefs:  &ride.Preferences{Gender: "other", PetTolerant: true, HasPet: true, SmokeTolerant: true},
			candPrefs: &ride.Preferences{Gender: "other", PetTolerant: true, SmokeTolerant: true},
			wantMatch: true,
		},
		{
			name:      "filter only applies when both sides carry prefs",
			reqPrefs:  &ride.Preferences{Gender: "female", PetTolerant: false, SmokeTolerant: false},
			candPrefs: nil,
			wantMatch: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			cand := newRequest("u_c", taipei101, mainStation, departBase)
			cand.Prefs = tt.candPrefs
			store.add(cand)

			req := newRequest("u_x", taipei101, mainStation, departBase)
			req.Prefs = tt.reqPrefs
			store.add(req)

			res, err := defaultEngine(store).Match(context.Background(), req)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if (res != nil) != tt.wantMatch {
				t.Errorf("match = %v, want %v", res != nil, tt.wantMatch)
			}
		})
	}
}

func TestMatchFirstAcceptableInCreationOrder(t *testing.T) {
	store := newFakeStore()
	// Both candidates pass every filter; the earlier-created one wins even
	// though the later one is geographically closer.
	far := newRequest("u_far", offset(taipei101, 800), offset(mainStation, 800), departBase)
	near := newRequest("u_near", taipei101, mainStation, departBase)
	store.add(far)
	store.add(near)

	req := newRequest("u_x", taipei101, mainStation, departBase)
	store.add(req)

	res, err := defaultEngine(store).Match(context.Background(), req)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res == nil || res.Counterpart.RequesterID != "u_far" {
		t.Fatalf("expected first-created candidate u_far, got %v", res)
	}
}

func TestMatchSkipsMalformedCandidate(t *testing.T) {
	store := newFakeStore()
	broken := newRequest("u_bad", taipei101, mainStation, time.Time{})
	store.add(broken)
	good := newRequest("u_good", taipei101, mainStation, departBase)
	store.add(good)

	req := newRequest("u_x", taipei101, mainStation, departBase)
	store.add(req)

	res, err := defaultEngine(store).Match(context.Background(), req)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res == nil || res.Counterpart.RequesterID != "u_good" {
		t.Fatalf("expected malformed candidate skipped, got %v", res)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	store := newFakeStore()
	req := newRequest("u_x", taipei101, mainStation, departBase)
	store.add(req)

	res, err := defaultEngine(store).Match(context.Background(), req)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no match, got %v", res)
	}
}

func TestMatchRollsBackWhenOwnRequestSuperseded(t *testing.T) {
	store := newFakeStore()
	cand := newRequest("u_c", taipei101, mainStation, departBase)
	store.add(cand)

	// The triggering request was never persisted (superseded between
	// finalize and commit), so the self claim must fail.
	req := newRequest("u_gone", taipei101, mainStation, departBase)

	res, err := defaultEngine(store).Match(context.Background(), req)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res != nil {
		t.Fatal("expected no match to be reported")
	}

	got := store.get("u_c")
	if got.Matched() {
		t.Fatal("candidate claim was not rolled back")
	}
}

func TestMatchConcurrentClaimsSingleCandidate(t *testing.T) {
	store := newFakeStore()
	cand := newRequest("u_target", taipei101, mainStation, departBase)
	store.add(cand)

	const contenders = 6
	for i := 0; i < contenders; i++ {
		store.add(newRequest(types.ID(fmt.Sprintf("u_%d", i)), taipei101, mainStation, departBase))
	}

	eng := defaultEngine(store)
	var wg sync.WaitGroup
	results := make(chan *Result, contenders)

	for i := 0; i < contenders; i++ {
		req := store.get(types.ID(fmt.Sprintf("u_%d", i)))
		wg.Add(1)
		go func(r *ride.Request) {
			defer wg.Done()
			res, err := eng.Match(context.Background(), r)
			if err != nil {
				t.Errorf("match: %v", err)
				return
			}
			results <- res
		}(req)
	}

	wg.Wait()
	close(results)

	// Six mutually compatible requests plus the seeded target: every
	// committed pairing must be symmetric and nobody may be claimed twice.
	matchedWith := make(map[types.ID]types.ID)
	for res := range results {
		if res == nil {
			continue
		}
		self := *store.get(res.Counterpart.RequesterID).MatchedWith
		matchedWith[res.Counterpart.RequesterID] = self
	}

	seen := make(map[types.ID]bool)
	for a, b := range matchedWith {
		if seen[a] || seen[b] {
			t.Fatalf("requester claimed twice: %s-%s in %v", a, b, matchedWith)
		}
		seen[a], seen[b] = true, true

		ra, rb := store.get(a), store.get(b)
		if ra.MatchedWith == nil || *ra.MatchedWith != b || rb.MatchedWith == nil || *rb.MatchedWith != a {
			t.Fatalf("asymmetric pairing between %s and %s", a, b)
		}
	}

	target := store.get("u_target")
	if !target.Matched() {
		t.Fatal("expected the seeded candidate to be claimed by someone")
	}
}
