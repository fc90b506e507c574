package location

import (
	"math"
	"testing"

	"carpool/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: 25.033, lng1: 121.565,
			lat2: 25.033, lng2: 121.565,
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name: "Taipei 101 to Taipei Main Station (~5km)",
			lat1: 25.0340, lng1: 121.5645,
			lat2: 25.0478, lng2: 121.5170,
			wantKm:    5.2,
			tolerance: 1.0,
		},
		{
			name: "New York to Los Angeles (~3944km)",
			lat1: 40.7128, lng1: -74.0060,
			lat2: 34.0522, lng2: -118.2437,
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	d1 := HaversineKm(25.0, 121.0, 26.0, 122.0)
	d2 := HaversineKm(26.0, 122.0, 25.0, 121.0)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceKm_MatchesHaversine(t *testing.T) {
	a := types.Point{Lat: 25.0330, Lng: 121.5654}
	b := types.Point{Lat: 25.0478, Lng: 121.5319}
	if got, want := DistanceKm(a, b), HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng); got != want {
		t.Errorf("DistanceKm() = %f, want %f", got, want)
	}
}
