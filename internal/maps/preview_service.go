package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"carpool/internal/types"
)

// PreviewService resolves free-text places to coordinates and builds
// route-preview links through the Google Maps API.
type PreviewService struct {
	client *maps.Client
}

// NewPreviewService creates a PreviewService with the given API key.
func NewPreviewService(apiKey string) (*PreviewService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PreviewService{client: client}, nil
}

// Geocode resolves a free-text place description to a coordinate and a
// formatted label, biased to Taiwan.
func (s *PreviewService) Geocode(ctx context.Context, query string) (types.Point, string, error) {
	r := &maps.GeocodingRequest{
		Address:  query,
		Language: "zh-TW",
		Region:   "TW",
	}
	results, err := s.client.Geocode(ctx, r)
	if err != nil {
		return types.Point{}, "", fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, "", fmt.Errorf("no geocoding result for %q", query)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, results[0].FormattedAddress, nil
}

// RouteLink returns a shareable directions link for a trip. Link generation
// needs no API call.
func (s *PreviewService) RouteLink(origin, dest types.Point) string {
	return RouteLink(origin, dest)
}

// RouteLink builds the universal Google Maps directions URL for two points.
func RouteLink(origin, dest types.Point) string {
	return fmt.Sprintf(
		"https://www.google.com/maps/dir/?api=1&origin=%.6f,%.6f&destination=%.6f,%.6f",
		origin.Lat, origin.Lng, dest.Lat, dest.Lng,
	)
}
