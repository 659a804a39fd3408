package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"taxisync/internal/types"
)

var (
	ErrEmptyAddress = errors.New("empty address")
	ErrNoResult     = errors.New("address not found")
)

// geocodeAPI is the part of *maps.Client the Geocoder needs.
type geocodeAPI interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder resolves free-text addresses to coordinates with the Google Geocoding API.
type Geocoder struct {
	client geocodeAPI
	region string
}

// NewGeocoder creates a Geocoder with the given API Key, biased towards region (ccTLD, e.g. "uk").
func NewGeocoder(apiKey, region string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client, region: region}, nil
}

// Resolve returns the coordinate of the best match for text.
func (g *Geocoder) Resolve(ctx context.Context, text string) (types.Point, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Point{}, ErrEmptyAddress
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: text,
		Region:  g.region,
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("%q: %w", text, ErrNoResult)
	}

	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
