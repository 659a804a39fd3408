package maps

import (
	"context"
	"errors"
	"testing"

	"googlemaps.github.io/maps"
)

type stubGeocodeAPI struct {
	results []maps.GeocodingResult
	err     error
	got     *maps.GeocodingRequest
}

func (s *stubGeocodeAPI) Geocode(_ context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	s.got = r
	return s.results, s.err
}

func TestResolveFirstResult(t *testing.T) {
	api := &stubGeocodeAPI{results: []maps.GeocodingResult{
		{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 51.3, Lng: 1.0}}},
		{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 10, Lng: 10}}},
	}}
	g := &Geocoder{client: api, region: "uk"}

	p, err := g.Resolve(context.Background(), "  1 High Street, Canterbury ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Lat != 51.3 || p.Lng != 1.0 {
		t.Fatalf("unexpected point %v", p)
	}
	if api.got.Address != "1 High Street, Canterbury" || api.got.Region != "uk" {
		t.Fatalf("unexpected request %+v", api.got)
	}
}

func TestResolveFailures(t *testing.T) {
	g := &Geocoder{client: &stubGeocodeAPI{}}
	if _, err := g.Resolve(context.Background(), " "); !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
	if _, err := g.Resolve(context.Background(), "nowhere"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}

	boom := errors.New("OVER_QUERY_LIMIT")
	g = &Geocoder{client: &stubGeocodeAPI{err: boom}}
	if _, err := g.Resolve(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}
