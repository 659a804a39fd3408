package telemetry

import (
	"math"
	"testing"

	"taxisync/internal/modules/status"
	"taxisync/internal/types"
)

func TestHaversineKnownDistance(t *testing.T) {
	// London to Paris is roughly 344 km.
	d := haversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	if math.Abs(d-344) > 5 {
		t.Fatalf("expected ~344 km, got %.1f", d)
	}
	if haversineKm(51, 0, 51, 0) != 0 {
		t.Fatalf("same point should be zero")
	}
}

func TestSnapshotNearby(t *testing.T) {
	snap := newSnapshot(1, testNow, []VehicleView{
		{Callsign: "A", Position: pt(51.510, -0.120), Status: status.StatusAvailable},
		{Callsign: "B", Position: pt(51.501, -0.125), Status: status.StatusAvailable},
		{Callsign: "C", Position: pt(51.505, -0.121), Status: status.StatusInJob},
		{Callsign: "D", Status: status.StatusAvailable},
		{Callsign: "E", Position: pt(52.5, -1.9), Status: status.StatusAvailable},
	}, nil)

	center := types.Point{Lat: 51.5007, Lng: -0.1246}
	all := snap.Nearby(center, 5, "")
	if len(all) != 3 || all[0].Callsign != "B" || all[0].DistanceKm > all[1].DistanceKm {
		t.Fatalf("unexpected nearby list %+v", all)
	}
	free := snap.Nearby(center, 5, status.StatusAvailable)
	if len(free) != 2 {
		t.Fatalf("status filter not applied: %+v", free)
	}
}

func TestSnapshotQueries(t *testing.T) {
	snap := newSnapshot(3, testNow, []VehicleView{
		{Callsign: "1", Status: status.StatusAvailable},
		{Callsign: "2", Status: status.StatusOffline},
	}, nil)

	if v, ok := snap.Vehicle(" 2"); !ok || v.Status != status.StatusOffline {
		t.Fatalf("lookup: %+v %v", v, ok)
	}
	if got := snap.WithStatus(status.StatusAvailable); len(got) != 1 || got[0].Callsign != "1" {
		t.Fatalf("filter: %+v", got)
	}
	if got := snap.WithStatus(""); len(got) != 2 {
		t.Fatalf("empty filter should return all: %+v", got)
	}
	c := snap.Counts()
	if c[status.StatusAvailable] != 1 || c[status.StatusOffline] != 1 || c[status.StatusInJob] != 0 {
		t.Fatalf("counts: %v", c)
	}
}
