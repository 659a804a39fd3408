// README: Merge precedence, geofence and classification tests over hand-built partial views.
package telemetry

import (
	"testing"
	"time"

	"taxisync/internal/modules/identity"
	"taxisync/internal/modules/status"
	"taxisync/internal/types"
)

var ukFence = Geofence{MinLat: 49.5, MaxLat: 61.0, MinLng: -8.5, MaxLng: 2.0}

func view(kind Kind, obs ...Observation) PartialView {
	v := newPartialView(kind, len(obs))
	for _, o := range obs {
		v.add(o)
	}
	return v
}

func pt(lat, lng float64) *types.Point { return &types.Point{Lat: lat, Lng: lng} }

func find(t *testing.T, vs []VehicleView, callsign string) VehicleView {
	t.Helper()
	for _, v := range vs {
		if v.Callsign == callsign {
			return v
		}
	}
	t.Fatalf("vehicle %s missing from %+v", callsign, vs)
	return VehicleView{}
}

func TestMergeCombinedPositionBeatsGPS(t *testing.T) {
	vs := Merge([]PartialView{
		view(KindGPS, Observation{Callsign: "101", Position: pt(51.50, -0.10)}),
		view(KindCombined, Observation{Callsign: "101", Position: pt(51.40, -0.20)}),
		view(KindRegistry, Observation{Callsign: "101", HomePosition: pt(52.0, -1.0)}),
	}, nil, ukFence)

	v := find(t, vs, "101")
	if v.Position == nil || *v.Position != (types.Point{Lat: 51.40, Lng: -0.20}) || v.PositionSource != SourceCombined {
		t.Fatalf("expected combined position, got %+v (%s)", v.Position, v.PositionSource)
	}
}

func TestMergePositionFallbacks(t *testing.T) {
	vs := Merge([]PartialView{
		view(KindGPS, Observation{Callsign: "1", Position: pt(51.5, -0.1)}),
		view(KindCombined, Observation{Callsign: "1"}, Observation{Callsign: "2"}),
		view(KindRegistry,
			Observation{Callsign: "1", HomePosition: pt(52.0, -1.0)},
			Observation{Callsign: "2", HomePosition: pt(52.0, -1.0)},
			Observation{Callsign: "3"}),
	}, nil, ukFence)

	if v := find(t, vs, "1"); v.PositionSource != SourceGPS {
		t.Errorf("vehicle 1: expected gps, got %q", v.PositionSource)
	}
	if v := find(t, vs, "2"); v.PositionSource != SourceHome {
		t.Errorf("vehicle 2: expected home, got %q", v.PositionSource)
	}
	if v := find(t, vs, "3"); v.Position != nil {
		t.Errorf("vehicle 3: expected no position, got %+v", v.Position)
	}
}

func TestMergeGeofence(t *testing.T) {
	vs := Merge([]PartialView{
		view(KindGPS,
			Observation{Callsign: "out", Position: pt(51.3, 5.0)},
			Observation{Callsign: "in", Position: pt(51.3, 1.0)},
			Observation{Callsign: "north", Position: pt(62.0, -1.0)}),
	}, nil, ukFence)

	if v := find(t, vs, "OUT"); v.Position != nil {
		t.Errorf("longitude +5.0 must be dropped, got %+v", v.Position)
	}
	if v := find(t, vs, "IN"); v.Position == nil || v.Position.Lng != 1.0 || v.Position.Lat != 51.3 {
		t.Errorf("longitude +1.0 latitude 51.3 must be kept, got %+v", v.Position)
	}
	if v := find(t, vs, "NORTH"); v.Position != nil {
		t.Errorf("latitude 62 must be dropped, got %+v", v.Position)
	}
}

func TestMergeGeofenceDoesNotFallBack(t *testing.T) {
	vs := Merge([]PartialView{
		view(KindCombined, Observation{Callsign: "7", Position: pt(48.0, -1.0)}),
		view(KindGPS, Observation{Callsign: "7", Position: pt(51.0, -1.0)}),
	}, nil, ukFence)
	if v := find(t, vs, "7"); v.Position != nil {
		t.Fatalf("resolved position outside the fence means no position, got %+v", v.Position)
	}
}

func TestMergeSignalPrecedence(t *testing.T) {
	yes, no := true, false
	vs := Merge([]PartialView{
		view(KindStatus, Observation{Callsign: "1", BusyMeterOn: &no, DispatchInProgress: &no}),
		view(KindCombined,
			Observation{Callsign: "1", BusyMeterOn: &yes, OnBreak: &yes},
			Observation{Callsign: "2", DispatchInProgress: &yes, AtPickup: &no, BusyMeterOn: &no}),
	}, nil, ukFence)

	v1 := find(t, vs, "1")
	if v1.Signals.BusyMeterOn || !v1.Signals.OnBreak || v1.Status != status.StatusOnBreak {
		t.Errorf("status feed field should win, combined fills gaps: %+v %s", v1.Signals, v1.Status)
	}
	if v2 := find(t, vs, "2"); v2.Status != status.StatusGoingToClient {
		t.Errorf("dispatched vehicle should be going to client, got %s", v2.Status)
	}
}

func TestMergeBookingCountHeuristic(t *testing.T) {
	no := false
	one, zero := 1, 0
	vs := Merge([]PartialView{
		view(KindRegistry,
			Observation{Callsign: "busy", ActiveBookings: &one},
			Observation{Callsign: "explicit", ActiveBookings: &one},
			Observation{Callsign: "idle", ActiveBookings: &zero}),
		view(KindGPS,
			Observation{Callsign: "busy", Position: pt(51, 0)},
			Observation{Callsign: "explicit", Position: pt(51, 0)},
			Observation{Callsign: "idle", Position: pt(51, 0)}),
		view(KindStatus, Observation{Callsign: "explicit", DispatchInProgress: &no}),
	}, nil, ukFence)

	if v := find(t, vs, "BUSY"); v.Status != status.StatusGoingToClient {
		t.Errorf("active bookings without signals should mean dispatch, got %s", v.Status)
	}
	if v := find(t, vs, "EXPLICIT"); v.Status != status.StatusAvailable {
		t.Errorf("explicit signal must beat the heuristic, got %s", v.Status)
	}
	if v := find(t, vs, "IDLE"); v.Status != status.StatusAvailable {
		t.Errorf("no bookings means available, got %s", v.Status)
	}
}

func TestMergeAssignedVehicleWithoutTelemetryIsOffline(t *testing.T) {
	ids := identity.NewStaticMapper([]identity.Assignment{
		{Callsign: "101", Driver: identity.DriverIdentity{DriverID: "d1", Name: "Ada"}},
		{Callsign: "303", Driver: identity.DriverIdentity{DriverID: "d3", Name: "Lin"}},
	})
	vs := Merge([]PartialView{
		view(KindGPS, Observation{Callsign: "101", Position: pt(51.5, -0.1)}),
		view(KindRegistry, Observation{Callsign: "202"}),
	}, ids, ukFence)

	if len(vs) != 3 || vs[0].Callsign != "101" || vs[1].Callsign != "202" || vs[2].Callsign != "303" {
		t.Fatalf("expected sorted union of feeds and assignments, got %+v", vs)
	}
	if vs[0].Status != status.StatusAvailable || vs[0].Driver == nil || vs[0].Driver.Name != "Ada" {
		t.Errorf("live vehicle: %+v", vs[0])
	}
	if vs[1].Status != status.StatusOffline || vs[1].Driver != nil {
		t.Errorf("registry-only vehicle should be offline and unmapped: %+v", vs[1])
	}
	if vs[2].Status != status.StatusOffline || vs[2].Rule != "no-telemetry" || vs[2].Driver == nil {
		t.Errorf("assigned vehicle without telemetry should be reported offline: %+v", vs[2])
	}
}

func TestMergeZoneAndTimeClear(t *testing.T) {
	st, comb := 90*time.Second, 30*time.Second
	vs := Merge([]PartialView{
		view(KindStatus, Observation{Callsign: "1", TimeClear: &st}),
		view(KindCombined, Observation{Callsign: "1", Zone: "Centre", TimeClear: &comb}),
	}, nil, ukFence)

	v := find(t, vs, "1")
	if v.Zone != "Centre" || v.TimeClearSeconds == nil || *v.TimeClearSeconds != 90 {
		t.Fatalf("unexpected zone/time clear: %+v", v)
	}
}
