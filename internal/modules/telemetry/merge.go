package telemetry

import (
	"sort"
	"time"

	"taxisync/internal/modules/identity"
	"taxisync/internal/modules/status"
	"taxisync/internal/types"
)

// Identities is the read side of the identity mapper.
type Identities interface {
	Lookup(callsign string) (identity.DriverIdentity, bool)
	Assignments() []identity.Assignment
}

// Merge combines one cycle's partial views into one classified view per vehicle,
// sorted by callsign. Vehicles known only from the assignment table are included.
//
// Position: combined > gps > registry home address, then the geofence.
// Signals, per field: status feed > combined feed > active-booking count.
func Merge(views []PartialView, ids Identities, fence Geofence) []VehicleView {
	byKind := make(map[Kind]map[string]Observation, 4)
	seen := make(map[string]struct{})
	for _, v := range views {
		m := byKind[v.Kind]
		if m == nil {
			m = make(map[string]Observation, len(v.Vehicles))
			byKind[v.Kind] = m
		}
		for key, o := range v.Vehicles {
			m[key] = o
			seen[key] = struct{}{}
		}
	}
	if ids != nil {
		for _, a := range ids.Assignments() {
			seen[identity.NormalizeCallsign(a.Callsign)] = struct{}{}
		}
	}

	callsigns := make([]string, 0, len(seen))
	for c := range seen {
		callsigns = append(callsigns, c)
	}
	sort.Strings(callsigns)

	out := make([]VehicleView, 0, len(callsigns))
	for _, c := range callsigns {
		reg := byKind[KindRegistry][c]
		st, hasStatus := byKind[KindStatus][c]
		gps, hasGPS := byKind[KindGPS][c]
		comb, hasComb := byKind[KindCombined][c]

		v := VehicleView{Callsign: c, Registration: reg.Registration}
		v.Position, v.PositionSource = resolvePosition(comb, gps, reg)
		if v.Position != nil && !fence.Contains(*v.Position) {
			v.Position, v.PositionSource = nil, ""
		}

		v.Signals = status.Signals{
			BusyMeterOn:        firstBool(st.BusyMeterOn, comb.BusyMeterOn),
			DispatchInProgress: firstBool(st.DispatchInProgress, comb.DispatchInProgress),
			AtPickup:           firstBool(st.AtPickup, comb.AtPickup),
			OnBreak:            firstBool(st.OnBreak, comb.OnBreak),
			Withdrawn:          firstBool(st.Withdrawn, comb.Withdrawn),
			NoTelemetry:        !hasStatus && !hasGPS && !hasComb,
		}
		if !st.hasSignal() && !comb.hasSignal() && reg.ActiveBookings != nil && *reg.ActiveBookings > 0 {
			v.Signals.DispatchInProgress = true
		}
		v.Status, v.Rule = status.Explain(v.Signals)

		v.Zone = st.Zone
		if v.Zone == "" {
			v.Zone = comb.Zone
		}
		if tc := firstDuration(st.TimeClear, comb.TimeClear); tc != nil {
			secs := int(tc.Seconds())
			v.TimeClearSeconds = &secs
		}
		if ids != nil {
			if d, ok := ids.Lookup(c); ok {
				v.Driver = &d
			}
		}
		out = append(out, v)
	}
	return out
}

func resolvePosition(comb, gps, reg Observation) (*types.Point, string) {
	switch {
	case comb.Position != nil:
		p := *comb.Position
		return &p, SourceCombined
	case gps.Position != nil:
		p := *gps.Position
		return &p, SourceGPS
	case reg.HomePosition != nil:
		p := *reg.HomePosition
		return &p, SourceHome
	}
	return nil, ""
}

func firstBool(vals ...*bool) bool {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return false
}

func firstDuration(vals ...*time.Duration) *time.Duration {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func newSnapshot(gen uint64, at time.Time, vehicles []VehicleView, feedErrors map[string]string) *Snapshot {
	s := &Snapshot{
		Generation:  gen,
		GeneratedAt: at,
		Vehicles:    vehicles,
		FeedErrors:  feedErrors,
		index:       make(map[string]int, len(vehicles)),
	}
	for i, v := range vehicles {
		s.index[v.Callsign] = i
	}
	return s
}
