// README: Telemetry feed contract, per-feed partial views and the published vehicle snapshot.
package telemetry

import (
	"context"
	"time"

	"taxisync/internal/modules/identity"
	"taxisync/internal/modules/status"
	"taxisync/internal/types"
)

// Kind tells the merge step how much to trust a feed's fields.
type Kind string

const (
	KindRegistry Kind = "registry"
	KindStatus   Kind = "status"
	KindGPS      Kind = "gps"
	KindCombined Kind = "combined"
)

// Feed is one independently polled data source.
type Feed interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context) (PartialView, error)
}

// Observation is what a single feed knows about one vehicle. Nil means the feed
// said nothing about that field, which is different from an explicit false.
type Observation struct {
	Callsign     string
	Registration string
	Position     *types.Point
	HomePosition *types.Point

	BusyMeterOn        *bool
	DispatchInProgress *bool
	AtPickup           *bool
	OnBreak            *bool
	Withdrawn          *bool

	ActiveBookings *int
	Zone           string
	TimeClear      *time.Duration
}

func (o Observation) hasSignal() bool {
	return o.BusyMeterOn != nil || o.DispatchInProgress != nil || o.AtPickup != nil ||
		o.OnBreak != nil || o.Withdrawn != nil
}

// PartialView is one feed's result for one cycle, keyed by normalized callsign.
type PartialView struct {
	Kind     Kind
	Vehicles map[string]Observation
}

func newPartialView(kind Kind, n int) PartialView {
	return PartialView{Kind: kind, Vehicles: make(map[string]Observation, n)}
}

// add stores o under its normalized callsign. Later records for the same vehicle win.
func (v PartialView) add(o Observation) {
	key := identity.NormalizeCallsign(o.Callsign)
	if key == "" {
		return
	}
	o.Callsign = key
	v.Vehicles[key] = o
}

// Geofence is the operating region. Bounds are inclusive.
type Geofence struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

func (g Geofence) Contains(p types.Point) bool {
	return p.Lat >= g.MinLat && p.Lat <= g.MaxLat && p.Lng >= g.MinLng && p.Lng <= g.MaxLng
}

// Position sources, reported on each vehicle.
const (
	SourceCombined = "combined"
	SourceGPS      = "gps"
	SourceHome     = "home"
)

type VehicleView struct {
	Callsign         string                   `json:"callsign"`
	Registration     string                   `json:"registration,omitempty"`
	Driver           *identity.DriverIdentity `json:"driver,omitempty"`
	Position         *types.Point             `json:"position,omitempty"`
	PositionSource   string                   `json:"position_source,omitempty"`
	Status           status.Status            `json:"status"`
	Rule             string                   `json:"rule"`
	Signals          status.Signals           `json:"signals"`
	Zone             string                   `json:"zone,omitempty"`
	TimeClearSeconds *int                     `json:"time_clear_seconds,omitempty"`
}

// Snapshot is the complete result of one refresh cycle. It is never mutated
// after publication.
type Snapshot struct {
	Generation  uint64            `json:"generation"`
	GeneratedAt time.Time         `json:"generated_at"`
	Vehicles    []VehicleView     `json:"vehicles"`
	FeedErrors  map[string]string `json:"feed_errors,omitempty"`

	index map[string]int
}

func (s *Snapshot) Vehicle(callsign string) (VehicleView, bool) {
	i, ok := s.index[identity.NormalizeCallsign(callsign)]
	if !ok {
		return VehicleView{}, false
	}
	return s.Vehicles[i], true
}

// WithStatus returns the vehicles in st, or all of them when st is empty.
func (s *Snapshot) WithStatus(st status.Status) []VehicleView {
	if st == "" {
		out := make([]VehicleView, len(s.Vehicles))
		copy(out, s.Vehicles)
		return out
	}
	var out []VehicleView
	for _, v := range s.Vehicles {
		if v.Status == st {
			out = append(out, v)
		}
	}
	return out
}

// Counts tallies vehicles per status. Every status is present.
func (s *Snapshot) Counts() map[status.Status]int {
	out := make(map[status.Status]int, len(status.All))
	for _, st := range status.All {
		out[st] = 0
	}
	for _, v := range s.Vehicles {
		out[v.Status]++
	}
	return out
}
