package telemetry

import (
	"context"
	"strings"
	"time"

	"taxisync/internal/platform"
	"taxisync/internal/types"
)

// PlatformFeeds is the part of the platform client the adapters poll.
type PlatformFeeds interface {
	Vehicles(ctx context.Context) ([]platform.VehicleRecord, error)
	VehicleStatuses(ctx context.Context) ([]platform.VehicleStatusRecord, error)
	VehicleTracks(ctx context.Context) ([]platform.VehicleTrack, error)
	VehicleDetails(ctx context.Context) ([]platform.VehicleDetail, error)
}

// PlatformFeedSet returns the four platform adapters. Pass a different gps feed
// to the aggregator to replace the platform's track feed.
func PlatformFeedSet(src PlatformFeeds) []Feed {
	return []Feed{RegistryFeed{src}, StatusFeed{src}, GPSFeed{src}, CombinedFeed{src}}
}

// RegistryFeed lists every vehicle on the platform with its home address and booking count.
type RegistryFeed struct{ Src PlatformFeeds }

func (RegistryFeed) Name() string { return string(KindRegistry) }
func (RegistryFeed) Kind() Kind   { return KindRegistry }

func (f RegistryFeed) Fetch(ctx context.Context) (PartialView, error) {
	recs, err := f.Src.Vehicles(ctx)
	if err != nil {
		return PartialView{}, err
	}
	view := newPartialView(KindRegistry, len(recs))
	for _, r := range recs {
		o := Observation{Callsign: r.Callsign, Registration: r.Registration}
		if r.HomeAddress != nil {
			o.HomePosition = pointOf(r.HomeAddress.Coordinate)
		}
		n := r.ActiveBookings
		o.ActiveBookings = &n
		view.add(o)
	}
	return view, nil
}

// StatusFeed maps the platform's status names onto classification signals.
type StatusFeed struct{ Src PlatformFeeds }

func (StatusFeed) Name() string { return string(KindStatus) }
func (StatusFeed) Kind() Kind   { return KindStatus }

func (f StatusFeed) Fetch(ctx context.Context) (PartialView, error) {
	recs, err := f.Src.VehicleStatuses(ctx)
	if err != nil {
		return PartialView{}, err
	}
	view := newPartialView(KindStatus, len(recs))
	for _, r := range recs {
		o := Observation{Callsign: r.Callsign}
		applyStatusType(&o, r.StatusType)
		if r.AtPickup != nil {
			o.AtPickup = boolPtr(*r.AtPickup)
		}
		if r.Zone != nil {
			o.Zone = r.Zone.Name
		}
		d := time.Duration(r.TimeClear) * time.Second
		o.TimeClear = &d
		view.add(o)
	}
	return view, nil
}

type statusSignal int

const (
	signalClear statusSignal = iota
	signalMeterOn
	signalDispatched
	signalAtPickup
	signalOnBreak
	signalWithdrawn
)

var statusTypes = map[string]statusSignal{
	"clear":                      signalClear,
	"available":                  signalClear,
	"free":                       signalClear,
	"busymeteron":                signalMeterOn,
	"busymeteronfrommeteroffjob": signalMeterOn,
	"meteron":                    signalMeterOn,
	"injob":                      signalMeterOn,
	"dispatched":                 signalDispatched,
	"joboffered":                 signalDispatched,
	"pickingup":                  signalDispatched,
	"enroute":                    signalDispatched,
	"busymeteroff":               signalDispatched,
	"atpickup":                   signalAtPickup,
	"arrived":                    signalAtPickup,
	"onbreak":                    signalOnBreak,
	"break":                      signalOnBreak,
	"away":                       signalOnBreak,
	"withdrawn":                  signalWithdrawn,
	"suspended":                  signalWithdrawn,
}

// applyStatusType sets every signal explicitly for a recognised status name so
// the status feed fully decides. Unrecognised names leave the signals unset.
func applyStatusType(o *Observation, statusType string) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(statusType))
	sig, ok := statusTypes[key]
	if !ok {
		return
	}
	o.BusyMeterOn = boolPtr(sig == signalMeterOn)
	o.DispatchInProgress = boolPtr(sig == signalDispatched)
	o.AtPickup = boolPtr(sig == signalAtPickup)
	o.OnBreak = boolPtr(sig == signalOnBreak)
	o.Withdrawn = boolPtr(sig == signalWithdrawn)
}

// GPSFeed is the platform's dedicated vehicle track feed.
type GPSFeed struct{ Src PlatformFeeds }

func (GPSFeed) Name() string { return string(KindGPS) }
func (GPSFeed) Kind() Kind   { return KindGPS }

func (f GPSFeed) Fetch(ctx context.Context) (PartialView, error) {
	tracks, err := f.Src.VehicleTracks(ctx)
	if err != nil {
		return PartialView{}, err
	}
	view := newPartialView(KindGPS, len(tracks))
	for _, t := range tracks {
		view.add(Observation{
			Callsign: t.Callsign,
			Position: pointOf(platform.Coordinate{Latitude: t.Latitude, Longitude: t.Longitude}),
		})
	}
	return view, nil
}

// CombinedFeed carries status flags and position together under its own field names.
type CombinedFeed struct{ Src PlatformFeeds }

func (CombinedFeed) Name() string { return string(KindCombined) }
func (CombinedFeed) Kind() Kind   { return KindCombined }

func (f CombinedFeed) Fetch(ctx context.Context) (PartialView, error) {
	details, err := f.Src.VehicleDetails(ctx)
	if err != nil {
		return PartialView{}, err
	}
	view := newPartialView(KindCombined, len(details))
	for _, d := range details {
		o := Observation{
			Callsign:           d.VehicleCallsign,
			BusyMeterOn:        copyBool(d.HasPassenger),
			DispatchInProgress: copyBool(d.IsDispatched),
			AtPickup:           copyBool(d.IsAtPickup),
			OnBreak:            copyBool(d.IsOnBreak),
			Zone:               d.ZoneName,
		}
		if d.Location != nil {
			o.Position = pointOf(*d.Location)
		}
		if d.TimeClearSecs != nil {
			dur := time.Duration(*d.TimeClearSecs) * time.Second
			o.TimeClear = &dur
		}
		view.add(o)
	}
	return view, nil
}

// pointOf treats 0,0 as "no fix".
func pointOf(c platform.Coordinate) *types.Point {
	if c.Latitude == 0 && c.Longitude == 0 {
		return nil
	}
	return &types.Point{Lat: c.Latitude, Lng: c.Longitude}
}

func boolPtr(b bool) *bool { return &b }

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	return boolPtr(*b)
}
