// README: GPS feed read from the driver app's Firebase Realtime Database node.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"

	"taxisync/internal/types"
)

const driverLocationsPath = "driver_locations"

// rtdbDriverEntry mirrors one driver entry under /driver_locations.
// Timestamp is milliseconds since the epoch, as written by the app.
type rtdbDriverEntry struct {
	Callsign  string  `json:"callsign"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Status    string  `json:"status"`
	Timestamp int64   `json:"timestamp"`
}

// FirebaseGPSFeed replaces the platform track feed with positions pushed by the
// driver app. Entries older than MaxAge are ignored.
type FirebaseGPSFeed struct {
	MaxAge time.Duration

	load func(ctx context.Context) (map[string]rtdbDriverEntry, error)
	now  func() time.Time
}

func NewFirebaseGPSFeed(client *db.Client, maxAge time.Duration) *FirebaseGPSFeed {
	return &FirebaseGPSFeed{
		MaxAge: maxAge,
		load: func(ctx context.Context) (map[string]rtdbDriverEntry, error) {
			var data map[string]rtdbDriverEntry
			ref := client.NewRef(driverLocationsPath)
			if err := ref.OrderByChild("status").EqualTo("online").Get(ctx, &data); err != nil {
				return nil, fmt.Errorf("querying driver locations: %w", err)
			}
			return data, nil
		},
		now: time.Now,
	}
}

func (*FirebaseGPSFeed) Name() string { return string(KindGPS) }
func (*FirebaseGPSFeed) Kind() Kind   { return KindGPS }

func (f *FirebaseGPSFeed) Fetch(ctx context.Context) (PartialView, error) {
	data, err := f.load(ctx)
	if err != nil {
		return PartialView{}, err
	}
	view := newPartialView(KindGPS, len(data))
	cutoff := f.now().Add(-f.MaxAge)
	for key, e := range data {
		if f.MaxAge > 0 && time.UnixMilli(e.Timestamp).Before(cutoff) {
			continue
		}
		if e.Lat == 0 && e.Lng == 0 {
			continue
		}
		callsign := e.Callsign
		if callsign == "" {
			callsign = key
		}
		view.add(Observation{Callsign: callsign, Position: &types.Point{Lat: e.Lat, Lng: e.Lng}})
	}
	return view, nil
}
