package telemetry

import (
	"math"

	"taxisync/internal/modules/status"
	"taxisync/internal/types"
)

const earthRadiusKm = 6371.0

// NearbyVehicle is a positioned vehicle with its distance from a query point.
type NearbyVehicle struct {
	VehicleView
	DistanceKm float64 `json:"distance_km"`
}

// Nearby returns positioned vehicles within radiusKm of center, closest first.
// An empty st matches every status.
func (s *Snapshot) Nearby(center types.Point, radiusKm float64, st status.Status) []NearbyVehicle {
	var out []NearbyVehicle
	for _, v := range s.Vehicles {
		if v.Position == nil || (st != "" && v.Status != st) {
			continue
		}
		d := haversineKm(center.Lat, center.Lng, v.Position.Lat, v.Position.Lng)
		if d <= radiusKm {
			out = append(out, NearbyVehicle{VehicleView: v, DistanceKm: d})
		}
	}
	sortByDistance(out, func(n NearbyVehicle) float64 { return n.DistanceKm })
	return out
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// sortByDistance is a stable insertion sort; snapshots are small.
func sortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
