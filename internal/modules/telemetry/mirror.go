// README: Snapshot mirror backed by Redis (JSON document + GEO index of positioned vehicles).
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taxisync/internal/types"
)

const (
	snapshotKey   = "taxisync:snapshot"
	vehicleGeoKey = "taxisync:vehicles:geo"
)

type RedisMirror struct {
	redis *redis.Client
	// ttl expires the mirror if the refresh loop stops.
	ttl time.Duration
}

func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{redis: client, ttl: ttl}
}

// Write replaces the mirrored snapshot and the GEO index in one transaction.
func (m *RedisMirror) Write(ctx context.Context, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var locs []*redis.GeoLocation
	for _, v := range s.Vehicles {
		if v.Position == nil {
			continue
		}
		locs = append(locs, &redis.GeoLocation{
			Name:      v.Callsign,
			Longitude: v.Position.Lng,
			Latitude:  v.Position.Lat,
		})
	}

	pipe := m.redis.TxPipeline()
	pipe.Set(ctx, snapshotKey, data, m.ttl)
	pipe.Del(ctx, vehicleGeoKey)
	if len(locs) > 0 {
		pipe.GeoAdd(ctx, vehicleGeoKey, locs...)
		if m.ttl > 0 {
			pipe.Expire(ctx, vehicleGeoKey, m.ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// NearbyCallsigns queries the mirrored GEO index, closest first.
func (m *RedisMirror) NearbyCallsigns(ctx context.Context, p types.Point, radiusKm float64) ([]string, error) {
	return m.redis.GeoSearch(ctx, vehicleGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
}

