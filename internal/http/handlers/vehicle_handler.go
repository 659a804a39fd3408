// README: Vehicle snapshot handlers (list, single vehicle, nearby search).
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taxisync/internal/modules/status"
	"taxisync/internal/modules/telemetry"
	"taxisync/internal/types"
)

// SnapshotSource returns the latest published snapshot, nil before the first one.
type SnapshotSource interface {
	Snapshot() *telemetry.Snapshot
}

type VehicleHandler struct {
	snapshots SnapshotSource
}

func NewVehicleHandler(src SnapshotSource) *VehicleHandler {
	return &VehicleHandler{snapshots: src}
}

const defaultNearbyRadiusKm = 5.0

type vehicleListResp struct {
	Generation  uint64                  `json:"generation"`
	GeneratedAt time.Time               `json:"generated_at"`
	FeedErrors  map[string]string       `json:"feed_errors,omitempty"`
	Counts      map[status.Status]int   `json:"counts"`
	Vehicles    []telemetry.VehicleView `json:"vehicles"`
}

func (h *VehicleHandler) snapshot(c *gin.Context) (*telemetry.Snapshot, bool) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		writeError(c, http.StatusServiceUnavailable, "vehicle snapshot not ready")
		return nil, false
	}
	return snap, true
}

func statusFilter(c *gin.Context) (status.Status, bool) {
	raw := c.Query("status")
	if raw == "" {
		return "", true
	}
	st, ok := status.Parse(raw)
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown status")
		return "", false
	}
	return st, true
}

func (h *VehicleHandler) List(c *gin.Context) {
	st, ok := statusFilter(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, vehicleListResp{
		Generation:  snap.Generation,
		GeneratedAt: snap.GeneratedAt,
		FeedErrors:  snap.FeedErrors,
		Counts:      snap.Counts(),
		Vehicles:    snap.WithStatus(st),
	})
}

func (h *VehicleHandler) Get(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	v, found := snap.Vehicle(c.Param("callsign"))
	if !found {
		writeError(c, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (h *VehicleHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := defaultNearbyRadiusKm
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	st, ok := statusFilter(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"generation": snap.Generation,
		"vehicles":   snap.Nearby(types.Point{Lat: lat, Lng: lng}, radius, st),
	})
}
