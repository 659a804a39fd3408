package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// VehicleRecord is one entry of the vehicle registry.
type VehicleRecord struct {
	ID             int      `json:"id"`
	Callsign       string   `json:"callsign"`
	Registration   string   `json:"registration,omitempty"`
	IsActive       bool     `json:"isActive"`
	HomeAddress    *Address `json:"homeAddress,omitempty"`
	ActiveBookings int      `json:"activeBookings"`
}

// VehicleStatusRecord comes from the dedicated status feed. StatusType is the
// platform's free-form status name; TimeClear is seconds since the vehicle became clear.
type VehicleStatusRecord struct {
	Callsign   string `json:"callsign"`
	StatusType string `json:"vehicleStatusType"`
	AtPickup   *bool  `json:"atPickup,omitempty"`
	TimeClear  int    `json:"timeClear"`
	Zone       *Zone  `json:"zone,omitempty"`
}

type VehicleTrack struct {
	Callsign   string    `json:"callsign"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// VehicleDetail comes from the combined status+position feed, which names its flags differently.
type VehicleDetail struct {
	VehicleCallsign string      `json:"vehicleCallsign"`
	Location        *Coordinate `json:"currentLocation,omitempty"`
	HasPassenger    *bool       `json:"hasPassenger,omitempty"`
	IsDispatched    *bool       `json:"isDispatched,omitempty"`
	IsAtPickup      *bool       `json:"isAtPickup,omitempty"`
	IsOnBreak       *bool       `json:"isOnBreak,omitempty"`
	ZoneName        string      `json:"zoneName,omitempty"`
	TimeClearSecs   *int        `json:"timeClearSeconds,omitempty"`
}

func (c *Client) Vehicles(ctx context.Context) ([]VehicleRecord, error) {
	var out []VehicleRecord
	if err := c.do(ctx, http.MethodGet, "/vehicle/v1/vehicles", nil, &out); err != nil {
		return nil, fmt.Errorf("vehicles: %w", err)
	}
	return out, nil
}

func (c *Client) VehicleStatuses(ctx context.Context) ([]VehicleStatusRecord, error) {
	var out []VehicleStatusRecord
	if err := c.do(ctx, http.MethodGet, "/vehicle/v1/vehiclestatuses", nil, &out); err != nil {
		return nil, fmt.Errorf("vehicle statuses: %w", err)
	}
	return out, nil
}

func (c *Client) VehicleTracks(ctx context.Context) ([]VehicleTrack, error) {
	var out []VehicleTrack
	if err := c.do(ctx, http.MethodGet, "/vehicle/v1/vehicletracks", nil, &out); err != nil {
		return nil, fmt.Errorf("vehicle tracks: %w", err)
	}
	return out, nil
}

func (c *Client) VehicleDetails(ctx context.Context) ([]VehicleDetail, error) {
	var out []VehicleDetail
	if err := c.do(ctx, http.MethodGet, "/vehicle/v1/vehiclesdetails", nil, &out); err != nil {
		return nil, fmt.Errorf("vehicle details: %w", err)
	}
	return out, nil
}
