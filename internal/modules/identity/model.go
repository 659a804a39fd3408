// README: Driver identity and the static callsign assignment it is looked up by.
package identity

import (
	"strings"

	"taxisync/internal/types"
)

type DriverIdentity struct {
	DriverID      types.ID `json:"driver_id"`
	Name          string   `json:"name"`
	Phone         string   `json:"phone,omitempty"`
	LicenceNumber string   `json:"licence_number,omitempty"`
}

// Assignment binds a vehicle callsign to the driver currently holding it.
type Assignment struct {
	Callsign string         `json:"callsign"`
	Driver   DriverIdentity `json:"driver"`
}

// NormalizeCallsign is the canonical key form shared by feeds and the assignment table.
func NormalizeCallsign(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}
