// README: Vehicle status enum and the signal tuple the classifier consumes.
package status

type Status string

const (
	StatusAvailable     Status = "available"
	StatusGoingToClient Status = "going_to_client"
	StatusInJob         Status = "in_job"
	StatusOnBreak       Status = "on_break"
	StatusOffline       Status = "offline"
)

// All lists every status in display order.
var All = []Status{StatusAvailable, StatusGoingToClient, StatusInJob, StatusOnBreak, StatusOffline}

func Parse(s string) (Status, bool) {
	for _, st := range All {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Signals is the merged fact tuple for one vehicle in one refresh cycle.
type Signals struct {
	BusyMeterOn        bool `json:"busy_meter_on"`
	DispatchInProgress bool `json:"dispatch_in_progress"`
	AtPickup           bool `json:"at_pickup"`
	OnBreak            bool `json:"on_break"`
	Withdrawn          bool `json:"withdrawn"`
	// NoTelemetry is set when no live feed reported the vehicle this cycle.
	NoTelemetry bool `json:"no_telemetry"`
}
