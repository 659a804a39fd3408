// README: Booking requests, changes and per-call outcomes exchanged with the UI layer.
package booking

import (
	"time"

	"taxisync/internal/platform"
	"taxisync/internal/types"
)

// MaxGroupSize is the largest passenger count a single remote booking may carry.
const MaxGroupSize = 8

// Booking is the remote platform's representation, including rowVersion and any
// fields this service does not model.
type Booking = platform.Booking

// Stop is an address as typed by the operator. When Point is set the address is
// taken as already resolved and is not geocoded again.
type Stop struct {
	Address string       `json:"address"`
	Point   *types.Point `json:"point,omitempty"`
	Note    string       `json:"note,omitempty"`
}

type CreateRequest struct {
	PickupTime  *time.Time `json:"pickup_time,omitempty"`
	Pickup      Stop       `json:"pickup"`
	Destination *Stop      `json:"destination,omitempty"`
	Vias        []Stop     `json:"vias,omitempty"`
	Passengers  int        `json:"passengers"`
	Luggage     int        `json:"luggage"`
	// Price is a manual fare such as "45.00". Empty leaves pricing to the platform.
	Price string `json:"price,omitempty"`
	// Reference is shared by every sub-booking of a split group; generated when empty.
	Reference         string `json:"reference,omitempty"`
	CustomerReference string `json:"customer_reference,omitempty"`
	Name              string `json:"name,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	DriverNote        string `json:"driver_note,omitempty"`
}

// Changes is an edit to an existing booking. Nil fields are left as the platform has them.
type Changes struct {
	PickupTime  *time.Time `json:"pickup_time,omitempty"`
	Pickup      *Stop      `json:"pickup,omitempty"`
	Destination *Stop      `json:"destination,omitempty"`
	// Vias replaces the whole via list when non-nil; an empty slice clears it.
	Vias       *[]Stop `json:"vias,omitempty"`
	Passengers *int    `json:"passengers,omitempty"`
	Luggage    *int    `json:"luggage,omitempty"`
	// Price overrides the fare and re-locks it; an empty string releases a manual price.
	Price             *string `json:"price,omitempty"`
	Reference         *string `json:"reference,omitempty"`
	CustomerReference *string `json:"customer_reference,omitempty"`
	Name              *string `json:"name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty"`
	DriverNote        *string `json:"driver_note,omitempty"`
}

type QuoteRequest struct {
	PickupTime  *time.Time `json:"pickup_time,omitempty"`
	Pickup      Stop       `json:"pickup"`
	Destination *Stop      `json:"destination,omitempty"`
	Vias        []Stop     `json:"vias,omitempty"`
	Passengers  int        `json:"passengers"`
	Luggage     int        `json:"luggage"`
}

type QuoteResult struct {
	Price      types.Money `json:"price"`
	DistanceKm float64     `json:"distance_km"`
	Minutes    float64     `json:"minutes"`
}

// GroupOutcome is the result of one passenger group of a create.
type GroupOutcome struct {
	Index      int      `json:"index"`
	Passengers int      `json:"passengers"`
	Luggage    int      `json:"luggage"`
	Booking    *Booking `json:"booking,omitempty"`
	Err        error    `json:"-"`
	Error      string   `json:"error,omitempty"`
}

func (g GroupOutcome) OK() bool { return g.Err == nil }

type CreateResult struct {
	Reference string         `json:"reference"`
	Groups    []GroupOutcome `json:"groups"`
}

// IDs returns the ids of every group that was created.
func (r *CreateResult) IDs() []types.ID {
	var ids []types.ID
	for _, g := range r.Groups {
		if g.OK() && g.Booking != nil {
			ids = append(ids, bookingID(g.Booking))
		}
	}
	return ids
}

// Succeeded reports whether every group was created.
func (r *CreateResult) Succeeded() bool {
	for _, g := range r.Groups {
		if !g.OK() {
			return false
		}
	}
	return len(r.Groups) > 0
}

type UpdateResult struct {
	Booking *Booking `json:"booking,omitempty"`
	// Overridden is set when the write went through the conflict override.
	Overridden bool `json:"overridden"`
	// Replaced is set when the original vanished upstream and a new booking was
	// created in its place. The id changes; PreviousID holds the old one.
	Replaced    bool          `json:"replaced"`
	PreviousID  types.ID      `json:"previous_id,omitempty"`
	Replacement *CreateResult `json:"replacement,omitempty"`
}

type CancelResult struct {
	ID            types.ID `json:"id"`
	AlreadyAbsent bool     `json:"already_absent"`
}

// ItemOutcome is one entry of a bulk operation.
type ItemOutcome struct {
	Index int        `json:"index"`
	IDs   []types.ID `json:"ids,omitempty"`
	Err   error      `json:"-"`
	Error string     `json:"error,omitempty"`
}

type BulkResult struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Items      []ItemOutcome `json:"items"`
}
