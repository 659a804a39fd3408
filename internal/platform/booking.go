package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Zone struct {
	ID         int    `json:"id"`
	Name       string `json:"name,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
}

type Address struct {
	Text       string     `json:"text"`
	Coordinate Coordinate `json:"coordinate"`
	Zone       *Zone      `json:"zone,omitempty"`
}

type Location struct {
	Address Address `json:"address"`
	Note    string  `json:"note,omitempty"`
}

// Pricing is the booking price block. IsManual and IsLocked travel together.
type Pricing struct {
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost,omitempty"`
	IsManual bool    `json:"isManual"`
	IsLocked bool    `json:"isLocked"`
}

type References struct {
	YourReference1 string `json:"yourReference1,omitempty"`
	YourReference2 string `json:"yourReference2,omitempty"`
}

// Booking is the platform's booking document. Fields this client does not model
// are kept in Extra and written back unchanged, so a read-modify-write never drops them.
type Booking struct {
	ID              int64      `json:"id,omitempty"`
	RowVersion      string     `json:"rowVersion,omitempty"`
	PickupDueTime   *time.Time `json:"pickupDueTime,omitempty"`
	Pickup          Location   `json:"pickup"`
	Destination     *Location  `json:"destination,omitempty"`
	Vias            []Location `json:"vias"`
	Passengers      int        `json:"passengers"`
	Luggage         int        `json:"luggage"`
	Pricing         Pricing    `json:"pricing"`
	YourReferences  References `json:"yourReferences"`
	OurReference    string     `json:"ourReference,omitempty"`
	Name            string     `json:"name,omitempty"`
	TelephoneNumber string     `json:"telephoneNumber,omitempty"`
	Email           string     `json:"email,omitempty"`
	DriverNote      string     `json:"driverNote,omitempty"`
	Status          string     `json:"status,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var bookingFields = []string{
	"id", "rowVersion", "pickupDueTime", "pickup", "destination", "vias", "passengers", "luggage",
	"pricing", "yourReferences", "ourReference", "name", "telephoneNumber", "email", "driverNote", "status",
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	type plain Booking
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range bookingFields {
		delete(all, k)
	}
	*b = Booking(p)
	b.Extra = nil
	if len(all) > 0 {
		b.Extra = all
	}
	return nil
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type plain Booking
	data, err := json.Marshal(plain(b))
	if err != nil || len(b.Extra) == 0 {
		return data, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range b.Extra {
		if _, known := all[k]; !known {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	cp := *b
	if b.PickupDueTime != nil {
		t := *b.PickupDueTime
		cp.PickupDueTime = &t
	}
	cp.Pickup = cloneLocation(b.Pickup)
	if b.Destination != nil {
		d := cloneLocation(*b.Destination)
		cp.Destination = &d
	}
	if b.Vias != nil {
		cp.Vias = make([]Location, len(b.Vias))
		for i, v := range b.Vias {
			cp.Vias[i] = cloneLocation(v)
		}
	}
	if b.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(b.Extra))
		for k, v := range b.Extra {
			cp.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &cp
}

func cloneLocation(l Location) Location {
	if l.Address.Zone != nil {
		z := *l.Address.Zone
		l.Address.Zone = &z
	}
	return l
}

type QuoteRequest struct {
	PickupDueTime *time.Time `json:"pickupDueTime,omitempty"`
	Pickup        Location   `json:"pickup"`
	Destination   *Location  `json:"destination,omitempty"`
	Vias          []Location `json:"vias"`
	Passengers    int        `json:"passengers"`
	Luggage       int        `json:"luggage"`
}

type Quote struct {
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	DistanceKm float64 `json:"distance"`
	Minutes    float64 `json:"duration"`
}

func (c *Client) CreateBooking(ctx context.Context, b *Booking) (*Booking, error) {
	var out Booking
	if err := c.do(ctx, http.MethodPost, "/booking/v1/booking", b, &out); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return &out, nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	var out Booking
	if err := c.do(ctx, http.MethodGet, bookingPath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &out, nil
}

// ModifyBooking replaces the booking with b, which must carry the rowVersion it was read at.
// With override set the platform accepts the write even if the row version moved on.
func (c *Client) ModifyBooking(ctx context.Context, b *Booking, override bool) (*Booking, error) {
	path := bookingPath(b.ID)
	if override {
		path += "/override"
	}
	var out Booking
	if err := c.do(ctx, http.MethodPost, path, b, &out); err != nil {
		return nil, fmt.Errorf("modify booking %d: %w", b.ID, err)
	}
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, bookingPath(id), nil, nil); err != nil {
		return fmt.Errorf("cancel booking %d: %w", id, err)
	}
	return nil
}

func (c *Client) Quote(ctx context.Context, q QuoteRequest) (*Quote, error) {
	var out Quote
	if err := c.do(ctx, http.MethodPost, "/booking/v1/quote", q, &out); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	return &out, nil
}
