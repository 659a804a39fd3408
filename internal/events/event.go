// Package events defines booking lifecycle messages published to the message broker.
package events

import "time"

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingReplaced  = "booking.replaced"
	TypeBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a remote booking mutation succeeds. For
// booking.replaced, PreviousID names the booking that vanished upstream and
// BookingIDs the replacement(s), so the identity change is never silent.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingIDs []string  `json:"booking_ids"`
	PreviousID string    `json:"previous_id,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	Passengers int       `json:"passengers,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
