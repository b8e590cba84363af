// Package events publishes booking lifecycle events to downstream consumers.
package events

import "time"

// Type identifies a booking lifecycle event.
type Type string

const (
	BookingConfirmed Type = "booking.confirmed"
	BookingCheckedIn Type = "booking.checked_in"
	BookingCompleted Type = "booking.completed"
	BookingCancelled Type = "booking.cancelled"
	PaymentRecorded  Type = "payment.recorded"
)

// Event is the message body published for every lifecycle change.
type Event struct {
	ID               string            `json:"id"`
	Type             Type              `json:"type"`
	UserID           string            `json:"user_id"`
	BookingID        string            `json:"booking_id"`
	BookingReference string            `json:"booking_reference"`
	SlotID           string            `json:"slot_id"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	OccurredAt       time.Time         `json:"occurred_at"`
}
