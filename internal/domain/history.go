package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingHistory is an immutable snapshot of a released booking.
type BookingHistory struct {
	ID               string
	UserID           string
	SlotID           string
	SlotNumber       string
	BookingReference string
	BookedAt         time.Time
	ReleasedAt       time.Time
	DurationHours    decimal.Decimal
	TotalCost        decimal.Decimal
	VehicleNumber    string
	FinalStatus      BookingStatus
	ArchivedAt       time.Time
}
