package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// BookingStatus represents the lifecycle status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// OpenBookingStatuses are the non-terminal statuses. A slot holds at most
// one booking in any of them.
var OpenBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusActive,
}

var validBookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusActive, BookingStatusCancelled},
	BookingStatusActive:    {BookingStatusCompleted},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	_, ok := validBookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows moving from s to target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range validBookingTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is defined from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// IsOpen reports whether s still holds the slot.
func (s BookingStatus) IsOpen() bool {
	return s.Valid() && !s.IsTerminal()
}

// BookingPaymentStatus is the settlement state of a booking.
type BookingPaymentStatus string

const (
	BookingPaymentPending BookingPaymentStatus = "pending"
	BookingPaymentPaid    BookingPaymentStatus = "paid"
	BookingPaymentFailed  BookingPaymentStatus = "failed"
)

// VehicleType is the kind of vehicle a booking is for.
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeSUV        VehicleType = "suv"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeTruck      VehicleType = "truck"
	VehicleTypeVan        VehicleType = "van"
)

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleTypeCar, VehicleTypeSUV, VehicleTypeMotorcycle, VehicleTypeTruck, VehicleTypeVan:
		return true
	}
	return false
}

// Vehicle describes the vehicle parked under a booking.
type Vehicle struct {
	Number string
	Type   VehicleType
	Model  string
	Color  string
}

// Booking represents a user's reservation of a slot.
type Booking struct {
	ID                  string
	Reference           string
	UserID              string
	SlotID              string
	StartTime           time.Time
	ExpectedEndTime     time.Time
	ActualEndTime       null.Time
	CheckInTime         null.Time
	CheckOutTime        null.Time
	Status              BookingStatus
	PaymentStatus       BookingPaymentStatus
	BaseRate            decimal.Decimal // rate snapshot at booking time
	PremiumRate         decimal.Decimal
	TotalAmount         decimal.Decimal
	AmountPaid          decimal.Decimal
	Vehicle             Vehicle
	SpecialRequirements string
	CancelledAt         null.Time
	CancellationReason  string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CanCancel reports whether the booking may still be cancelled at now.
func (b *Booking) CanCancel(now time.Time) bool {
	return b.Status.CanTransitionTo(BookingStatusCancelled) && now.Before(b.StartTime)
}

// IsPaid reports whether the booking has been settled.
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == BookingPaymentPaid
}
