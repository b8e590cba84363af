package domain

import "github.com/shopspring/decimal"

// SlotStats counts slots by occupancy.
type SlotStats struct {
	Total           int             `json:"total"`
	Available       int             `json:"available"`
	Occupied        int             `json:"occupied"`
	Maintenance     int             `json:"maintenance"`
	Inactive        int             `json:"inactive"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
}

// BookingStats counts bookings by status.
type BookingStats struct {
	Total          int                   `json:"total"`
	ByStatus       map[BookingStatus]int `json:"by_status"`
	CompletionRate decimal.Decimal       `json:"completion_rate"`
}

// RevenueStats sums settled booking amounts.
type RevenueStats struct {
	Total               decimal.Decimal `json:"total"`
	Today               decimal.Decimal `json:"today"`
	AverageBookingValue decimal.Decimal `json:"average_booking_value"`
	PaidBookings        int             `json:"paid_bookings"`
}

// PopularSlot is a slot ranked by number of bookings.
type PopularSlot struct {
	SlotID       string `json:"slot_id"`
	SlotNumber   string `json:"slot_number"`
	BookingCount int    `json:"booking_count"`
}

// DashboardStats is the staff overview of the facility.
type DashboardStats struct {
	Slots          SlotStats     `json:"slots"`
	Bookings       BookingStats  `json:"bookings"`
	Revenue        RevenueStats  `json:"revenue"`
	RecentBookings []*Booking    `json:"recent_bookings"`
	PopularSlots   []PopularSlot `json:"popular_slots"`
}

// UserStats summarises one user's bookings.
type UserStats struct {
	TotalBookings     int             `json:"total_bookings"`
	ActiveBookings    int             `json:"active_bookings"`
	CompletedBookings int             `json:"completed_bookings"`
	CancelledBookings int             `json:"cancelled_bookings"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
}

// ParkingInfo is the public overview of the facility.
type ParkingInfo struct {
	TotalSlots       int              `json:"total_slots"`
	AvailableSlots   int              `json:"available_slots"`
	SlotsByType      map[SlotType]int `json:"slots_by_type"`
	AvailableByFloor map[string]int   `json:"available_by_floor"`
	MinHourlyRate    decimal.Decimal  `json:"min_hourly_rate"`
	MaxHourlyRate    decimal.Decimal  `json:"max_hourly_rate"`
}
