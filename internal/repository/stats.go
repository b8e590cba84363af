package repository

import (
	"context"
	"time"

	"parking/internal/domain"
)

// StatsRepository defines the read-side aggregations over slots and bookings.
type StatsRepository interface {
	// SlotStats counts slots by status. Inactive slots are counted apart.
	SlotStats(ctx context.Context) (domain.SlotStats, error)

	// BookingStats counts bookings by status.
	BookingStats(ctx context.Context) (domain.BookingStats, error)

	// Revenue sums completed payments, overall and since dayStart.
	Revenue(ctx context.Context, dayStart time.Time) (domain.RevenueStats, error)

	// RecentBookings retrieves the latest bookings, newest first.
	RecentBookings(ctx context.Context, limit int) ([]*domain.Booking, error)

	// PopularSlots ranks slots by number of bookings.
	PopularSlots(ctx context.Context, limit int) ([]domain.PopularSlot, error)

	// UserStats summarises one user's bookings.
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
}
