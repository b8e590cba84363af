package repository

import (
	"context"

	"parking/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	// Returns ErrDuplicateReference if the reference is taken and
	// ErrOpenBookingExists if the slot already has an open booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByIDForUpdate retrieves a booking and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)

	// Update updates an existing booking.
	Update(ctx context.Context, booking *domain.Booking) error

	// ListByUser retrieves a user's bookings, newest first.
	// An empty statuses slice matches every status.
	ListByUser(ctx context.Context, userID string, statuses []domain.BookingStatus) ([]*domain.Booking, error)

	// CountOpenBySlot counts the slot's bookings in a non-terminal status.
	CountOpenBySlot(ctx context.Context, slotID string) (int, error)
}
