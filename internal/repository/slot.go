package repository

import (
	"context"

	"parking/internal/domain"
)

// SlotRepository defines the persistence operations for parking slots.
type SlotRepository interface {
	// Create persists a new slot.
	// Returns ErrDuplicateSlotNumber if the slot number is taken.
	Create(ctx context.Context, slot *domain.ParkingSlot) error

	// GetByID retrieves a slot by ID.
	GetByID(ctx context.Context, id string) (*domain.ParkingSlot, error)

	// GetByIDForUpdate retrieves a slot and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.ParkingSlot, error)

	// GetBySlotNumber retrieves a slot by its slot number.
	GetBySlotNumber(ctx context.Context, slotNumber string) (*domain.ParkingSlot, error)

	// List retrieves slots matching the filter, ordered by floor and slot number.
	List(ctx context.Context, filter domain.SlotFilter) ([]*domain.ParkingSlot, error)

	// Update updates an existing slot.
	// Returns ErrDuplicateSlotNumber if the slot number is taken.
	Update(ctx context.Context, slot *domain.ParkingSlot) error

	// UpdateStatus updates the status of a slot.
	UpdateStatus(ctx context.Context, id string, status domain.SlotStatus) error
}
