package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateReference is returned when an insert collides with an
	// existing booking or payment reference.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrDuplicateSlotNumber is returned when a slot number is already taken.
	ErrDuplicateSlotNumber = errors.New("duplicate slot number")

	// ErrOpenBookingExists is returned when a slot already has a
	// non-terminal booking.
	ErrOpenBookingExists = errors.New("slot already has an open booking")

	// ErrSerialization is returned when the store aborts a transaction
	// because of a concurrent update.
	ErrSerialization = errors.New("concurrent update")
)
