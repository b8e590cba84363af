package service

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the services wraps one of them
// so callers can classify failures with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a request that lost against the current state.
	ErrConflict = errors.New("conflict")

	// ErrForbidden marks a caller that may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvariantViolation marks an internal inconsistency. It indicates a bug.
	ErrInvariantViolation = errors.New("invariant violation")
)

var (
	// ErrInvalidInterval is returned when an end time is not after its start time.
	ErrInvalidInterval = fmt.Errorf("%w: end time must be after start time", ErrValidation)

	// ErrStartInPast is returned when a booking would start before now.
	ErrStartInPast = fmt.Errorf("%w: start time cannot be in the past", ErrValidation)

	// ErrInvalidRate is returned when an hourly rate is negative.
	ErrInvalidRate = fmt.Errorf("%w: hourly rates must be non-negative", ErrValidation)

	// ErrInvalidAmount is returned when a payment amount is not positive.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)

	// ErrInvalidPaymentMethod is returned when the payment method is unknown.
	ErrInvalidPaymentMethod = fmt.Errorf("%w: invalid payment method", ErrValidation)

	// ErrInvalidSlotID is returned when slot ID is empty.
	ErrInvalidSlotID = fmt.Errorf("%w: invalid slot id", ErrValidation)

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = fmt.Errorf("%w: invalid booking id", ErrValidation)

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = fmt.Errorf("%w: invalid payment id", ErrValidation)

	// ErrInvalidVehicle is returned when the vehicle details are incomplete.
	ErrInvalidVehicle = fmt.Errorf("%w: invalid vehicle", ErrValidation)

	// ErrInvalidStatus is returned when a status value is unknown or not settable.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)

	// ErrInvalidSlot is returned when slot attributes are malformed.
	ErrInvalidSlot = fmt.Errorf("%w: invalid slot", ErrValidation)

	// ErrUnauthenticated is returned when an operation has no caller identity.
	ErrUnauthenticated = fmt.Errorf("%w: authentication required", ErrValidation)
)

var (
	// ErrSlotNotFound is returned when the slot does not exist.
	ErrSlotNotFound = fmt.Errorf("%w: slot", ErrNotFound)

	// ErrBookingNotFound is returned when the booking does not exist.
	ErrBookingNotFound = fmt.Errorf("%w: booking", ErrNotFound)

	// ErrPaymentNotFound is returned when the payment does not exist.
	ErrPaymentNotFound = fmt.Errorf("%w: payment", ErrNotFound)
)

var (
	// ErrSlotUnavailable is returned when the slot cannot be reserved.
	ErrSlotUnavailable = fmt.Errorf("%w: slot is not available", ErrConflict)

	// ErrSlotHasActiveBooking is returned when a slot change would strand an open booking.
	ErrSlotHasActiveBooking = fmt.Errorf("%w: slot has an active booking", ErrConflict)

	// ErrSlotNumberTaken is returned when the slot number is already in use.
	ErrSlotNumberTaken = fmt.Errorf("%w: slot number already exists", ErrConflict)

	// ErrInvalidTransition is returned when the booking is not in the required status.
	ErrInvalidTransition = fmt.Errorf("%w: invalid booking status transition", ErrConflict)

	// ErrCannotCancel is returned when the booking has started or is past cancellation.
	ErrCannotCancel = fmt.Errorf("%w: booking cannot be cancelled", ErrConflict)

	// ErrAlreadyPaid is returned when the booking has already been paid.
	ErrAlreadyPaid = fmt.Errorf("%w: booking already paid", ErrConflict)

	// ErrPaymentAlreadyCompleted is returned when completing a completed payment.
	ErrPaymentAlreadyCompleted = fmt.Errorf("%w: payment already completed", ErrConflict)

	// ErrConcurrentUpdate is returned when the store aborted a transaction
	// because of a concurrent write.
	ErrConcurrentUpdate = fmt.Errorf("%w: concurrent update, retry the request", ErrConflict)

	// ErrReferenceExhausted is returned when no unique reference could be generated.
	ErrReferenceExhausted = fmt.Errorf("%w: could not generate a unique reference", ErrConflict)
)

var (
	// ErrNotOwner is returned when the caller does not own the booking.
	ErrNotOwner = fmt.Errorf("%w: booking belongs to another user", ErrForbidden)

	// ErrStaffOnly is returned when a non-staff caller attempts an administrative operation.
	ErrStaffOnly = fmt.Errorf("%w: staff access required", ErrForbidden)
)
