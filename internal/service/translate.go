package service

import (
	"errors"
	"fmt"

	"parking/internal/repository"
)

func translateSlotError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrSlotNotFound
	case errors.Is(err, repository.ErrDuplicateSlotNumber):
		return ErrSlotNumberTaken
	}
	return err
}

func translateBookingError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrBookingNotFound
	}
	return err
}

func translatePaymentError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPaymentNotFound
	}
	return err
}

// translateStoreError maps transaction-level store failures.
func translateStoreError(err error) error {
	if errors.Is(err, repository.ErrSerialization) {
		return ErrConcurrentUpdate
	}
	return err
}

// partialWrite reports a write that failed after earlier writes of the same
// unit of work succeeded. The transaction rolls back; the error is a bug signal.
func partialWrite(step string, err error) error {
	if errors.Is(err, repository.ErrSerialization) {
		return ErrConcurrentUpdate
	}
	return fmt.Errorf("%w: %s: %v", ErrInvariantViolation, step, err)
}
