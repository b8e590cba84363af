package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"parking/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Constraint names referenced by error mapping. They must match migrations.
const (
	constraintSlotNumber      = "parking_slots_slot_number_key"
	constraintBookingRef      = "bookings_booking_reference_key"
	constraintOpenBookingSlot = "bookings_one_open_per_slot"
	constraintPaymentRef      = "payments_payment_reference_key"
)

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code.Name() {
	case "unique_violation":
		switch pqErr.Constraint {
		case constraintSlotNumber:
			return fmt.Errorf("%w: %s", repository.ErrDuplicateSlotNumber, pqErr.Detail)
		case constraintBookingRef, constraintPaymentRef:
			return repository.ErrDuplicateReference
		case constraintOpenBookingSlot:
			return repository.ErrOpenBookingExists
		}
	case "invalid_text_representation":
		// A malformed uuid can never match a row.
		return repository.ErrNotFound
	case "serialization_failure", "deadlock_detected":
		return fmt.Errorf("%w: %s", repository.ErrSerialization, pqErr.Message)
	}

	return err
}

// checkAffected returns repository.ErrNotFound when an update touched no rows.
func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
