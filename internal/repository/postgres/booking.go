package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"parking/internal/domain"
	"parking/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a booking repository over a connection pool or a transaction.
func NewBookingRepository(q Querier) *BookingRepository {
	return &BookingRepository{q: q}
}

const bookingColumns = `id, booking_reference, user_id, slot_id, start_time, expected_end_time,
	actual_end_time, check_in_time, check_out_time, status, payment_status,
	base_rate, premium_rate, total_amount, amount_paid,
	vehicle_number, vehicle_type, vehicle_model, vehicle_color, special_requirements,
	cancelled_at, cancellation_reason, created_at, updated_at`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.UserID,
		&b.SlotID,
		&b.StartTime,
		&b.ExpectedEndTime,
		&b.ActualEndTime,
		&b.CheckInTime,
		&b.CheckOutTime,
		&b.Status,
		&b.PaymentStatus,
		&b.BaseRate,
		&b.PremiumRate,
		&b.TotalAmount,
		&b.AmountPaid,
		&b.Vehicle.Number,
		&b.Vehicle.Type,
		&b.Vehicle.Model,
		&b.Vehicle.Color,
		&b.SpecialRequirements,
		&b.CancelledAt,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Create persists a new booking. A reference collision inserts nothing and
// leaves the transaction usable so the caller can retry.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (booking_reference) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.Reference,
		b.UserID,
		b.SlotID,
		b.StartTime,
		b.ExpectedEndTime,
		b.ActualEndTime,
		b.CheckInTime,
		b.CheckOutTime,
		b.Status,
		b.PaymentStatus,
		b.BaseRate,
		b.PremiumRate,
		b.TotalAmount,
		b.AmountPaid,
		b.Vehicle.Number,
		b.Vehicle.Type,
		b.Vehicle.Model,
		b.Vehicle.Color,
		b.SpecialRequirements,
		b.CancelledAt,
		b.CancellationReason,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}

	if err := checkAffected(result); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrDuplicateReference
		}
		return err
	}

	return nil
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a booking and locks its row.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *BookingRepository) getOne(ctx context.Context, query, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapError(err)
	}
	return b, nil
}

// Update updates an existing booking. Reference, owner, slot and the
// rate snapshot never change after creation.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET actual_end_time = $1, check_in_time = $2, check_out_time = $3, status = $4,
			payment_status = $5, amount_paid = $6, cancelled_at = $7, cancellation_reason = $8,
			updated_at = $9
		WHERE id = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		b.ActualEndTime,
		b.CheckInTime,
		b.CheckOutTime,
		b.Status,
		b.PaymentStatus,
		b.AmountPaid,
		b.CancelledAt,
		b.CancellationReason,
		b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return mapError(err)
	}

	return checkAffected(result)
}

// ListByUser retrieves a user's bookings, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, statuses []domain.BookingStatus) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1`
	args := []any{userID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statusStrings(statuses)))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// CountOpenBySlot counts the slot's bookings in a non-terminal status.
func (r *BookingRepository) CountOpenBySlot(ctx context.Context, slotID string) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status = ANY($2)`

	var count int
	err := r.q.QueryRowContext(ctx, query, slotID, pq.Array(statusStrings(domain.OpenBookingStatuses))).Scan(&count)
	return count, mapError(err)
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ repository.BookingRepository = (*BookingRepository)(nil)
