package postgres

import (
	"context"
	"database/sql"
	"errors"

	"parking/internal/domain"
	"parking/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a payment repository over a connection pool or a transaction.
func NewPaymentRepository(q Querier) *PaymentRepository {
	return &PaymentRepository{q: q}
}

const paymentColumns = `id, payment_reference, booking_id, amount, method, status, initiated_at, completed_at, notes`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.Reference,
		&p.BookingID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.InitiatedAt,
		&p.CompletedAt,
		&p.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persists a new payment. A reference collision inserts nothing.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (payment_reference) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.Reference,
		p.BookingID,
		p.Amount,
		p.Method,
		p.Status,
		p.InitiatedAt,
		p.CompletedAt,
		p.Notes,
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

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a payment and locks its row.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *PaymentRepository) getOne(ctx context.Context, query, id string) (*domain.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapError(err)
	}
	return p, nil
}

// ListByBooking retrieves the payments of a booking, oldest first.
func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY initiated_at, id`

	rows, err := r.q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Update updates the mutable fields of a payment.
func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `UPDATE payments SET amount = $1, method = $2, status = $3, completed_at = $4, notes = $5 WHERE id = $6`

	result, err := r.q.ExecContext(ctx, query, p.Amount, p.Method, p.Status, p.CompletedAt, p.Notes, p.ID)
	if err != nil {
		return mapError(err)
	}

	return checkAffected(result)
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)
