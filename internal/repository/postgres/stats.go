package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"parking/internal/domain"
	"parking/internal/repository"
)

// StatsRepository is a PostgreSQL implementation of repository.StatsRepository.
type StatsRepository struct {
	q Querier
}

// NewStatsRepository creates a stats repository over a connection pool or a transaction.
func NewStatsRepository(q Querier) *StatsRepository {
	return &StatsRepository{q: q}
}

// SlotStats counts slots by status. Inactive slots are counted apart.
func (r *StatsRepository) SlotStats(ctx context.Context) (domain.SlotStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE is_active AND status = 'available'),
			COUNT(*) FILTER (WHERE is_active AND status = 'occupied'),
			COUNT(*) FILTER (WHERE is_active AND status = 'maintenance'),
			COUNT(*) FILTER (WHERE NOT is_active)
		FROM parking_slots
	`

	var stats domain.SlotStats
	err := r.q.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Available,
		&stats.Occupied,
		&stats.Maintenance,
		&stats.Inactive,
	)
	return stats, err
}

// BookingStats counts bookings by status.
func (r *StatsRepository) BookingStats(ctx context.Context) (domain.BookingStats, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return domain.BookingStats{}, err
	}
	defer rows.Close()

	stats := domain.BookingStats{ByStatus: make(map[domain.BookingStatus]int)}
	for rows.Next() {
		var status domain.BookingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.BookingStats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// Revenue sums completed payments, overall and since dayStart.
func (r *StatsRepository) Revenue(ctx context.Context, dayStart time.Time) (domain.RevenueStats, error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE completed_at >= $1), 0),
			COUNT(DISTINCT booking_id)
		FROM payments WHERE status = 'completed'
	`

	var stats domain.RevenueStats
	err := r.q.QueryRowContext(ctx, query, dayStart).Scan(&stats.Total, &stats.Today, &stats.PaidBookings)
	return stats, err
}

// RecentBookings retrieves the latest bookings, newest first.
func (r *StatsRepository) RecentBookings(ctx context.Context, limit int) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// PopularSlots ranks slots by number of bookings.
func (r *StatsRepository) PopularSlots(ctx context.Context, limit int) ([]domain.PopularSlot, error) {
	query := `
		SELECT s.id, s.slot_number, COUNT(b.id) AS booking_count
		FROM parking_slots s
		JOIN bookings b ON b.slot_id = s.id
		GROUP BY s.id, s.slot_number
		ORDER BY booking_count DESC, s.slot_number
		LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.PopularSlot
	for rows.Next() {
		var p domain.PopularSlot
		if err := rows.Scan(&p.SlotID, &p.SlotNumber, &p.BookingCount); err != nil {
			return nil, err
		}
		slots = append(slots, p)
	}
	return slots, rows.Err()
}

// UserStats summarises one user's bookings.
func (r *StatsRepository) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = ANY($2)),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(amount_paid), 0)
		FROM bookings WHERE user_id = $1
	`

	var stats domain.UserStats
	var spent decimal.Decimal
	err := r.q.QueryRowContext(ctx, query, userID, pq.Array([]string{
		string(domain.BookingStatusConfirmed),
		string(domain.BookingStatusActive),
	})).Scan(
		&stats.TotalBookings,
		&stats.ActiveBookings,
		&stats.CompletedBookings,
		&stats.CancelledBookings,
		&spent,
	)
	stats.TotalSpent = spent
	return stats, err
}

var _ repository.StatsRepository = (*StatsRepository)(nil)
