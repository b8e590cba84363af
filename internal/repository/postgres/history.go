package postgres

import (
	"context"

	"parking/internal/domain"
	"parking/internal/repository"
)

// HistoryRepository is a PostgreSQL implementation of repository.HistoryRepository.
type HistoryRepository struct {
	q Querier
}

// NewHistoryRepository creates a history repository over a connection pool or a transaction.
func NewHistoryRepository(q Querier) *HistoryRepository {
	return &HistoryRepository{q: q}
}

// Create persists a new history entry.
func (r *HistoryRepository) Create(ctx context.Context, h *domain.BookingHistory) error {
	query := `
		INSERT INTO booking_history (id, user_id, slot_id, slot_number, booking_reference, booked_at, released_at, duration_hours, total_cost, vehicle_number, final_status, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		h.ID,
		h.UserID,
		h.SlotID,
		h.SlotNumber,
		h.BookingReference,
		h.BookedAt,
		h.ReleasedAt,
		h.DurationHours,
		h.TotalCost,
		h.VehicleNumber,
		h.FinalStatus,
		h.ArchivedAt,
	)

	return mapError(err)
}

// ListByUser retrieves a user's history, most recently released first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.BookingHistory, error) {
	query := `
		SELECT id, user_id, slot_id, slot_number, booking_reference, booked_at, released_at, duration_hours, total_cost, vehicle_number, final_status, archived_at
		FROM booking_history WHERE user_id = $1 ORDER BY released_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []*domain.BookingHistory
	for rows.Next() {
		var h domain.BookingHistory
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.SlotID,
			&h.SlotNumber,
			&h.BookingReference,
			&h.BookedAt,
			&h.ReleasedAt,
			&h.DurationHours,
			&h.TotalCost,
			&h.VehicleNumber,
			&h.FinalStatus,
			&h.ArchivedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

var _ repository.HistoryRepository = (*HistoryRepository)(nil)
