package repository

import (
	"context"

	"parking/internal/domain"
)

// HistoryRepository defines the persistence operations for booking history.
// Entries are append-only.
type HistoryRepository interface {
	// Create persists a new history entry.
	Create(ctx context.Context, entry *domain.BookingHistory) error

	// ListByUser retrieves a user's history, most recently released first.
	ListByUser(ctx context.Context, userID string) ([]*domain.BookingHistory, error)
}
