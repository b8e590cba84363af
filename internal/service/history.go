package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parking/internal/domain"
	"parking/internal/repository"
)

// HistoryArchiver writes immutable snapshots of released bookings.
type HistoryArchiver struct {
	store  repository.Store
	clock  Clock
	logger *zap.Logger
}

// NewHistoryArchiver creates a new HistoryArchiver.
func NewHistoryArchiver(store repository.Store, clock Clock, logger *zap.Logger) *HistoryArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryArchiver{
		store:  store,
		clock:  clock,
		logger: logger.Named("history"),
	}
}

// Archive snapshots a completed or cancelled booking.
func (a *HistoryArchiver) Archive(ctx context.Context, booking *domain.Booking, slotNumber string) (*domain.BookingHistory, error) {
	if !booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: archiving booking %s in status %s", ErrInvariantViolation, booking.ID, booking.Status)
	}

	now := a.clock.Now()
	releasedAt := now
	if booking.Status == domain.BookingStatusCompleted && booking.CheckOutTime.Valid {
		releasedAt = booking.CheckOutTime.Time
	}
	if booking.Status == domain.BookingStatusCancelled && booking.CancelledAt.Valid {
		releasedAt = booking.CancelledAt.Time
	}

	// Cancellations happen before the start, so they archive zero hours.
	duration := decimal.Zero
	if releasedAt.After(booking.StartTime) {
		duration = Hours(booking.StartTime, releasedAt).Round(2)
	}

	cost := booking.TotalAmount
	if booking.Status == domain.BookingStatusCancelled {
		cost = booking.AmountPaid
	}

	entry := &domain.BookingHistory{
		ID:               uuid.New().String(),
		UserID:           booking.UserID,
		SlotID:           booking.SlotID,
		SlotNumber:       slotNumber,
		BookingReference: booking.Reference,
		BookedAt:         booking.StartTime,
		ReleasedAt:       releasedAt,
		DurationHours:    duration,
		TotalCost:        cost,
		VehicleNumber:    booking.Vehicle.Number,
		FinalStatus:      booking.Status,
		ArchivedAt:       now,
	}

	if err := a.store.History().Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ArchiveAndReport archives the booking and logs instead of returning a
// failure. The triggering transition has already committed.
func (a *HistoryArchiver) ArchiveAndReport(ctx context.Context, booking *domain.Booking, slotNumber string) *domain.BookingHistory {
	entry, err := a.Archive(ctx, booking, slotNumber)
	if err != nil {
		a.logger.Error("failed to archive booking",
			zap.String("booking_id", booking.ID),
			zap.String("booking_reference", booking.Reference),
			zap.String("status", string(booking.Status)),
			zap.Error(err),
		)
		return nil
	}

	a.logger.Debug("booking archived",
		zap.String("booking_id", booking.ID),
		zap.String("history_id", entry.ID),
		zap.String("duration_hours", entry.DurationHours.String()),
	)
	return entry
}

// ListForUser returns the caller's archived bookings.
func (a *HistoryArchiver) ListForUser(ctx context.Context, identity domain.Identity) ([]*domain.BookingHistory, error) {
	if identity.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return a.store.History().ListByUser(ctx, identity.UserID)
}
