package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parking/internal/domain"
	"parking/internal/events"
)

// EventPublisher delivers booking events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// NotificationService fans booking lifecycle changes out to the user log
// and, when configured, to an event publisher.
type NotificationService struct {
	publisher EventPublisher
	clock     Clock
	logger    *zap.Logger
}

// NewNotificationService creates a new NotificationService. publisher may be nil.
func NewNotificationService(publisher EventPublisher, clock Clock, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		publisher: publisher,
		clock:     clock,
		logger:    logger.Named("notification"),
	}
}

// NotifyBookingConfirmed notifies the user that the reservation is confirmed.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return s.send(ctx, events.BookingConfirmed, booking,
		fmt.Sprintf("Booking %s confirmed. Total: %s", booking.Reference, booking.TotalAmount.StringFixed(2)),
		map[string]string{
			"start_time":        booking.StartTime.Format(timeLayout),
			"expected_end_time": booking.ExpectedEndTime.Format(timeLayout),
			"total_amount":      booking.TotalAmount.StringFixed(2),
		})
}

// NotifyCheckedIn notifies the user that the booking is active.
func (s *NotificationService) NotifyCheckedIn(ctx context.Context, booking *domain.Booking) error {
	return s.send(ctx, events.BookingCheckedIn, booking,
		fmt.Sprintf("Checked in for booking %s", booking.Reference),
		map[string]string{"check_in_time": booking.CheckInTime.Time.Format(timeLayout)})
}

// NotifyCompleted notifies the user that the booking is completed.
func (s *NotificationService) NotifyCompleted(ctx context.Context, booking *domain.Booking) error {
	return s.send(ctx, events.BookingCompleted, booking,
		fmt.Sprintf("Booking %s completed. Thank you for parking with us", booking.Reference),
		map[string]string{"check_out_time": booking.CheckOutTime.Time.Format(timeLayout)})
}

// NotifyCancelled notifies the user that the booking was cancelled.
func (s *NotificationService) NotifyCancelled(ctx context.Context, booking *domain.Booking) error {
	return s.send(ctx, events.BookingCancelled, booking,
		fmt.Sprintf("Booking %s cancelled", booking.Reference),
		map[string]string{"reason": booking.CancellationReason})
}

// NotifyPaymentRecorded notifies the user that a payment was recorded.
func (s *NotificationService) NotifyPaymentRecorded(ctx context.Context, booking *domain.Booking, payment *domain.Payment) error {
	return s.send(ctx, events.PaymentRecorded, booking,
		fmt.Sprintf("Payment %s of %s received for booking %s", payment.Reference, payment.Amount.StringFixed(2), booking.Reference),
		map[string]string{
			"payment_reference": payment.Reference,
			"amount":            payment.Amount.StringFixed(2),
			"method":            string(payment.Method),
		})
}

func (s *NotificationService) send(ctx context.Context, eventType events.Type, booking *domain.Booking, message string, attrs map[string]string) error {
	s.logger.Info(message,
		zap.String("type", string(eventType)),
		zap.String("user_id", booking.UserID),
		zap.String("booking_id", booking.ID),
	)

	if s.publisher == nil {
		return nil
	}

	event := events.Event{
		ID:               uuid.NewString(),
		Type:             eventType,
		UserID:           booking.UserID,
		BookingID:        booking.ID,
		BookingReference: booking.Reference,
		SlotID:           booking.SlotID,
		Attributes:       attrs,
		OccurredAt:       s.clock.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", string(eventType)),
			zap.String("booking_id", booking.ID),
			zap.Error(err),
		)
		return err
	}

	return nil
}
