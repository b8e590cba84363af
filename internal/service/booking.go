package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
	"parking/internal/redis"
	"parking/internal/repository"
)

// DefaultSlotLockTTL bounds how long a slot lock survives a crashed request.
const DefaultSlotLockTTL = 10 * time.Second

// BookingService owns the booking lifecycle and keeps slot status in
// lockstep with it.
type BookingService struct {
	store         repository.Store
	slots         *SlotService
	payments      *PaymentService
	pricing       *PricingCalculator
	references    *ReferenceGenerator
	archiver      *HistoryArchiver
	notifications *NotificationService
	locker        redis.SlotLocker
	lockTTL       time.Duration
	clock         Clock
	logger        *zap.Logger
}

// BookingServiceDeps contains the collaborators of BookingService.
// Locker and Notifications may be nil.
type BookingServiceDeps struct {
	Store         repository.Store
	Slots         *SlotService
	Payments      *PaymentService
	Pricing       *PricingCalculator
	References    *ReferenceGenerator
	Archiver      *HistoryArchiver
	Notifications *NotificationService
	Locker        redis.SlotLocker
	LockTTL       time.Duration
	Clock         Clock
	Logger        *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultSlotLockTTL
	}
	return &BookingService{
		store:         deps.Store,
		slots:         deps.Slots,
		payments:      deps.Payments,
		pricing:       deps.Pricing,
		references:    deps.References,
		archiver:      deps.Archiver,
		notifications: deps.Notifications,
		locker:        deps.Locker,
		lockTTL:       deps.LockTTL,
		clock:         deps.Clock,
		logger:        deps.Logger.Named("bookings"),
	}
}

// CreateBookingRequest contains the parameters for reserving a slot.
type CreateBookingRequest struct {
	SlotID              string
	StartTime           *time.Time // nil means now
	ExpectedEndTime     time.Time
	Vehicle             domain.Vehicle
	SpecialRequirements string
}

// CreateBookingResult is a confirmed booking with its payment estimate.
type CreateBookingResult struct {
	Booking  *domain.Booking
	Slot     *domain.ParkingSlot
	Estimate *domain.Payment
}

// Create reserves a slot and confirms the booking in one transaction.
func (s *BookingService) Create(ctx context.Context, identity domain.Identity, req CreateBookingRequest) (*CreateBookingResult, error) {
	if identity.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if req.SlotID == "" {
		return nil, ErrInvalidSlotID
	}

	vehicle, err := normalizeVehicle(req.Vehicle)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	start := now
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if !req.ExpectedEndTime.After(start) {
		return nil, ErrInvalidInterval
	}
	if start.Before(now) {
		return nil, ErrStartInPast
	}

	unlock, err := s.lockSlot(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &CreateBookingResult{}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		slot, err := s.slots.Reserve(ctx, tx, req.SlotID)
		if err != nil {
			return err
		}

		total, err := s.pricing.ComputeAmount(start, req.ExpectedEndTime, slot.BaseRatePerHour, slot.PremiumRatePerHour)
		if err != nil {
			return err
		}

		booking := &domain.Booking{
			ID:                  uuid.New().String(),
			UserID:              identity.UserID,
			SlotID:              slot.ID,
			StartTime:           start,
			ExpectedEndTime:     req.ExpectedEndTime,
			Status:              domain.BookingStatusConfirmed,
			PaymentStatus:       domain.BookingPaymentPending,
			BaseRate:            slot.BaseRatePerHour,
			PremiumRate:         slot.PremiumRatePerHour,
			TotalAmount:         total,
			AmountPaid:          decimal.Zero,
			Vehicle:             vehicle,
			SpecialRequirements: strings.TrimSpace(req.SpecialRequirements),
			CreatedAt:           now,
			UpdatedAt:           now,
		}

		_, err = s.references.Insert(ctx, BookingReferencePrefix, BookingReferenceDigits, func(ref string) error {
			booking.Reference = ref
			return tx.Bookings().Create(ctx, booking)
		})
		if err != nil {
			if errors.Is(err, repository.ErrOpenBookingExists) {
				return ErrSlotUnavailable
			}
			return err
		}

		estimate, err := s.payments.CreateEstimate(ctx, tx, booking)
		if err != nil {
			return err
		}

		result.Booking = booking
		result.Slot = slot
		result.Estimate = estimate
		return nil
	})
	if err != nil {
		return nil, s.fail("create", req.SlotID, translateStoreError(err))
	}

	s.slots.Invalidate(ctx, req.SlotID)
	s.logger.Info("booking confirmed",
		zap.String("booking_id", result.Booking.ID),
		zap.String("reference", result.Booking.Reference),
		zap.String("slot_id", req.SlotID),
		zap.String("total_amount", result.Booking.TotalAmount.StringFixed(2)),
	)
	if s.notifications != nil {
		_ = s.notifications.NotifyBookingConfirmed(ctx, result.Booking)
	}

	return result, nil
}

// CheckIn starts a confirmed booking.
func (s *BookingService) CheckIn(ctx context.Context, identity domain.Identity, bookingID string) (*domain.Booking, error) {
	booking, _, err := s.transition(ctx, identity, bookingID, func(tx repository.Store, b *domain.Booking, now time.Time) error {
		if b.Status != domain.BookingStatusConfirmed {
			return fmt.Errorf("%w: check-in requires a confirmed booking, got %s", ErrInvalidTransition, b.Status)
		}

		b.Status = domain.BookingStatusActive
		b.CheckInTime = null.TimeFrom(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.slots.InvalidateDashboard(ctx)
	if s.notifications != nil {
		_ = s.notifications.NotifyCheckedIn(ctx, booking)
	}
	return booking, nil
}

// CheckOut completes an active booking and frees its slot. The total
// stays at the amount estimated at creation.
func (s *BookingService) CheckOut(ctx context.Context, identity domain.Identity, bookingID string) (*domain.Booking, *domain.BookingHistory, error) {
	booking, slotNumber, err := s.transition(ctx, identity, bookingID, func(tx repository.Store, b *domain.Booking, now time.Time) error {
		if b.Status != domain.BookingStatusActive {
			return fmt.Errorf("%w: check-out requires an active booking, got %s", ErrInvalidTransition, b.Status)
		}

		b.Status = domain.BookingStatusCompleted
		b.ActualEndTime = null.TimeFrom(now)
		b.CheckOutTime = null.TimeFrom(now)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	entry := s.archiver.ArchiveAndReport(ctx, booking, slotNumber)
	if s.notifications != nil {
		_ = s.notifications.NotifyCompleted(ctx, booking)
	}
	return booking, entry, nil
}

// Cancel cancels a booking that has not started yet and frees its slot.
func (s *BookingService) Cancel(ctx context.Context, identity domain.Identity, bookingID, reason string) (*domain.Booking, error) {
	booking, slotNumber, err := s.transition(ctx, identity, bookingID, func(tx repository.Store, b *domain.Booking, now time.Time) error {
		if !b.CanCancel(now) {
			return fmt.Errorf("%w: status %s, starts %s", ErrCannotCancel, b.Status, b.StartTime.Format(timeLayout))
		}

		b.Status = domain.BookingStatusCancelled
		b.CancelledAt = null.TimeFrom(now)
		b.CancellationReason = strings.TrimSpace(reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.archiver.ArchiveAndReport(ctx, booking, slotNumber)
	if s.notifications != nil {
		_ = s.notifications.NotifyCancelled(ctx, booking)
	}
	return booking, nil
}

// transition locks the caller's booking, applies mutate and persists the
// result. Terminal transitions release the slot in the same transaction.
// It returns the slot number of terminal bookings for archival.
func (s *BookingService) transition(
	ctx context.Context,
	identity domain.Identity,
	bookingID string,
	mutate func(tx repository.Store, b *domain.Booking, now time.Time) error,
) (*domain.Booking, string, error) {
	if identity.UserID == "" {
		return nil, "", ErrUnauthenticated
	}
	if bookingID == "" {
		return nil, "", ErrInvalidBookingID
	}

	var (
		booking    *domain.Booking
		slotNumber string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		booking, err = tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return translateBookingError(err)
		}
		if !identity.Owns(booking) {
			return ErrNotOwner
		}

		from := booking.Status
		now := s.clock.Now()
		if err := mutate(tx, booking, now); err != nil {
			return err
		}
		if !from.CanTransitionTo(booking.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvariantViolation, from, booking.Status)
		}

		booking.UpdatedAt = now
		if err := tx.Bookings().Update(ctx, booking); err != nil {
			return translateBookingError(err)
		}

		if !booking.Status.IsTerminal() {
			return nil
		}

		slot, err := tx.Slots().GetByIDForUpdate(ctx, booking.SlotID)
		if err != nil {
			return partialWrite("load booked slot", err)
		}
		slotNumber = slot.SlotNumber
		return s.slots.Release(ctx, tx, booking.SlotID)
	})
	if err != nil {
		return nil, "", s.fail("transition", bookingID, translateStoreError(err))
	}

	if booking.Status.IsTerminal() {
		s.slots.Invalidate(ctx, booking.SlotID)
	}
	s.logger.Info("booking updated",
		zap.String("booking_id", booking.ID),
		zap.String("status", string(booking.Status)),
	)
	return booking, slotNumber, nil
}

// RecordPayment settles the caller's booking. A zero amount pays the
// booking's total.
func (s *BookingService) RecordPayment(ctx context.Context, identity domain.Identity, bookingID string, method domain.PaymentMethod, amount decimal.Decimal) (*domain.Booking, *domain.Payment, error) {
	if identity.UserID == "" {
		return nil, nil, ErrUnauthenticated
	}
	if bookingID == "" {
		return nil, nil, ErrInvalidBookingID
	}
	if method == "" {
		method = domain.PaymentMethodCard
	}
	if !method.Valid() {
		return nil, nil, ErrInvalidPaymentMethod
	}
	if amount.IsNegative() {
		return nil, nil, ErrInvalidAmount
	}

	var (
		booking *domain.Booking
		payment *domain.Payment
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		booking, err = tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return translateBookingError(err)
		}
		if !identity.Owns(booking) {
			return ErrNotOwner
		}
		if booking.IsPaid() {
			return ErrAlreadyPaid
		}

		pay := amount
		if pay.IsZero() {
			pay = booking.TotalAmount
		}

		payment, err = s.payments.Record(ctx, tx, booking, method, pay)
		return err
	})
	if err != nil {
		return nil, nil, s.fail("record payment", bookingID, translateStoreError(err))
	}

	s.logger.Info("payment recorded",
		zap.String("booking_id", booking.ID),
		zap.String("payment_reference", payment.Reference),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	s.slots.InvalidateDashboard(ctx)
	if s.notifications != nil {
		_ = s.notifications.NotifyPaymentRecorded(ctx, booking, payment)
	}
	return booking, payment, nil
}

// Get returns a booking to its owner or to staff.
func (s *BookingService) Get(ctx context.Context, identity domain.Identity, bookingID string) (*domain.Booking, error) {
	if identity.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err)
	}
	if !identity.Owns(booking) && !identity.IsStaff {
		return nil, ErrNotOwner
	}
	return booking, nil
}

// ListUserBookings returns the caller's bookings, newest first. An empty
// statuses slice returns every booking.
func (s *BookingService) ListUserBookings(ctx context.Context, identity domain.Identity, statuses []domain.BookingStatus) ([]*domain.Booking, error) {
	if identity.UserID == "" {
		return nil, ErrUnauthenticated
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
	}
	return s.store.Bookings().ListByUser(ctx, identity.UserID, statuses)
}

// ListActive returns the caller's confirmed and active bookings.
func (s *BookingService) ListActive(ctx context.Context, identity domain.Identity) ([]*domain.Booking, error) {
	return s.ListUserBookings(ctx, identity, []domain.BookingStatus{
		domain.BookingStatusConfirmed,
		domain.BookingStatusActive,
	})
}

// UserStats summarises the caller's bookings.
func (s *BookingService) UserStats(ctx context.Context, identity domain.Identity) (domain.UserStats, error) {
	if identity.UserID == "" {
		return domain.UserStats{}, ErrUnauthenticated
	}
	return s.store.Stats().UserStats(ctx, identity.UserID)
}

// lockSlot takes the distributed slot lock when a locker is configured.
// A lock held by another request is a lost race; a broken locker falls
// back to the row lock taken inside the transaction.
func (s *BookingService) lockSlot(ctx context.Context, slotID string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	token, err := s.locker.AcquireSlotLock(ctx, slotID, s.lockTTL)
	if err != nil {
		s.logger.Warn("slot lock unavailable, relying on row lock", zap.String("slot_id", slotID), zap.Error(err))
		return noop, nil
	}
	if token == "" {
		return nil, ErrSlotUnavailable
	}

	return func() {
		if err := s.locker.ReleaseSlotLock(context.WithoutCancel(ctx), slotID, token); err != nil {
			s.logger.Warn("failed to release slot lock", zap.String("slot_id", slotID), zap.Error(err))
		}
	}, nil
}

// fail logs invariant violations loudly and passes every error through.
func (s *BookingService) fail(op, id string, err error) error {
	if errors.Is(err, ErrInvariantViolation) {
		s.logger.Error("invariant violation",
			zap.String("op", op),
			zap.String("id", id),
			zap.Error(err),
		)
	}
	return err
}

func normalizeVehicle(v domain.Vehicle) (domain.Vehicle, error) {
	v.Number = strings.ToUpper(strings.TrimSpace(v.Number))
	v.Model = strings.TrimSpace(v.Model)
	v.Color = strings.TrimSpace(v.Color)
	if v.Type == "" {
		v.Type = domain.VehicleTypeCar
	}

	switch {
	case v.Number == "" || len(v.Number) > 20:
		return v, fmt.Errorf("%w: vehicle number must be 1-20 characters", ErrInvalidVehicle)
	case !v.Type.Valid():
		return v, fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidVehicle, v.Type)
	case len(v.Model) > 50 || len(v.Color) > 30:
		return v, fmt.Errorf("%w: vehicle model or color too long", ErrInvalidVehicle)
	}
	return v, nil
}
