package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
	"parking/internal/redis"
	"parking/internal/repository"
)

// EstimatePaymentMethod is the placeholder method on estimate payments.
const EstimatePaymentMethod = domain.PaymentMethodCard

// PaymentService is the payment ledger. It is the only writer of a
// booking's payment status and amount paid.
type PaymentService struct {
	store      repository.Store
	cache      redis.SlotCache
	pricing    *PricingCalculator
	references *ReferenceGenerator
	clock      Clock
	logger     *zap.Logger
}

// NewPaymentService creates a new PaymentService. cache may be nil.
func NewPaymentService(
	store repository.Store,
	cache redis.SlotCache,
	pricing *PricingCalculator,
	references *ReferenceGenerator,
	clock Clock,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		store:      store,
		cache:      cache,
		pricing:    pricing,
		references: references,
		clock:      clock,
		logger:     logger.Named("payments"),
	}
}

// CreateEstimate records a pending payment for the booking's planned
// interval, charging at least one hour. It runs inside the booking's tx.
func (s *PaymentService) CreateEstimate(ctx context.Context, tx repository.Store, booking *domain.Booking) (*domain.Payment, error) {
	amount, err := s.pricing.EstimateAmount(booking.StartTime, booking.ExpectedEndTime, booking.BaseRate, booking.PremiumRate)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:          uuid.New().String(),
		BookingID:   booking.ID,
		Amount:      amount,
		Method:      EstimatePaymentMethod,
		Status:      domain.PaymentStatusPending,
		InitiatedAt: s.clock.Now(),
		Notes:       "estimate",
	}

	if err := s.insert(ctx, tx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// Record creates a completed payment and settles the booking. It runs
// inside the caller's tx with the booking row locked.
func (s *PaymentService) Record(ctx context.Context, tx repository.Store, booking *domain.Booking, method domain.PaymentMethod, amount decimal.Decimal) (*domain.Payment, error) {
	if booking.IsPaid() {
		return nil, ErrAlreadyPaid
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := s.clock.Now()
	payment := &domain.Payment{
		ID:          uuid.New().String(),
		BookingID:   booking.ID,
		Amount:      amount,
		Method:      method,
		Status:      domain.PaymentStatusCompleted,
		InitiatedAt: now,
		CompletedAt: null.TimeFrom(now),
	}

	if err := s.insert(ctx, tx, payment); err != nil {
		return nil, err
	}

	if err := s.settle(ctx, tx, booking, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// Complete marks a pending payment completed and settles its booking.
func (s *PaymentService) Complete(ctx context.Context, identity domain.Identity, paymentID string, method domain.PaymentMethod, amount decimal.Decimal) (*domain.Payment, *domain.Booking, error) {
	if identity.UserID == "" {
		return nil, nil, ErrUnauthenticated
	}
	if paymentID == "" {
		return nil, nil, ErrInvalidPaymentID
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if !method.Valid() {
		return nil, nil, ErrInvalidPaymentMethod
	}

	var (
		payment *domain.Payment
		booking *domain.Booking
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		payment, err = tx.Payments().GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return translatePaymentError(err)
		}

		booking, err = tx.Bookings().GetByIDForUpdate(ctx, payment.BookingID)
		if err != nil {
			return partialWrite("load payment booking", err)
		}
		if !identity.Owns(booking) && !identity.IsStaff {
			return ErrNotOwner
		}

		if payment.Status == domain.PaymentStatusCompleted {
			return ErrPaymentAlreadyCompleted
		}
		if booking.IsPaid() {
			return ErrAlreadyPaid
		}

		payment.Amount = amount
		payment.Method = method
		payment.Status = domain.PaymentStatusCompleted
		payment.CompletedAt = null.TimeFrom(s.clock.Now())
		if err := tx.Payments().Update(ctx, payment); err != nil {
			return partialWrite("complete payment", err)
		}

		return s.settle(ctx, tx, booking, payment)
	})
	if err != nil {
		return nil, nil, translateStoreError(err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateDashboard(ctx); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("payment completed",
		zap.String("payment_id", payment.ID),
		zap.String("booking_id", booking.ID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return payment, booking, nil
}

// ListForBooking returns the booking's payments to its owner or to staff.
func (s *PaymentService) ListForBooking(ctx context.Context, identity domain.Identity, bookingID string) ([]*domain.Payment, error) {
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

	return s.store.Payments().ListByBooking(ctx, bookingID)
}

// settle propagates a completed payment to its booking.
func (s *PaymentService) settle(ctx context.Context, tx repository.Store, booking *domain.Booking, payment *domain.Payment) error {
	if payment.Status != domain.PaymentStatusCompleted {
		return fmt.Errorf("%w: settling payment %s in status %s", ErrInvariantViolation, payment.ID, payment.Status)
	}

	booking.PaymentStatus = domain.BookingPaymentPaid
	booking.AmountPaid = payment.Amount
	booking.UpdatedAt = s.clock.Now()
	if err := tx.Bookings().Update(ctx, booking); err != nil {
		return partialWrite("settle booking", err)
	}

	return nil
}

func (s *PaymentService) insert(ctx context.Context, tx repository.Store, payment *domain.Payment) error {
	ref, err := s.references.Insert(ctx, PaymentReferencePrefix, PaymentReferenceDigits, func(ref string) error {
		payment.Reference = ref
		return tx.Payments().Create(ctx, payment)
	})
	if err != nil {
		return err
	}
	payment.Reference = ref
	return nil
}
