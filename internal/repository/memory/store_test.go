package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
	"parking/internal/repository"
)

func newSlot(id, number string) *domain.ParkingSlot {
	return &domain.ParkingSlot{
		ID:              id,
		SlotNumber:      number,
		Floor:           "G",
		Status:          domain.SlotStatusAvailable,
		BaseRatePerHour: decimal.NewFromInt(3),
		IsActive:        true,
	}
}

func newBooking(id, ref, slotID string, status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:        id,
		Reference: ref,
		UserID:    "u1",
		SlotID:    slotID,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Slots().Create(ctx, newSlot("s1", "A-1")))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Slots().UpdateStatus(ctx, "s1", domain.SlotStatusOccupied); err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, newBooking("b1", "BK1", "s1", domain.BookingStatusConfirmed)); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.SlotStatusAvailable, s.SlotSnapshot("s1").Status)
	assert.Equal(t, 0, s.CountBookings())
	assert.Equal(t, int32(1), s.TxCount)
}

func TestStore_WithinTx_CommitsAndIsolates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Slots().Create(ctx, newSlot("s1", "A-1")))

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Slots().UpdateStatus(ctx, "s1", domain.SlotStatusOccupied); err != nil {
			return err
		}
		// Uncommitted writes are invisible outside the transaction.
		assert.Equal(t, domain.SlotStatusAvailable, s.SlotSnapshot("s1").Status)

		// Nested calls join the running transaction.
		return tx.WithinTx(ctx, func(inner repository.Store) error {
			slot, err := inner.Slots().GetByID(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, domain.SlotStatusOccupied, slot.Status)
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusOccupied, s.SlotSnapshot("s1").Status)
}

func TestStore_Bookings_Constraints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	repo := s.Bookings()

	require.NoError(t, repo.Create(ctx, newBooking("b1", "BK1", "s1", domain.BookingStatusConfirmed)))

	err := repo.Create(ctx, newBooking("b2", "BK1", "s2", domain.BookingStatusConfirmed))
	assert.ErrorIs(t, err, repository.ErrDuplicateReference)

	err = repo.Create(ctx, newBooking("b3", "BK3", "s1", domain.BookingStatusActive))
	assert.ErrorIs(t, err, repository.ErrOpenBookingExists)

	// Terminal bookings do not hold the slot.
	require.NoError(t, repo.Create(ctx, newBooking("b4", "BK4", "s1", domain.BookingStatusCancelled)))

	open, err := repo.CountOpenBySlot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, open)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_Slots_DuplicateNumber(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Slots().Create(ctx, newSlot("s1", "A-1")))

	err := s.Slots().Create(ctx, newSlot("s2", "A-1"))
	assert.ErrorIs(t, err, repository.ErrDuplicateSlotNumber)

	require.NoError(t, s.Slots().Create(ctx, newSlot("s2", "A-2")))
	renamed := newSlot("s2", "A-1")
	assert.ErrorIs(t, s.Slots().Update(ctx, renamed), repository.ErrDuplicateSlotNumber)
}

func TestStore_FailOn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	injected := errors.New("injected")

	s.FailOn(OpSlotCreate, injected)
	assert.ErrorIs(t, s.Slots().Create(ctx, newSlot("s1", "A-1")), injected)

	s.FailOn(OpSlotCreate, nil)
	assert.NoError(t, s.Slots().Create(ctx, newSlot("s1", "A-1")))
}
