package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
	"parking/internal/repository"
	"parking/internal/repository/memory"
)

// fakeCache is an in-process SlotCache.
type fakeCache struct {
	mu          sync.Mutex
	slots       map[string]domain.ParkingSlot
	dashboard   *domain.DashboardStats
	hits        int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{slots: make(map[string]domain.ParkingSlot)}
}

func (c *fakeCache) GetSlot(ctx context.Context, slotID string) (*domain.ParkingSlot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[slotID]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &slot, nil
}

func (c *fakeCache) SetSlot(ctx context.Context, slot *domain.ParkingSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[slot.ID] = *slot
	return nil
}

func (c *fakeCache) InvalidateSlot(ctx context.Context, slotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, slotID)
	c.dashboard = nil
	c.invalidated = append(c.invalidated, slotID)
	return nil
}

func (c *fakeCache) InvalidateDashboard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dashboard = nil
	return nil
}

func (c *fakeCache) GetDashboard(ctx context.Context) (*domain.DashboardStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dashboard, nil
}

func (c *fakeCache) SetDashboard(ctx context.Context, stats *domain.DashboardStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dashboard = stats
	return nil
}

func TestSlotCreate_Defaults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	slot, err := env.slots.Create(context.Background(), staff, CreateSlotRequest{SlotNumber: "B1-C-001", Floor: "B1"})
	require.NoError(t, err)

	assert.Equal(t, domain.SlotStatusAvailable, slot.Status)
	assert.Equal(t, domain.SlotTypeStandard, slot.Type)
	assert.Equal(t, domain.SlotSizeMedium, slot.Size)
	assert.True(t, slot.BaseRatePerHour.Equal(dec("3.00")))
	assert.True(t, slot.PremiumRatePerHour.IsZero())
	assert.True(t, slot.IsActive)
	assert.Equal(t, staff.UserID, slot.CreatedBy)
}

func TestSlotCreate_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addSlot(t, "G-A-101", "0")

	tests := []struct {
		name    string
		req     CreateSlotRequest
		wantErr error
	}{
		{name: "missing number", req: CreateSlotRequest{Floor: "G"}, wantErr: ErrInvalidSlot},
		{name: "unknown floor", req: CreateSlotRequest{SlotNumber: "X-1", Floor: "7"}, wantErr: ErrInvalidSlot},
		{name: "unknown type", req: CreateSlotRequest{SlotNumber: "X-1", Floor: "G", Type: "rooftop"}, wantErr: ErrInvalidSlot},
		{name: "negative rate", req: CreateSlotRequest{SlotNumber: "X-1", Floor: "G", BaseRatePerHour: decimalPtr("-1")}, wantErr: ErrInvalidRate},
		{name: "duplicate number", req: CreateSlotRequest{SlotNumber: "G-A-101", Floor: "G"}, wantErr: ErrSlotNumberTaken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.slots.Create(context.Background(), staff, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSlotAdmin_RequiresStaff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")

	_, err := env.slots.Create(ctx, alice, CreateSlotRequest{SlotNumber: "G-A-102", Floor: "G"})
	assert.ErrorIs(t, err, ErrStaffOnly)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.slots.Update(ctx, alice, slot.ID, UpdateSlotRequest{})
	assert.ErrorIs(t, err, ErrStaffOnly)

	assert.ErrorIs(t, env.slots.Delete(ctx, alice, slot.ID), ErrStaffOnly)

	_, err = env.slots.SetMaintenance(ctx, alice, slot.ID, 2)
	assert.ErrorIs(t, err, ErrStaffOnly)

	_, err = env.slots.List(ctx, alice, domain.SlotFilter{})
	assert.ErrorIs(t, err, ErrStaffOnly)

	_, err = env.slots.Seed(ctx, domain.Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSlotUpdate_RateChangeKeepsBookingSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")
	b := env.book(t, alice, slot.ID, testNow, testNow.Add(time.Hour))

	updated, err := env.slots.Update(ctx, staff, slot.ID, UpdateSlotRequest{BaseRatePerHour: decimalPtr("9.99")})
	require.NoError(t, err)
	assert.True(t, updated.BaseRatePerHour.Equal(dec("9.99")))
	assert.Equal(t, domain.SlotStatusOccupied, updated.Status)

	stored := env.store.BookingSnapshot(b.ID)
	assert.True(t, stored.BaseRate.Equal(dec("3")))
	assert.True(t, stored.TotalAmount.Equal(dec("3")))
}

func TestSlotUpdate_DeactivateWithOpenBooking_Rejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")
	b := env.book(t, alice, slot.ID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))

	inactive := false
	_, err := env.slots.Update(ctx, staff, slot.ID, UpdateSlotRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrSlotHasActiveBooking)
	assert.True(t, env.store.SlotSnapshot(slot.ID).IsActive)

	// Other fields stay editable while the booking is open.
	notes := "near ramp"
	updated, err := env.slots.Update(ctx, staff, slot.ID, UpdateSlotRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "near ramp", updated.Notes)

	_, err = env.bookings.Cancel(ctx, alice, b.ID, "")
	require.NoError(t, err)

	updated, err = env.slots.Update(ctx, staff, slot.ID, UpdateSlotRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestSlotDelete_WithOpenBooking_Rejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")
	b := env.book(t, alice, slot.ID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))

	err := env.slots.Delete(ctx, staff, slot.ID)
	assert.ErrorIs(t, err, ErrSlotHasActiveBooking)
	assert.True(t, env.store.SlotSnapshot(slot.ID).IsActive)

	_, err = env.bookings.Cancel(ctx, alice, b.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.slots.Delete(ctx, staff, slot.ID))
	deleted := env.store.SlotSnapshot(slot.ID)
	assert.False(t, deleted.IsActive)

	available, err := env.slots.FindAvailable(ctx, domain.SlotFilter{})
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = env.bookings.Create(ctx, bob, CreateBookingRequest{
		SlotID:          slot.ID,
		ExpectedEndTime: testNow.Add(time.Hour),
		Vehicle:         domain.Vehicle{Number: "B0B"},
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestSlotMaintenance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")

	under, err := env.slots.SetMaintenance(ctx, staff, slot.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusMaintenance, under.Status)
	assert.Equal(t, testNow.Add(4*time.Hour), under.MaintenanceUntil.Time)

	_, err = env.bookings.Create(ctx, alice, CreateBookingRequest{
		SlotID:          slot.ID,
		ExpectedEndTime: testNow.Add(time.Hour),
		Vehicle:         domain.Vehicle{Number: "X1"},
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	back, err := env.slots.ClearMaintenance(ctx, staff, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusAvailable, back.Status)
	assert.False(t, back.MaintenanceUntil.Valid)

	env.book(t, alice, slot.ID, testNow, testNow.Add(time.Hour))
	_, err = env.slots.SetMaintenance(ctx, staff, slot.ID, 0)
	assert.ErrorIs(t, err, ErrSlotHasActiveBooking)
}

func TestSlotSetStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")

	got, err := env.slots.SetStatus(ctx, staff, slot.ID, domain.SlotStatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusMaintenance, got.Status)

	got, err = env.slots.SetStatus(ctx, staff, slot.ID, domain.SlotStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusAvailable, got.Status)

	_, err = env.slots.SetStatus(ctx, staff, slot.ID, domain.SlotStatusOccupied)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSlotRelease_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	slot := env.addSlot(t, "G-A-101", "0")

	err := env.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := env.slots.Release(ctx, tx, slot.ID); err != nil {
			return err
		}
		return env.slots.Release(ctx, tx, slot.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusAvailable, env.store.SlotSnapshot(slot.ID).Status)
}

func TestSlotFindAvailable_Filters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	created, err := env.slots.Seed(ctx, staff)
	require.NoError(t, err)
	require.Len(t, created, 4)

	again, err := env.slots.Seed(ctx, staff)
	require.NoError(t, err)
	assert.Empty(t, again, "seeding twice creates nothing")

	ev, err := env.slots.FindAvailable(ctx, domain.SlotFilter{EVCharging: true})
	require.NoError(t, err)
	require.Len(t, ev, 1)
	assert.Equal(t, "1-B-202", ev[0].SlotNumber)

	floorOne, err := env.slots.FindAvailable(ctx, domain.SlotFilter{Floor: "1"})
	require.NoError(t, err)
	assert.Len(t, floorOne, 2)

	premium, err := env.slots.FindAvailable(ctx, domain.SlotFilter{Type: domain.SlotTypePremium})
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.True(t, premium[0].HourlyRate().Equal(dec("5")))
}

func TestSlotGet_ReadsThroughCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	cache := newFakeCache()
	clock := &fakeClock{now: testNow}
	slots := NewSlotService(store, cache, clock, nil)

	slot, err := slots.Create(ctx, staff, CreateSlotRequest{SlotNumber: "G-A-101", Floor: "G"})
	require.NoError(t, err)

	_, err = slots.Get(ctx, slot.ID)
	require.NoError(t, err)
	_, err = slots.Get(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = slots.SetMaintenance(ctx, staff, slot.ID, 0)
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, slot.ID)

	got, err := slots.Get(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusMaintenance, got.Status)

	_, err = slots.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotParkingInfo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.slots.Seed(ctx, staff)
	require.NoError(t, err)

	available, err := env.slots.FindAvailable(ctx, domain.SlotFilter{Floor: "G"})
	require.NoError(t, err)
	env.book(t, alice, available[0].ID, testNow, testNow.Add(time.Hour))

	info, err := env.slots.ParkingInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, info.TotalSlots)
	assert.Equal(t, 3, info.AvailableSlots)
	assert.Equal(t, 1, info.AvailableByFloor["G"])
	assert.Equal(t, 2, info.AvailableByFloor["1"])
	assert.True(t, info.MinHourlyRate.Equal(dec("3")))
	assert.True(t, info.MaxHourlyRate.Equal(dec("5")))
}
