package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"parking/internal/domain"
	"parking/internal/events"
	"parking/internal/redis"
	"parking/internal/repository/memory"
)

var (
	testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	staff   = domain.Identity{UserID: "staff-1", IsStaff: true}
	alice   = domain.Identity{UserID: "user-alice"}
	bob     = domain.Identity{UserID: "user-bob"}
)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeLocker is an in-process SlotLocker.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	acquired int
	released int
	err      error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (l *fakeLocker) AcquireSlotLock(ctx context.Context, slotID string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	if _, ok := l.held[slotID]; ok {
		return "", nil
	}
	token := "token-" + slotID
	l.held[slotID] = token
	l.acquired++
	return token, nil
}

func (l *fakeLocker) ReleaseSlotLock(ctx context.Context, slotID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[slotID] == token {
		delete(l.held, slotID)
		l.released++
	}
	return nil
}

// testEnv wires the services over an in-memory store.
type testEnv struct {
	store     *memory.Store
	clock     *fakeClock
	publisher *recordingPublisher
	locker    *fakeLocker
	refs      *ReferenceGenerator
	slots     *SlotService
	payments  *PaymentService
	history   *HistoryArchiver
	bookings  *BookingService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

// newTestEnvWithCache is newTestEnv with cache shared by every service.
func newTestEnvWithCache(t *testing.T, cache redis.SlotCache) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memory.NewStore(),
		clock:     &fakeClock{now: testNow},
		publisher: &recordingPublisher{},
		locker:    newFakeLocker(),
		refs:      NewReferenceGenerator(DefaultReferenceAttempts),
	}

	pricing := NewPricingCalculator()
	env.slots = NewSlotService(env.store, cache, env.clock, nil)
	env.payments = NewPaymentService(env.store, cache, pricing, env.refs, env.clock, nil)
	env.history = NewHistoryArchiver(env.store, env.clock, nil)
	env.dashboard = NewDashboardService(env.store, cache, env.clock, nil)
	env.bookings = NewBookingService(BookingServiceDeps{
		Store:         env.store,
		Slots:         env.slots,
		Payments:      env.payments,
		Pricing:       pricing,
		References:    env.refs,
		Archiver:      env.history,
		Notifications: NewNotificationService(env.publisher, env.clock, nil),
		Locker:        env.locker,
		Clock:         env.clock,
	})
	return env
}

// addSlot creates an available slot at 3.00/h base and the given premium.
func (e *testEnv) addSlot(t *testing.T, number, premium string) *domain.ParkingSlot {
	t.Helper()

	slot, err := e.slots.Create(context.Background(), staff, CreateSlotRequest{
		SlotNumber:         number,
		Floor:              "G",
		Zone:               "A",
		BaseRatePerHour:    decimalPtr("3.00"),
		PremiumRatePerHour: decimalPtr(premium),
	})
	require.NoError(t, err)
	return slot
}

// book reserves slot for identity from start to end.
func (e *testEnv) book(t *testing.T, identity domain.Identity, slotID string, start, end time.Time) *domain.Booking {
	t.Helper()

	result, err := e.bookings.Create(context.Background(), identity, CreateBookingRequest{
		SlotID:          slotID,
		StartTime:       &start,
		ExpectedEndTime: end,
		Vehicle:         domain.Vehicle{Number: "abc-123"},
	})
	require.NoError(t, err)
	return result.Booking
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
