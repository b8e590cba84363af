package redis

import (
	"context"
	"time"

	"parking/internal/domain"
)

// SlotLocker defines the interface for per-slot distributed locking.
type SlotLocker interface {
	AcquireSlotLock(ctx context.Context, slotID string, ttl time.Duration) (string, error)
	ReleaseSlotLock(ctx context.Context, slotID, token string) error
}

// SlotCache defines the interface for slot and dashboard caching.
type SlotCache interface {
	GetSlot(ctx context.Context, slotID string) (*domain.ParkingSlot, error)
	SetSlot(ctx context.Context, slot *domain.ParkingSlot) error
	InvalidateSlot(ctx context.Context, slotID string) error
	InvalidateDashboard(ctx context.Context) error
	GetDashboard(ctx context.Context) (*domain.DashboardStats, error)
	SetDashboard(ctx context.Context, stats *domain.DashboardStats) error
}

// Ensure concrete types implement interfaces.
var (
	_ SlotLocker = (*LockStore)(nil)
	_ SlotCache  = (*CacheStore)(nil)
)
