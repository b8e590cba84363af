package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"parking/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	SlotCacheTTL      = 60 * time.Second // Every slot write invalidates explicitly
	DashboardCacheTTL = 30 * time.Second // Aggregates tolerate short staleness
)

// Key prefixes
const (
	slotCachePrefix = "cache:slot:"
	dashboardKey    = "cache:dashboard"
)

// CachedSlot represents a cached slot entity.
type CachedSlot struct {
	ID                   string              `json:"id"`
	SlotNumber           string              `json:"slot_number"`
	Floor                string              `json:"floor"`
	Zone                 string              `json:"zone"`
	Type                 domain.SlotType     `json:"type"`
	Size                 domain.SlotSize     `json:"size"`
	Status               domain.SlotStatus   `json:"status"`
	BaseRatePerHour      string              `json:"base_rate_per_hour"`
	PremiumRatePerHour   string              `json:"premium_rate_per_hour"`
	IsActive             bool                `json:"is_active"`
	Features             domain.SlotFeatures `json:"features"`
	DistanceFromElevator *int64              `json:"distance_from_elevator,omitempty"`
	DistanceFromExit     *int64              `json:"distance_from_exit,omitempty"`
	LocationNotes        string              `json:"location_notes"`
	Notes                string              `json:"notes"`
	MaintenanceUntil     *time.Time          `json:"maintenance_until,omitempty"`
	CreatedBy            string              `json:"created_by"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// GetSlot retrieves a slot from cache. A miss returns nil, nil.
func (s *CacheStore) GetSlot(ctx context.Context, slotID string) (*domain.ParkingSlot, error) {
	data, err := s.client.Get(ctx, slotCachePrefix+slotID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedSlot
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain()
}

// SetSlot stores a slot in cache.
func (s *CacheStore) SetSlot(ctx context.Context, slot *domain.ParkingSlot) error {
	data, err := json.Marshal(cachedSlotFrom(slot))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, slotCachePrefix+slot.ID, data, SlotCacheTTL).Err()
}

// InvalidateSlot removes a slot from cache together with the dashboard
// aggregates that count it.
func (s *CacheStore) InvalidateSlot(ctx context.Context, slotID string) error {
	return s.client.Del(ctx, slotCachePrefix+slotID, dashboardKey).Err()
}

// InvalidateDashboard removes the cached dashboard aggregates.
func (s *CacheStore) InvalidateDashboard(ctx context.Context) error {
	return s.client.Del(ctx, dashboardKey).Err()
}

// GetDashboard retrieves cached dashboard stats. A miss returns nil, nil.
func (s *CacheStore) GetDashboard(ctx context.Context) (*domain.DashboardStats, error) {
	data, err := s.client.Get(ctx, dashboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var stats domain.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetDashboard stores dashboard stats in cache.
func (s *CacheStore) SetDashboard(ctx context.Context, stats *domain.DashboardStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, dashboardKey, data, DashboardCacheTTL).Err()
}
