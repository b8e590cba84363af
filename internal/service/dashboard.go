package service

import (
	"context"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parking/internal/domain"
	"parking/internal/redis"
	"parking/internal/repository"
)

const (
	dashboardRecentBookings = 10
	dashboardPopularSlots   = 5
)

var hundred = decimal.NewFromInt(100)

// DashboardService builds the staff overview of the facility.
type DashboardService struct {
	store  repository.Store
	cache  redis.SlotCache
	clock  Clock
	logger *zap.Logger
}

// NewDashboardService creates a new DashboardService. cache may be nil.
func NewDashboardService(store repository.Store, cache redis.SlotCache, clock Clock, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		store:  store,
		cache:  cache,
		clock:  clock,
		logger: logger.Named("dashboard"),
	}
}

// Get returns the dashboard, serving a cached copy when one is fresh.
// Slot, booking and payment writes drop the cached copy; otherwise it
// expires with the cache TTL.
func (s *DashboardService) Get(ctx context.Context, identity domain.Identity) (*domain.DashboardStats, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetDashboard(ctx)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDashboard(ctx, stats); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *DashboardService) build(ctx context.Context) (*domain.DashboardStats, error) {
	repo := s.store.Stats()

	slots, err := repo.SlotStats(ctx)
	if err != nil {
		return nil, err
	}
	slots.UtilizationRate = percent(slots.Occupied, slots.Total)

	bookings, err := repo.BookingStats(ctx)
	if err != nil {
		return nil, err
	}
	bookings.CompletionRate = percent(bookings.ByStatus[domain.BookingStatusCompleted], bookings.Total)

	revenue, err := repo.Revenue(ctx, DayStart(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	revenue.AverageBookingValue = decimal.Zero
	if revenue.PaidBookings > 0 {
		revenue.AverageBookingValue = revenue.Total.Div(decimal.NewFromInt(int64(revenue.PaidBookings))).Round(2)
	}

	recent, err := repo.RecentBookings(ctx, dashboardRecentBookings)
	if err != nil {
		return nil, err
	}

	popular, err := repo.PopularSlots(ctx, dashboardPopularSlots)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardStats{
		Slots:          slots,
		Bookings:       bookings,
		Revenue:        revenue,
		RecentBookings: recent,
		PopularSlots:   popular,
	}, nil
}

// DayStart returns midnight of t's day in t's location.
func DayStart(t time.Time) time.Time {
	return now.With(t).BeginningOfDay()
}

// percent returns part/total as a percentage rounded to 2 places.
func percent(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}
