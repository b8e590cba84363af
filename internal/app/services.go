package app

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parking/internal/config"
	"parking/internal/handler"
	internalRedis "parking/internal/redis"
	"parking/internal/repository"
	"parking/internal/service"
)

// Services holds the wired domain services.
type Services struct {
	Slots         *service.SlotService
	Bookings      *service.BookingService
	Payments      *service.PaymentService
	History       *service.HistoryArchiver
	Dashboard     *service.DashboardService
	Notifications *service.NotificationService
}

// NewServices wires the services over store. redisClient and publisher
// may be nil, which disables slot locks, caching and event publishing.
func NewServices(
	store repository.Store,
	redisClient *redis.Client,
	publisher service.EventPublisher,
	cfg config.BookingConfig,
	clock service.Clock,
	logger *zap.Logger,
) *Services {
	var (
		cache  internalRedis.SlotCache
		locker internalRedis.SlotLocker
	)
	if redisClient != nil {
		cache = internalRedis.NewCacheStore(redisClient)
		locker = internalRedis.NewLockStore(redisClient)
	}

	pricing := service.NewPricingCalculator()
	references := service.NewReferenceGenerator(cfg.ReferenceAttempts)

	slots := service.NewSlotService(store, cache, clock, logger)
	payments := service.NewPaymentService(store, cache, pricing, references, clock, logger)
	history := service.NewHistoryArchiver(store, clock, logger)
	notifications := service.NewNotificationService(publisher, clock, logger)

	bookings := service.NewBookingService(service.BookingServiceDeps{
		Store:         store,
		Slots:         slots,
		Payments:      payments,
		Pricing:       pricing,
		References:    references,
		Archiver:      history,
		Notifications: notifications,
		Locker:        locker,
		LockTTL:       cfg.SlotLockTTL,
		Clock:         clock,
		Logger:        logger,
	})

	return &Services{
		Slots:         slots,
		Bookings:      bookings,
		Payments:      payments,
		History:       history,
		Dashboard:     service.NewDashboardService(store, cache, clock, logger),
		Notifications: notifications,
	}
}

// Handlers builds the HTTP handlers for the services.
func (s *Services) Handlers(logger *zap.Logger) Handlers {
	return Handlers{
		Slots:     handler.NewSlotHandler(s.Slots, logger),
		Bookings:  handler.NewBookingHandler(s.Bookings, s.History, logger),
		Payments:  handler.NewPaymentHandler(s.Payments, logger),
		Users:     handler.NewUserHandler(s.Bookings, logger),
		Dashboard: handler.NewDashboardHandler(s.Dashboard, logger),
	}
}
