package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parking/internal/handler"
	"parking/internal/middleware"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Slots     *handler.SlotHandler
	Bookings  *handler.BookingHandler
	Payments  *handler.PaymentHandler
	Users     *handler.UserHandler
	Dashboard *handler.DashboardHandler
}

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	Handlers      Handlers
	Authenticator *middleware.Authenticator
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
	Logger        *zap.Logger
	CORSOrigin    string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.CORSOrigin))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := deps.Handlers
	v1 := router.Group("/v1")

	// Public routes.
	v1.GET("/parking-info", h.Slots.ParkingInfo)
	v1.GET("/slots", h.Slots.ListAvailable)
	v1.GET("/slots/:id", h.Slots.GetSlot)

	authed := v1.Group("")
	authed.Use(deps.Authenticator.Authenticate())
	authed.Use(middleware.IdempotencyMiddleware(middleware.NewRedisResponseStore(deps.RedisClient), deps.Logger))
	{
		bookings := authed.Group("/bookings")
		{
			bookings.POST("", h.Bookings.CreateBooking)
			bookings.GET("", h.Bookings.ListBookings)
			bookings.GET("/active", h.Bookings.ListActive)
			bookings.GET("/history", h.Bookings.ListHistory)
			bookings.GET("/:id", h.Bookings.GetBooking)
			bookings.POST("/:id/check-in", h.Bookings.CheckIn)
			bookings.POST("/:id/check-out", h.Bookings.CheckOut)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
			bookings.POST("/:id/payments", h.Bookings.RecordPayment)
			bookings.GET("/:id/payments", h.Payments.ListPayments)
		}

		authed.POST("/payments/:id/complete", h.Payments.CompletePayment)
		authed.GET("/me/stats", h.Users.Stats)

		admin := authed.Group("/admin")
		admin.Use(middleware.RequireStaff())
		{
			admin.GET("/slots", h.Slots.ListAll)
			admin.POST("/slots", h.Slots.CreateSlot)
			admin.PATCH("/slots/:id", h.Slots.UpdateSlot)
			admin.DELETE("/slots/:id", h.Slots.DeleteSlot)
			admin.POST("/slots/:id/status", h.Slots.SetStatus)
			admin.POST("/slots/:id/maintenance", h.Slots.StartMaintenance)
			admin.DELETE("/slots/:id/maintenance", h.Slots.EndMaintenance)
			admin.GET("/dashboard", h.Dashboard.GetDashboard)
			admin.POST("/seed", h.Slots.Seed)
		}
	}

	return router
}
