package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking/internal/middleware"
	"parking/internal/service"
)

// UserHandler handles HTTP requests about the calling user.
type UserHandler struct {
	errorResponder
	bookingService *service.BookingService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(bookingService *service.BookingService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		errorResponder: newErrorResponder(logger),
		bookingService: bookingService,
	}
}

// UserStatsResponse summarises the caller's bookings.
type UserStatsResponse struct {
	UserID            string `json:"user_id"`
	TotalBookings     int    `json:"total_bookings"`
	ActiveBookings    int    `json:"active_bookings"`
	CompletedBookings int    `json:"completed_bookings"`
	CancelledBookings int    `json:"cancelled_bookings"`
	TotalSpent        string `json:"total_spent"`
}

// Stats handles GET /v1/me/stats
func (h *UserHandler) Stats(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	stats, err := h.bookingService.UserStats(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, UserStatsResponse{
		UserID:            identity.UserID,
		TotalBookings:     stats.TotalBookings,
		ActiveBookings:    stats.ActiveBookings,
		CompletedBookings: stats.CompletedBookings,
		CancelledBookings: stats.CancelledBookings,
		TotalSpent:        money(stats.TotalSpent),
	})
}
