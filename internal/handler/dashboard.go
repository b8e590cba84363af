package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking/internal/domain"
	"parking/internal/middleware"
	"parking/internal/service"
)

// DashboardHandler serves the staff dashboard.
type DashboardHandler struct {
	errorResponder
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		errorResponder:   newErrorResponder(logger),
		dashboardService: dashboardService,
	}
}

// DashboardResponse is the HTTP representation of the dashboard.
type DashboardResponse struct {
	Slots struct {
		Total           int    `json:"total"`
		Available       int    `json:"available"`
		Occupied        int    `json:"occupied"`
		Maintenance     int    `json:"maintenance"`
		Inactive        int    `json:"inactive"`
		UtilizationRate string `json:"utilization_rate"`
	} `json:"slots"`
	Bookings struct {
		Total          int                          `json:"total"`
		ByStatus       map[domain.BookingStatus]int `json:"by_status"`
		CompletionRate string                       `json:"completion_rate"`
	} `json:"bookings"`
	Revenue struct {
		Total               string `json:"total"`
		Today               string `json:"today"`
		AverageBookingValue string `json:"average_booking_value"`
		PaidBookings        int    `json:"paid_bookings"`
	} `json:"revenue"`
	RecentBookings []BookingResponse    `json:"recent_bookings"`
	PopularSlots   []domain.PopularSlot `json:"popular_slots"`
}

// GetDashboard handles GET /v1/admin/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	stats, err := h.dashboardService.Get(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var response DashboardResponse
	response.Slots.Total = stats.Slots.Total
	response.Slots.Available = stats.Slots.Available
	response.Slots.Occupied = stats.Slots.Occupied
	response.Slots.Maintenance = stats.Slots.Maintenance
	response.Slots.Inactive = stats.Slots.Inactive
	response.Slots.UtilizationRate = stats.Slots.UtilizationRate.StringFixed(2)

	response.Bookings.Total = stats.Bookings.Total
	response.Bookings.ByStatus = stats.Bookings.ByStatus
	response.Bookings.CompletionRate = stats.Bookings.CompletionRate.StringFixed(2)

	response.Revenue.Total = money(stats.Revenue.Total)
	response.Revenue.Today = money(stats.Revenue.Today)
	response.Revenue.AverageBookingValue = money(stats.Revenue.AverageBookingValue)
	response.Revenue.PaidBookings = stats.Revenue.PaidBookings

	response.RecentBookings = toBookingResponses(stats.RecentBookings)
	response.PopularSlots = stats.PopularSlots
	if response.PopularSlots == nil {
		response.PopularSlots = []domain.PopularSlot{}
	}

	respondJSON(c, http.StatusOK, response)
}
