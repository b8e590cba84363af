package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
	"parking/internal/middleware"
	"parking/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	errorResponder
	bookingService *service.BookingService
	historyService *service.HistoryArchiver
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, historyService *service.HistoryArchiver, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		errorResponder: newErrorResponder(logger),
		bookingService: bookingService,
		historyService: historyService,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	SlotID              string     `json:"slot_id" binding:"required"`
	StartTime           *time.Time `json:"start_time"`
	ExpectedEndTime     time.Time  `json:"expected_end_time" binding:"required"`
	VehicleNumber       string     `json:"vehicle_number" binding:"required"`
	VehicleType         string     `json:"vehicle_type"`
	VehicleModel        string     `json:"vehicle_model"`
	VehicleColor        string     `json:"vehicle_color"`
	SpecialRequirements string     `json:"special_requirements"`
}

// CancelBookingRequest is the optional body of a cancellation.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// VehicleResponse describes the booked vehicle.
type VehicleResponse struct {
	Number string `json:"number"`
	Type   string `json:"type"`
	Model  string `json:"model,omitempty"`
	Color  string `json:"color,omitempty"`
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	ID                  string           `json:"id"`
	Reference           string           `json:"booking_reference"`
	UserID              string           `json:"user_id"`
	SlotID              string           `json:"slot_id"`
	StartTime           string           `json:"start_time"`
	ExpectedEndTime     string           `json:"expected_end_time"`
	ActualEndTime       string           `json:"actual_end_time,omitempty"`
	CheckInTime         string           `json:"check_in_time,omitempty"`
	CheckOutTime        string           `json:"check_out_time,omitempty"`
	Status              string           `json:"status"`
	PaymentStatus       string           `json:"payment_status"`
	BaseRate            string           `json:"base_rate"`
	PremiumRate         string           `json:"premium_rate"`
	TotalAmount         string           `json:"total_amount"`
	AmountPaid          string           `json:"amount_paid"`
	Vehicle             VehicleResponse  `json:"vehicle"`
	SpecialRequirements string           `json:"special_requirements,omitempty"`
	CancelledAt         string           `json:"cancelled_at,omitempty"`
	CancellationReason  string           `json:"cancellation_reason,omitempty"`
	CreatedAt           string           `json:"created_at"`
	Slot                *SlotResponse    `json:"slot,omitempty"`
	Payment             *PaymentResponse `json:"payment,omitempty"`
	History             *HistoryResponse `json:"history,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		Reference:       b.Reference,
		UserID:          b.UserID,
		SlotID:          b.SlotID,
		StartTime:       formatTime(b.StartTime),
		ExpectedEndTime: formatTime(b.ExpectedEndTime),
		ActualEndTime:   formatNullTime(b.ActualEndTime),
		CheckInTime:     formatNullTime(b.CheckInTime),
		CheckOutTime:    formatNullTime(b.CheckOutTime),
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		BaseRate:        money(b.BaseRate),
		PremiumRate:     money(b.PremiumRate),
		TotalAmount:     money(b.TotalAmount),
		AmountPaid:      money(b.AmountPaid),
		Vehicle: VehicleResponse{
			Number: b.Vehicle.Number,
			Type:   string(b.Vehicle.Type),
			Model:  b.Vehicle.Model,
			Color:  b.Vehicle.Color,
		},
		SpecialRequirements: b.SpecialRequirements,
		CancelledAt:         formatNullTime(b.CancelledAt),
		CancellationReason:  b.CancellationReason,
		CreatedAt:           formatTime(b.CreatedAt),
	}
}

func toBookingResponses(bookings []*domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

// HistoryResponse is an archived booking.
type HistoryResponse struct {
	ID               string `json:"id"`
	SlotID           string `json:"slot_id"`
	SlotNumber       string `json:"slot_number"`
	BookingReference string `json:"booking_reference"`
	BookedAt         string `json:"booked_at"`
	ReleasedAt       string `json:"released_at"`
	DurationHours    string `json:"duration_hours"`
	TotalCost        string `json:"total_cost"`
	VehicleNumber    string `json:"vehicle_number"`
	FinalStatus      string `json:"final_status"`
}

func toHistoryResponse(h *domain.BookingHistory) HistoryResponse {
	return HistoryResponse{
		ID:               h.ID,
		SlotID:           h.SlotID,
		SlotNumber:       h.SlotNumber,
		BookingReference: h.BookingReference,
		BookedAt:         formatTime(h.BookedAt),
		ReleasedAt:       formatTime(h.ReleasedAt),
		DurationHours:    h.DurationHours.StringFixed(2),
		TotalCost:        money(h.TotalCost),
		VehicleNumber:    h.VehicleNumber,
		FinalStatus:      string(h.FinalStatus),
	}
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.bookingService.Create(c.Request.Context(), middleware.IdentityFrom(c), service.CreateBookingRequest{
		SlotID:          req.SlotID,
		StartTime:       req.StartTime,
		ExpectedEndTime: req.ExpectedEndTime,
		Vehicle: domain.Vehicle{
			Number: req.VehicleNumber,
			Type:   domain.VehicleType(strings.ToLower(req.VehicleType)),
			Model:  req.VehicleModel,
			Color:  req.VehicleColor,
		},
		SpecialRequirements: req.SpecialRequirements,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := toBookingResponse(result.Booking)
	slot := toSlotResponse(result.Slot)
	response.Slot = &slot
	if result.Estimate != nil {
		payment := toPaymentResponse(result.Estimate)
		response.Payment = &payment
	}

	respondJSON(c, http.StatusCreated, response)
}

// ListBookings handles GET /v1/bookings?status=confirmed,active
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var statuses []domain.BookingStatus
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, domain.BookingStatus(s))
			}
		}
	}

	bookings, err := h.bookingService.ListUserBookings(c.Request.Context(), middleware.IdentityFrom(c), statuses)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"bookings": toBookingResponses(bookings),
		"count":    len(bookings),
	})
}

// ListActive handles GET /v1/bookings/active
func (h *BookingHandler) ListActive(c *gin.Context) {
	bookings, err := h.bookingService.ListActive(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"bookings": toBookingResponses(bookings),
		"count":    len(bookings),
	})
}

// ListHistory handles GET /v1/bookings/history
func (h *BookingHandler) ListHistory(c *gin.Context) {
	entries, err := h.historyService.ListForUser(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, toHistoryResponse(e))
	}

	respondJSON(c, http.StatusOK, gin.H{
		"history": response,
		"count":   len(response),
	})
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.Get(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CheckIn handles POST /v1/bookings/:id/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	booking, err := h.bookingService.CheckIn(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CheckOut handles POST /v1/bookings/:id/check-out
func (h *BookingHandler) CheckOut(c *gin.Context) {
	booking, entry, err := h.bookingService.CheckOut(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := toBookingResponse(booking)
	if entry != nil {
		history := toHistoryResponse(entry)
		response.History = &history
	}

	respondJSON(c, http.StatusOK, response)
}

// CancelBooking handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	booking, err := h.bookingService.Cancel(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// RecordPayment handles POST /v1/bookings/:id/payments
func (h *BookingHandler) RecordPayment(c *gin.Context) {
	var req PaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	amount := decimal.Zero
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			h.respondError(c, service.ErrInvalidAmount)
			return
		}
		amount = *req.Amount
	}

	booking, payment, err := h.bookingService.RecordPayment(
		c.Request.Context(),
		middleware.IdentityFrom(c),
		c.Param("id"),
		domain.PaymentMethod(req.Method),
		amount,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := toBookingResponse(booking)
	paymentResponse := toPaymentResponse(payment)
	response.Payment = &paymentResponse

	respondJSON(c, http.StatusCreated, response)
}

func formatNullTime(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return formatTime(t.Time)
}
