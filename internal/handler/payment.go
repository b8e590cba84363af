package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parking/internal/domain"
	"parking/internal/middleware"
	"parking/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	errorResponder
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		errorResponder: newErrorResponder(logger),
		paymentService: paymentService,
	}
}

// PaymentRequest is the HTTP request body for paying. A missing amount
// pays the booking total.
type PaymentRequest struct {
	Method string           `json:"payment_method"`
	Amount *decimal.Decimal `json:"amount"`
}

// CompletePaymentRequest is the HTTP request body for completing a pending payment.
type CompletePaymentRequest struct {
	Method string          `json:"payment_method" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentResponse is the HTTP response for payment data.
type PaymentResponse struct {
	ID          string `json:"id"`
	Reference   string `json:"payment_reference"`
	BookingID   string `json:"booking_id"`
	Amount      string `json:"amount"`
	Method      string `json:"payment_method"`
	Status      string `json:"status"`
	InitiatedAt string `json:"initiated_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		Reference:   p.Reference,
		BookingID:   p.BookingID,
		Amount:      money(p.Amount),
		Method:      string(p.Method),
		Status:      string(p.Status),
		InitiatedAt: formatTime(p.InitiatedAt),
		CompletedAt: formatNullTime(p.CompletedAt),
		Notes:       p.Notes,
	}
}

// ListPayments handles GET /v1/bookings/:id/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListForBooking(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		response = append(response, toPaymentResponse(p))
	}

	respondJSON(c, http.StatusOK, gin.H{
		"payments": response,
		"count":    len(response),
	})
}

// CompletePayment handles POST /v1/payments/:id/complete
func (h *PaymentHandler) CompletePayment(c *gin.Context) {
	var req CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	payment, booking, err := h.paymentService.Complete(
		c.Request.Context(),
		middleware.IdentityFrom(c),
		c.Param("id"),
		domain.PaymentMethod(req.Method),
		req.Amount,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := toBookingResponse(booking)
	paymentResponse := toPaymentResponse(payment)
	response.Payment = &paymentResponse

	respondJSON(c, http.StatusOK, response)
}
