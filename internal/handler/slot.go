package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
	"parking/internal/middleware"
	"parking/internal/service"
)

// SlotHandler handles HTTP requests for parking slots.
type SlotHandler struct {
	errorResponder
	slotService *service.SlotService
}

// NewSlotHandler creates a new SlotHandler.
func NewSlotHandler(slotService *service.SlotService, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{
		errorResponder: newErrorResponder(logger),
		slotService:    slotService,
	}
}

// SlotResponse is the HTTP representation of a slot.
type SlotResponse struct {
	ID                   string              `json:"id"`
	SlotNumber           string              `json:"slot_number"`
	Floor                string              `json:"floor"`
	Zone                 string              `json:"zone"`
	Type                 string              `json:"slot_type"`
	Size                 string              `json:"slot_size"`
	Status               string              `json:"status"`
	BaseRatePerHour      string              `json:"base_rate_per_hour"`
	PremiumRatePerHour   string              `json:"premium_rate_per_hour"`
	HourlyRate           string              `json:"hourly_rate"`
	IsActive             bool                `json:"is_active"`
	Features             domain.SlotFeatures `json:"features"`
	DistanceFromElevator null.Int            `json:"distance_from_elevator"`
	DistanceFromExit     null.Int            `json:"distance_from_exit"`
	LocationNotes        string              `json:"location_notes,omitempty"`
	Notes                string              `json:"notes,omitempty"`
	MaintenanceUntil     string              `json:"maintenance_until,omitempty"`
}

func toSlotResponse(slot *domain.ParkingSlot) SlotResponse {
	resp := SlotResponse{
		ID:                   slot.ID,
		SlotNumber:           slot.SlotNumber,
		Floor:                slot.Floor,
		Zone:                 slot.Zone,
		Type:                 string(slot.Type),
		Size:                 string(slot.Size),
		Status:               string(slot.Status),
		BaseRatePerHour:      money(slot.BaseRatePerHour),
		PremiumRatePerHour:   money(slot.PremiumRatePerHour),
		HourlyRate:           money(slot.HourlyRate()),
		IsActive:             slot.IsActive,
		Features:             slot.Features,
		DistanceFromElevator: slot.DistanceFromElevator,
		DistanceFromExit:     slot.DistanceFromExit,
		LocationNotes:        slot.LocationNotes,
		Notes:                slot.Notes,
	}
	if slot.MaintenanceUntil.Valid {
		resp.MaintenanceUntil = formatTime(slot.MaintenanceUntil.Time)
	}
	return resp
}

func toSlotResponses(slots []*domain.ParkingSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotResponse(slot))
	}
	return out
}

// ParkingInfoResponse is the public overview of the facility.
type ParkingInfoResponse struct {
	TotalSlots       int                     `json:"total_slots"`
	AvailableSlots   int                     `json:"available_slots"`
	SlotsByType      map[domain.SlotType]int `json:"slots_by_type"`
	AvailableByFloor map[string]int          `json:"available_by_floor"`
	MinHourlyRate    string                  `json:"min_hourly_rate"`
	MaxHourlyRate    string                  `json:"max_hourly_rate"`
}

// SlotRequest is the body of slot create and update requests. Absent
// fields keep their current value on update.
type SlotRequest struct {
	SlotNumber           *string              `json:"slot_number"`
	Floor                *string              `json:"floor"`
	Zone                 *string              `json:"zone"`
	Type                 *domain.SlotType     `json:"slot_type"`
	Size                 *domain.SlotSize     `json:"slot_size"`
	BaseRatePerHour      *decimal.Decimal     `json:"base_rate_per_hour"`
	PremiumRatePerHour   *decimal.Decimal     `json:"premium_rate_per_hour"`
	IsActive             *bool                `json:"is_active"`
	Features             *domain.SlotFeatures `json:"features"`
	DistanceFromElevator *null.Int            `json:"distance_from_elevator"`
	DistanceFromExit     *null.Int            `json:"distance_from_exit"`
	LocationNotes        *string              `json:"location_notes"`
	Notes                *string              `json:"notes"`
}

func (r SlotRequest) toCreate() service.CreateSlotRequest {
	req := service.CreateSlotRequest{
		BaseRatePerHour:    r.BaseRatePerHour,
		PremiumRatePerHour: r.PremiumRatePerHour,
	}
	if r.SlotNumber != nil {
		req.SlotNumber = *r.SlotNumber
	}
	if r.Floor != nil {
		req.Floor = *r.Floor
	}
	if r.Zone != nil {
		req.Zone = *r.Zone
	}
	if r.Type != nil {
		req.Type = *r.Type
	}
	if r.Size != nil {
		req.Size = *r.Size
	}
	if r.Features != nil {
		req.Features = *r.Features
	}
	if r.DistanceFromElevator != nil {
		req.DistanceFromElevator = *r.DistanceFromElevator
	}
	if r.DistanceFromExit != nil {
		req.DistanceFromExit = *r.DistanceFromExit
	}
	if r.LocationNotes != nil {
		req.LocationNotes = *r.LocationNotes
	}
	if r.Notes != nil {
		req.Notes = *r.Notes
	}
	return req
}

func (r SlotRequest) toUpdate() service.UpdateSlotRequest {
	return service.UpdateSlotRequest{
		SlotNumber:           r.SlotNumber,
		Floor:                r.Floor,
		Zone:                 r.Zone,
		Type:                 r.Type,
		Size:                 r.Size,
		BaseRatePerHour:      r.BaseRatePerHour,
		PremiumRatePerHour:   r.PremiumRatePerHour,
		IsActive:             r.IsActive,
		Features:             r.Features,
		DistanceFromElevator: r.DistanceFromElevator,
		DistanceFromExit:     r.DistanceFromExit,
		LocationNotes:        r.LocationNotes,
		Notes:                r.Notes,
	}
}

// SlotStatusRequest is the body of POST /v1/admin/slots/:id/status.
type SlotStatusRequest struct {
	Status domain.SlotStatus `json:"status" binding:"required"`
}

// MaintenanceRequest is the body of POST /v1/admin/slots/:id/maintenance.
type MaintenanceRequest struct {
	DurationHours int `json:"duration_hours" binding:"gte=0"`
}

// slotFilterFromQuery reads the slot filters shared by the list endpoints.
func slotFilterFromQuery(c *gin.Context) domain.SlotFilter {
	ev, _ := strconv.ParseBool(c.Query("ev_charging"))
	handicap, _ := strconv.ParseBool(c.Query("handicap_accessible"))
	return domain.SlotFilter{
		Type:               domain.SlotType(c.Query("slot_type")),
		Size:               domain.SlotSize(c.Query("slot_size")),
		Floor:              c.Query("floor"),
		Zone:               c.Query("zone"),
		EVCharging:         ev,
		HandicapAccessible: handicap,
	}
}

// ListAvailable handles GET /v1/slots
func (h *SlotHandler) ListAvailable(c *gin.Context) {
	slots, err := h.slotService.FindAvailable(c.Request.Context(), slotFilterFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"slots": toSlotResponses(slots),
		"count": len(slots),
	})
}

// GetSlot handles GET /v1/slots/:id
func (h *SlotHandler) GetSlot(c *gin.Context) {
	slot, err := h.slotService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSlotResponse(slot))
}

// ParkingInfo handles GET /v1/parking-info
func (h *SlotHandler) ParkingInfo(c *gin.Context) {
	info, err := h.slotService.ParkingInfo(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ParkingInfoResponse{
		TotalSlots:       info.TotalSlots,
		AvailableSlots:   info.AvailableSlots,
		SlotsByType:      info.SlotsByType,
		AvailableByFloor: info.AvailableByFloor,
		MinHourlyRate:    money(info.MinHourlyRate),
		MaxHourlyRate:    money(info.MaxHourlyRate),
	})
}

// ListAll handles GET /v1/admin/slots
func (h *SlotHandler) ListAll(c *gin.Context) {
	filter := slotFilterFromQuery(c)
	slots, err := h.slotService.List(c.Request.Context(), middleware.IdentityFrom(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"slots": toSlotResponses(slots),
		"count": len(slots),
	})
}

// CreateSlot handles POST /v1/admin/slots
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	slot, err := h.slotService.Create(c.Request.Context(), middleware.IdentityFrom(c), req.toCreate())
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toSlotResponse(slot))
}

// UpdateSlot handles PATCH /v1/admin/slots/:id
func (h *SlotHandler) UpdateSlot(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	slot, err := h.slotService.Update(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req.toUpdate())
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSlotResponse(slot))
}

// DeleteSlot handles DELETE /v1/admin/slots/:id
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	if err := h.slotService.Delete(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetStatus handles POST /v1/admin/slots/:id/status
func (h *SlotHandler) SetStatus(c *gin.Context) {
	var req SlotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	slot, err := h.slotService.SetStatus(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSlotResponse(slot))
}

// StartMaintenance handles POST /v1/admin/slots/:id/maintenance
func (h *SlotHandler) StartMaintenance(c *gin.Context) {
	var req MaintenanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	slot, err := h.slotService.SetMaintenance(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req.DurationHours)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSlotResponse(slot))
}

// EndMaintenance handles DELETE /v1/admin/slots/:id/maintenance
func (h *SlotHandler) EndMaintenance(c *gin.Context) {
	slot, err := h.slotService.ClearMaintenance(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSlotResponse(slot))
}

// Seed handles POST /v1/admin/seed
func (h *SlotHandler) Seed(c *gin.Context) {
	created, err := h.slotService.Seed(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"created": toSlotResponses(created),
		"count":   len(created),
	})
}
