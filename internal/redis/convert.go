package redis

import (
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
)

func cachedSlotFrom(slot *domain.ParkingSlot) *CachedSlot {
	return &CachedSlot{
		ID:                   slot.ID,
		SlotNumber:           slot.SlotNumber,
		Floor:                slot.Floor,
		Zone:                 slot.Zone,
		Type:                 slot.Type,
		Size:                 slot.Size,
		Status:               slot.Status,
		BaseRatePerHour:      slot.BaseRatePerHour.String(),
		PremiumRatePerHour:   slot.PremiumRatePerHour.String(),
		IsActive:             slot.IsActive,
		Features:             slot.Features,
		DistanceFromElevator: slot.DistanceFromElevator.Ptr(),
		DistanceFromExit:     slot.DistanceFromExit.Ptr(),
		LocationNotes:        slot.LocationNotes,
		Notes:                slot.Notes,
		MaintenanceUntil:     slot.MaintenanceUntil.Ptr(),
		CreatedBy:            slot.CreatedBy,
		CreatedAt:            slot.CreatedAt,
		UpdatedAt:            slot.UpdatedAt,
	}
}

func (c *CachedSlot) toDomain() (*domain.ParkingSlot, error) {
	base, err := decimal.NewFromString(c.BaseRatePerHour)
	if err != nil {
		return nil, err
	}
	premium, err := decimal.NewFromString(c.PremiumRatePerHour)
	if err != nil {
		return nil, err
	}

	return &domain.ParkingSlot{
		ID:                   c.ID,
		SlotNumber:           c.SlotNumber,
		Floor:                c.Floor,
		Zone:                 c.Zone,
		Type:                 c.Type,
		Size:                 c.Size,
		Status:               c.Status,
		BaseRatePerHour:      base,
		PremiumRatePerHour:   premium,
		IsActive:             c.IsActive,
		Features:             c.Features,
		DistanceFromElevator: null.IntFromPtr(c.DistanceFromElevator),
		DistanceFromExit:     null.IntFromPtr(c.DistanceFromExit),
		LocationNotes:        c.LocationNotes,
		Notes:                c.Notes,
		MaintenanceUntil:     null.TimeFromPtr(c.MaintenanceUntil),
		CreatedBy:            c.CreatedBy,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}, nil
}
