package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// SlotStatus represents the occupancy status of a parking slot.
type SlotStatus string

const (
	SlotStatusAvailable   SlotStatus = "available"
	SlotStatusOccupied    SlotStatus = "occupied"
	SlotStatusMaintenance SlotStatus = "maintenance"
)

// Valid reports whether s is a known slot status.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusAvailable, SlotStatusOccupied, SlotStatusMaintenance:
		return true
	}
	return false
}

// SlotType is the category of a slot. It only affects filtering.
type SlotType string

const (
	SlotTypeStandard SlotType = "standard"
	SlotTypePremium  SlotType = "premium"
	SlotTypeValet    SlotType = "valet"
	SlotTypeCovered  SlotType = "covered"
)

func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeStandard, SlotTypePremium, SlotTypeValet, SlotTypeCovered:
		return true
	}
	return false
}

// SlotSize is the vehicle size class a slot fits.
type SlotSize string

const (
	SlotSizeCompact SlotSize = "compact"
	SlotSizeMedium  SlotSize = "medium"
	SlotSizeLarge   SlotSize = "large"
	SlotSizeXLarge  SlotSize = "xlarge"
)

func (s SlotSize) Valid() bool {
	switch s {
	case SlotSizeCompact, SlotSizeMedium, SlotSizeLarge, SlotSizeXLarge:
		return true
	}
	return false
}

// Floors lists the floors of the facility, lowest first.
var Floors = []string{"B1", "G", "1", "2", "3"}

// ValidFloor reports whether floor is one of Floors.
func ValidFloor(floor string) bool {
	for _, f := range Floors {
		if f == floor {
			return true
		}
	}
	return false
}

// SlotFeatures are the amenity flags of a slot.
type SlotFeatures struct {
	EVCharging         bool `json:"ev_charging"`
	HandicapAccessible bool `json:"handicap_accessible"`
	Covered            bool `json:"covered"`
	SecurityCamera     bool `json:"security_camera"`
}

// ParkingSlot represents a physical parking space.
type ParkingSlot struct {
	ID                   string
	SlotNumber           string
	Floor                string
	Zone                 string
	Type                 SlotType
	Size                 SlotSize
	Status               SlotStatus
	BaseRatePerHour      decimal.Decimal
	PremiumRatePerHour   decimal.Decimal
	IsActive             bool
	Features             SlotFeatures
	DistanceFromElevator null.Int // meters
	DistanceFromExit     null.Int // meters
	LocationNotes        string
	Notes                string
	MaintenanceUntil     null.Time
	CreatedBy            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsAvailable reports whether the slot can be reserved right now.
func (s *ParkingSlot) IsAvailable() bool {
	return s.Status == SlotStatusAvailable && s.IsActive
}

// HourlyRate is the combined base and premium rate.
func (s *ParkingSlot) HourlyRate() decimal.Decimal {
	return s.BaseRatePerHour.Add(s.PremiumRatePerHour)
}

// SlotFilter narrows slot listings. Zero values match everything.
type SlotFilter struct {
	Type               SlotType
	Size               SlotSize
	Floor              string
	Zone               string
	EVCharging         bool
	HandicapAccessible bool

	// AvailableOnly restricts results to active slots with status available.
	AvailableOnly bool
}

// Matches reports whether slot satisfies the filter.
func (f SlotFilter) Matches(slot *ParkingSlot) bool {
	if f.AvailableOnly && !slot.IsAvailable() {
		return false
	}
	if f.Type != "" && slot.Type != f.Type {
		return false
	}
	if f.Size != "" && slot.Size != f.Size {
		return false
	}
	if f.Floor != "" && slot.Floor != f.Floor {
		return false
	}
	if f.Zone != "" && slot.Zone != f.Zone {
		return false
	}
	if f.EVCharging && !slot.Features.EVCharging {
		return false
	}
	if f.HandicapAccessible && !slot.Features.HandicapAccessible {
		return false
	}
	return true
}

// FloorIndex orders floors from the lowest level; unknown floors sort last.
func FloorIndex(floor string) int {
	for i, f := range Floors {
		if f == floor {
			return i
		}
	}
	return len(Floors)
}
