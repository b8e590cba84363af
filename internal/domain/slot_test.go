package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSlotFilter_Matches(t *testing.T) {
	t.Parallel()

	slot := &ParkingSlot{
		Floor:    "1",
		Zone:     "B",
		Type:     SlotTypeCovered,
		Size:     SlotSizeLarge,
		Status:   SlotStatusAvailable,
		IsActive: true,
		Features: SlotFeatures{EVCharging: true},
	}

	tests := []struct {
		name   string
		filter SlotFilter
		want   bool
	}{
		{name: "empty filter", filter: SlotFilter{}, want: true},
		{name: "matching floor and zone", filter: SlotFilter{Floor: "1", Zone: "B"}, want: true},
		{name: "other floor", filter: SlotFilter{Floor: "G"}, want: false},
		{name: "type", filter: SlotFilter{Type: SlotTypeCovered}, want: true},
		{name: "other size", filter: SlotFilter{Size: SlotSizeCompact}, want: false},
		{name: "ev charging", filter: SlotFilter{EVCharging: true}, want: true},
		{name: "handicap", filter: SlotFilter{HandicapAccessible: true}, want: false},
		{name: "available only", filter: SlotFilter{AvailableOnly: true}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(slot))
		})
	}
}

func TestParkingSlot_Availability(t *testing.T) {
	t.Parallel()

	slot := &ParkingSlot{Status: SlotStatusAvailable, IsActive: true}
	assert.True(t, slot.IsAvailable())

	slot.IsActive = false
	assert.False(t, slot.IsAvailable())
	assert.False(t, SlotFilter{AvailableOnly: true}.Matches(slot))

	slot.IsActive = true
	slot.Status = SlotStatusMaintenance
	assert.False(t, slot.IsAvailable())
}

func TestParkingSlot_HourlyRate(t *testing.T) {
	t.Parallel()

	slot := &ParkingSlot{
		BaseRatePerHour:    decimal.RequireFromString("3.00"),
		PremiumRatePerHour: decimal.RequireFromString("1.25"),
	}
	assert.True(t, slot.HourlyRate().Equal(decimal.RequireFromString("4.25")))
}

func TestFloors(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidFloor("B1"))
	assert.False(t, ValidFloor("4"))
	assert.Less(t, FloorIndex("B1"), FloorIndex("G"))
	assert.Equal(t, len(Floors), FloorIndex("roof"))
}
