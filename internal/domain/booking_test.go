package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusActive, false},
		{BookingStatusConfirmed, BookingStatusActive, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusCompleted, false},
		{BookingStatusActive, BookingStatusCompleted, true},
		{BookingStatusActive, BookingStatusCancelled, false},
		{BookingStatusCompleted, BookingStatusActive, false},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{"unknown", BookingStatusConfirmed, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestBookingStatus_OpenAndTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range OpenBookingStatuses {
		assert.True(t, s.IsOpen(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []BookingStatus{BookingStatusCompleted, BookingStatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsOpen(), s)
	}
	assert.False(t, BookingStatus("lost").Valid())
	assert.False(t, BookingStatus("lost").IsOpen())
}

func TestBooking_CanCancel(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	b := &Booking{Status: BookingStatusConfirmed, StartTime: start}

	assert.True(t, b.CanCancel(start.Add(-time.Nanosecond)))
	assert.False(t, b.CanCancel(start))
	assert.False(t, b.CanCancel(start.Add(time.Minute)))

	b.Status = BookingStatusActive
	assert.False(t, b.CanCancel(start.Add(-time.Hour)))
}

func TestIdentity_Owns(t *testing.T) {
	t.Parallel()

	b := &Booking{UserID: "u1"}
	assert.True(t, Identity{UserID: "u1"}.Owns(b))
	assert.False(t, Identity{UserID: "u2", IsStaff: true}.Owns(b))
	assert.False(t, Identity{}.Owns(&Booking{}))
}
