package domain

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID  string
	IsStaff bool
}

// Owns reports whether the identity owns the booking.
func (i Identity) Owns(b *Booking) bool {
	return i.UserID != "" && i.UserID == b.UserID
}
