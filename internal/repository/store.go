package repository

import "context"

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Slots() SlotRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	History() HistoryRepository
	Stats() StatsRepository

	// WithinTx runs fn in a transaction. The Store passed to fn is bound to
	// that transaction; fn's error rolls everything back. Calling WithinTx
	// on a transaction-bound Store runs fn in the same transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
