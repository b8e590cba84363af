package postgres

import (
	"context"
	"database/sql"

	"parking/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
	tx *sql.Tx
	q  Querier
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Slots() repository.SlotRepository       { return NewSlotRepository(s.q) }
func (s *Store) Bookings() repository.BookingRepository { return NewBookingRepository(s.q) }
func (s *Store) Payments() repository.PaymentRepository { return NewPaymentRepository(s.q) }
func (s *Store) History() repository.HistoryRepository  { return NewHistoryRepository(s.q) }
func (s *Store) Stats() repository.StatsRepository      { return NewStatsRepository(s.q) }

// WithinTx runs fn inside a READ COMMITTED transaction. Callers serialize
// on contended rows with SELECT ... FOR UPDATE.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Store{db: s.db, tx: tx, q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapError(err)
	}

	return nil
}

var _ repository.Store = (*Store)(nil)
