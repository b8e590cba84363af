// Package memory is an in-process implementation of repository.Store.
// Transactions are serialized and applied to a private copy that replaces
// the committed state on success, so a failed unit of work leaves nothing
// behind.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"parking/internal/domain"
	"parking/internal/repository"
)

// Operation names accepted by Store.FailOn.
const (
	OpSlotCreate      = "slots.create"
	OpSlotUpdate      = "slots.update"
	OpSlotStatus      = "slots.update_status"
	OpBookingCreate   = "bookings.create"
	OpBookingUpdate   = "bookings.update"
	OpPaymentCreate   = "payments.create"
	OpPaymentUpdate   = "payments.update"
	OpHistoryCreate   = "history.create"
	OpStatsAggregates = "stats"
)

type state struct {
	slots        map[string]*domain.ParkingSlot
	bookings     map[string]*domain.Booking
	bookingOrder []string
	payments     map[string]*domain.Payment
	paymentOrder []string
	history      []*domain.BookingHistory
}

func newState() *state {
	return &state{
		slots:    make(map[string]*domain.ParkingSlot),
		bookings: make(map[string]*domain.Booking),
		payments: make(map[string]*domain.Payment),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, v := range s.slots {
		cp := *v
		c.slots[id] = &cp
	}
	for id, v := range s.bookings {
		cp := *v
		c.bookings[id] = &cp
	}
	for id, v := range s.payments {
		cp := *v
		c.payments[id] = &cp
	}
	c.bookingOrder = append([]string(nil), s.bookingOrder...)
	c.paymentOrder = append([]string(nil), s.paymentOrder...)
	c.history = append([]*domain.BookingHistory(nil), s.history...)
	return c
}

// handle gives repositories access to either committed state or the
// private state of a running transaction.
type handle interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
	failure(op string) error
}

// Store is an in-memory repository.Store.
type Store struct {
	mu   sync.RWMutex
	data *state

	// txMu serializes transactions and standalone writes.
	txMu sync.Mutex

	failMu   sync.Mutex
	failures map[string]error

	// TxCount counts started transactions.
	TxCount int32
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data:     newState(),
		failures: make(map[string]error),
	}
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failures[op]
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(*state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Slots() repository.SlotRepository       { return &slotRepo{h: s} }
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{h: s} }
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{h: s} }
func (s *Store) History() repository.HistoryRepository  { return &historyRepo{h: s} }
func (s *Store) Stats() repository.StatsRepository      { return &statsRepo{h: s} }

// WithinTx runs fn against a private copy of the data and publishes it
// only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	atomic.AddInt32(&s.TxCount, 1)
	if err := fn(&txStore{root: s, data: work}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// SlotSnapshot returns a copy of the committed slot for assertions.
func (s *Store) SlotSnapshot(id string) *domain.ParkingSlot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data.slots[id]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

// BookingSnapshot returns a copy of the committed booking for assertions.
func (s *Store) BookingSnapshot(id string) *domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data.bookings[id]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

// CountBookings returns the number of committed bookings.
func (s *Store) CountBookings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.bookings)
}

// CountHistory returns the number of committed history entries.
func (s *Store) CountHistory() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.history)
}

// txStore is a Store bound to one running transaction.
type txStore struct {
	root *Store
	data *state
}

func (t *txStore) read(fn func(*state) error) error  { return fn(t.data) }
func (t *txStore) write(fn func(*state) error) error { return fn(t.data) }
func (t *txStore) failure(op string) error           { return t.root.failure(op) }

func (t *txStore) Slots() repository.SlotRepository       { return &slotRepo{h: t} }
func (t *txStore) Bookings() repository.BookingRepository { return &bookingRepo{h: t} }
func (t *txStore) Payments() repository.PaymentRepository { return &paymentRepo{h: t} }
func (t *txStore) History() repository.HistoryRepository  { return &historyRepo{h: t} }
func (t *txStore) Stats() repository.StatsRepository      { return &statsRepo{h: t} }

func (t *txStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(t)
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Store = (*txStore)(nil)
)
