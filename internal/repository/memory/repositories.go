package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"parking/internal/domain"
	"parking/internal/repository"
)

// ──────────────────────────────────────────────
// SLOTS
// ──────────────────────────────────────────────

type slotRepo struct {
	h handle
}

func (r *slotRepo) Create(ctx context.Context, slot *domain.ParkingSlot) error {
	if err := r.h.failure(OpSlotCreate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		for _, existing := range s.slots {
			if existing.SlotNumber == slot.SlotNumber {
				return repository.ErrDuplicateSlotNumber
			}
		}
		cp := *slot
		s.slots[slot.ID] = &cp
		return nil
	})
}

func (r *slotRepo) GetByID(ctx context.Context, id string) (*domain.ParkingSlot, error) {
	var out *domain.ParkingSlot
	err := r.h.read(func(s *state) error {
		slot, ok := s.slots[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *slot
		out = &cp
		return nil
	})
	return out, err
}

func (r *slotRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.ParkingSlot, error) {
	return r.GetByID(ctx, id)
}

func (r *slotRepo) GetBySlotNumber(ctx context.Context, slotNumber string) (*domain.ParkingSlot, error) {
	var out *domain.ParkingSlot
	err := r.h.read(func(s *state) error {
		for _, slot := range s.slots {
			if slot.SlotNumber == slotNumber {
				cp := *slot
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *slotRepo) List(ctx context.Context, filter domain.SlotFilter) ([]*domain.ParkingSlot, error) {
	var out []*domain.ParkingSlot
	err := r.h.read(func(s *state) error {
		for _, slot := range s.slots {
			if filter.Matches(slot) {
				cp := *slot
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		fi, fj := domain.FloorIndex(out[i].Floor), domain.FloorIndex(out[j].Floor)
		if fi != fj {
			return fi < fj
		}
		return out[i].SlotNumber < out[j].SlotNumber
	})
	return out, err
}

func (r *slotRepo) Update(ctx context.Context, slot *domain.ParkingSlot) error {
	if err := r.h.failure(OpSlotUpdate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		if _, ok := s.slots[slot.ID]; !ok {
			return repository.ErrNotFound
		}
		for id, existing := range s.slots {
			if id != slot.ID && existing.SlotNumber == slot.SlotNumber {
				return repository.ErrDuplicateSlotNumber
			}
		}
		cp := *slot
		s.slots[slot.ID] = &cp
		return nil
	})
}

func (r *slotRepo) UpdateStatus(ctx context.Context, id string, status domain.SlotStatus) error {
	if err := r.h.failure(OpSlotStatus); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		slot, ok := s.slots[id]
		if !ok {
			return repository.ErrNotFound
		}
		slot.Status = status
		slot.UpdatedAt = time.Now()
		return nil
	})
}

// ──────────────────────────────────────────────
// BOOKINGS
// ──────────────────────────────────────────────

type bookingRepo struct {
	h handle
}

func (r *bookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if err := r.h.failure(OpBookingCreate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		for _, existing := range s.bookings {
			if existing.Reference == b.Reference {
				return repository.ErrDuplicateReference
			}
		}
		if b.Status.IsOpen() {
			for _, existing := range s.bookings {
				if existing.SlotID == b.SlotID && existing.Status.IsOpen() {
					return repository.ErrOpenBookingExists
				}
			}
		}
		cp := *b
		s.bookings[b.ID] = &cp
		s.bookingOrder = append(s.bookingOrder, b.ID)
		return nil
	})
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.h.read(func(s *state) error {
		b, ok := s.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *b
		out = &cp
		return nil
	})
	return out, err
}

func (r *bookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	if err := r.h.failure(OpBookingUpdate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		existing, ok := s.bookings[b.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if b.Status.IsOpen() && !existing.Status.IsOpen() {
			for id, other := range s.bookings {
				if id != b.ID && other.SlotID == b.SlotID && other.Status.IsOpen() {
					return repository.ErrOpenBookingExists
				}
			}
		}
		cp := *b
		s.bookings[b.ID] = &cp
		return nil
	})
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID string, statuses []domain.BookingStatus) ([]*domain.Booking, error) {
	var out []*domain.Booking
	err := r.h.read(func(s *state) error {
		out = newestBookings(s, func(b *domain.Booking) bool {
			return b.UserID == userID && statusIn(b.Status, statuses)
		}, 0)
		return nil
	})
	return out, err
}

func (r *bookingRepo) CountOpenBySlot(ctx context.Context, slotID string) (int, error) {
	var count int
	err := r.h.read(func(s *state) error {
		for _, b := range s.bookings {
			if b.SlotID == slotID && b.Status.IsOpen() {
				count++
			}
		}
		return nil
	})
	return count, err
}

func statusIn(status domain.BookingStatus, statuses []domain.BookingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// newestBookings returns copies of matching bookings, newest first.
// A limit of 0 returns all of them.
func newestBookings(s *state, match func(*domain.Booking) bool, limit int) []*domain.Booking {
	var out []*domain.Booking
	for i := len(s.bookingOrder) - 1; i >= 0; i-- {
		b := s.bookings[s.bookingOrder[i]]
		if match(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ──────────────────────────────────────────────
// PAYMENTS
// ──────────────────────────────────────────────

type paymentRepo struct {
	h handle
}

func (r *paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	if err := r.h.failure(OpPaymentCreate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		for _, existing := range s.payments {
			if existing.Reference == p.Reference {
				return repository.ErrDuplicateReference
			}
		}
		cp := *p
		s.payments[p.ID] = &cp
		s.paymentOrder = append(s.paymentOrder, p.ID)
		return nil
	})
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.h.read(func(s *state) error {
		p, ok := s.payments[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *paymentRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepo) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.h.read(func(s *state) error {
		for _, id := range s.paymentOrder {
			if p := s.payments[id]; p.BookingID == bookingID {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (r *paymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	if err := r.h.failure(OpPaymentUpdate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		if _, ok := s.payments[p.ID]; !ok {
			return repository.ErrNotFound
		}
		cp := *p
		s.payments[p.ID] = &cp
		return nil
	})
}

// ──────────────────────────────────────────────
// HISTORY
// ──────────────────────────────────────────────

type historyRepo struct {
	h handle
}

func (r *historyRepo) Create(ctx context.Context, entry *domain.BookingHistory) error {
	if err := r.h.failure(OpHistoryCreate); err != nil {
		return err
	}
	return r.h.write(func(s *state) error {
		cp := *entry
		s.history = append(s.history, &cp)
		return nil
	})
}

func (r *historyRepo) ListByUser(ctx context.Context, userID string) ([]*domain.BookingHistory, error) {
	var out []*domain.BookingHistory
	err := r.h.read(func(s *state) error {
		for i := len(s.history) - 1; i >= 0; i-- {
			if h := s.history[i]; h.UserID == userID {
				cp := *h
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReleasedAt.After(out[j].ReleasedAt)
	})
	return out, err
}

// ──────────────────────────────────────────────
// STATS
// ──────────────────────────────────────────────

type statsRepo struct {
	h handle
}

func (r *statsRepo) SlotStats(ctx context.Context) (domain.SlotStats, error) {
	var stats domain.SlotStats
	if err := r.h.failure(OpStatsAggregates); err != nil {
		return stats, err
	}
	err := r.h.read(func(s *state) error {
		for _, slot := range s.slots {
			if !slot.IsActive {
				stats.Inactive++
				continue
			}
			stats.Total++
			switch slot.Status {
			case domain.SlotStatusAvailable:
				stats.Available++
			case domain.SlotStatusOccupied:
				stats.Occupied++
			case domain.SlotStatusMaintenance:
				stats.Maintenance++
			}
		}
		return nil
	})
	return stats, err
}

func (r *statsRepo) BookingStats(ctx context.Context) (domain.BookingStats, error) {
	stats := domain.BookingStats{ByStatus: make(map[domain.BookingStatus]int)}
	if err := r.h.failure(OpStatsAggregates); err != nil {
		return stats, err
	}
	err := r.h.read(func(s *state) error {
		for _, b := range s.bookings {
			stats.ByStatus[b.Status]++
			stats.Total++
		}
		return nil
	})
	return stats, err
}

func (r *statsRepo) Revenue(ctx context.Context, dayStart time.Time) (domain.RevenueStats, error) {
	stats := domain.RevenueStats{Total: decimal.Zero, Today: decimal.Zero}
	if err := r.h.failure(OpStatsAggregates); err != nil {
		return stats, err
	}
	err := r.h.read(func(s *state) error {
		paid := make(map[string]struct{})
		for _, p := range s.payments {
			if p.Status != domain.PaymentStatusCompleted {
				continue
			}
			stats.Total = stats.Total.Add(p.Amount)
			if p.CompletedAt.Valid && !p.CompletedAt.Time.Before(dayStart) {
				stats.Today = stats.Today.Add(p.Amount)
			}
			paid[p.BookingID] = struct{}{}
		}
		stats.PaidBookings = len(paid)
		return nil
	})
	return stats, err
}

func (r *statsRepo) RecentBookings(ctx context.Context, limit int) ([]*domain.Booking, error) {
	var out []*domain.Booking
	err := r.h.read(func(s *state) error {
		out = newestBookings(s, func(*domain.Booking) bool { return true }, limit)
		return nil
	})
	return out, err
}

func (r *statsRepo) PopularSlots(ctx context.Context, limit int) ([]domain.PopularSlot, error) {
	var out []domain.PopularSlot
	err := r.h.read(func(s *state) error {
		counts := make(map[string]int)
		for _, b := range s.bookings {
			counts[b.SlotID]++
		}
		for slotID, count := range counts {
			number := ""
			if slot, ok := s.slots[slotID]; ok {
				number = slot.SlotNumber
			}
			out = append(out, domain.PopularSlot{SlotID: slotID, SlotNumber: number, BookingCount: count})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingCount != out[j].BookingCount {
			return out[i].BookingCount > out[j].BookingCount
		}
		return out[i].SlotNumber < out[j].SlotNumber
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *statsRepo) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats := domain.UserStats{TotalSpent: decimal.Zero}
	err := r.h.read(func(s *state) error {
		for _, b := range s.bookings {
			if b.UserID != userID {
				continue
			}
			stats.TotalBookings++
			switch b.Status {
			case domain.BookingStatusConfirmed, domain.BookingStatusActive:
				stats.ActiveBookings++
			case domain.BookingStatusCompleted:
				stats.CompletedBookings++
			case domain.BookingStatusCancelled:
				stats.CancelledBookings++
			}
			stats.TotalSpent = stats.TotalSpent.Add(b.AmountPaid)
		}
		return nil
	})
	return stats, err
}

var (
	_ repository.SlotRepository    = (*slotRepo)(nil)
	_ repository.BookingRepository = (*bookingRepo)(nil)
	_ repository.PaymentRepository = (*paymentRepo)(nil)
	_ repository.HistoryRepository = (*historyRepo)(nil)
	_ repository.StatsRepository   = (*statsRepo)(nil)
)
