package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parking/internal/domain"
	"parking/internal/redis"
	"parking/internal/repository"
)

// Default hourly rates for new slots.
var (
	DefaultBaseRate    = decimal.RequireFromString("3.00")
	DefaultPremiumRate = decimal.Zero
)

// SlotService owns parking slots and their availability.
type SlotService struct {
	store  repository.Store
	cache  redis.SlotCache
	clock  Clock
	logger *zap.Logger
}

// NewSlotService creates a new SlotService. cache may be nil.
func NewSlotService(store repository.Store, cache redis.SlotCache, clock Clock, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		store:  store,
		cache:  cache,
		clock:  clock,
		logger: logger.Named("slots"),
	}
}

// FindAvailable returns active slots with status available that match filter.
func (s *SlotService) FindAvailable(ctx context.Context, filter domain.SlotFilter) ([]*domain.ParkingSlot, error) {
	filter.AvailableOnly = true
	return s.store.Slots().List(ctx, filter)
}

// List returns every slot matching filter, including inactive ones.
func (s *SlotService) List(ctx context.Context, identity domain.Identity, filter domain.SlotFilter) ([]*domain.ParkingSlot, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}
	return s.store.Slots().List(ctx, filter)
}

// Get retrieves a slot, reading through the cache.
func (s *SlotService) Get(ctx context.Context, slotID string) (*domain.ParkingSlot, error) {
	if slotID == "" {
		return nil, ErrInvalidSlotID
	}

	if s.cache != nil {
		cached, err := s.cache.GetSlot(ctx, slotID)
		if err != nil {
			s.logger.Warn("slot cache read failed", zap.String("slot_id", slotID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	slot, err := s.store.Slots().GetByID(ctx, slotID)
	if err != nil {
		return nil, translateSlotError(err)
	}

	if s.cache != nil {
		if err := s.cache.SetSlot(ctx, slot); err != nil {
			s.logger.Warn("slot cache write failed", zap.String("slot_id", slotID), zap.Error(err))
		}
	}

	return slot, nil
}

// CreateSlotRequest contains the parameters for creating a slot.
type CreateSlotRequest struct {
	SlotNumber           string
	Floor                string
	Zone                 string
	Type                 domain.SlotType
	Size                 domain.SlotSize
	BaseRatePerHour      *decimal.Decimal
	PremiumRatePerHour   *decimal.Decimal
	Features             domain.SlotFeatures
	DistanceFromElevator null.Int
	DistanceFromExit     null.Int
	LocationNotes        string
	Notes                string
}

// Create adds a new available slot.
func (s *SlotService) Create(ctx context.Context, identity domain.Identity, req CreateSlotRequest) (*domain.ParkingSlot, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	slot := &domain.ParkingSlot{
		ID:                   uuid.New().String(),
		SlotNumber:           strings.TrimSpace(req.SlotNumber),
		Floor:                req.Floor,
		Zone:                 req.Zone,
		Type:                 req.Type,
		Size:                 req.Size,
		Status:               domain.SlotStatusAvailable,
		BaseRatePerHour:      DefaultBaseRate,
		PremiumRatePerHour:   DefaultPremiumRate,
		IsActive:             true,
		Features:             req.Features,
		DistanceFromElevator: req.DistanceFromElevator,
		DistanceFromExit:     req.DistanceFromExit,
		LocationNotes:        req.LocationNotes,
		Notes:                req.Notes,
		CreatedBy:            identity.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if slot.Type == "" {
		slot.Type = domain.SlotTypeStandard
	}
	if slot.Size == "" {
		slot.Size = domain.SlotSizeMedium
	}
	if req.BaseRatePerHour != nil {
		slot.BaseRatePerHour = *req.BaseRatePerHour
	}
	if req.PremiumRatePerHour != nil {
		slot.PremiumRatePerHour = *req.PremiumRatePerHour
	}

	if err := validateSlot(slot); err != nil {
		return nil, err
	}

	if err := s.store.Slots().Create(ctx, slot); err != nil {
		return nil, translateSlotError(err)
	}

	s.InvalidateDashboard(ctx)
	s.logger.Info("slot created", zap.String("slot_id", slot.ID), zap.String("slot_number", slot.SlotNumber))
	return slot, nil
}

// UpdateSlotRequest is a partial update. Nil fields are left unchanged.
type UpdateSlotRequest struct {
	SlotNumber           *string
	Floor                *string
	Zone                 *string
	Type                 *domain.SlotType
	Size                 *domain.SlotSize
	BaseRatePerHour      *decimal.Decimal
	PremiumRatePerHour   *decimal.Decimal
	IsActive             *bool
	Features             *domain.SlotFeatures
	DistanceFromElevator *null.Int
	DistanceFromExit     *null.Int
	LocationNotes        *string
	Notes                *string
}

// Update patches a slot. Rate changes never affect existing bookings.
// Deactivating a slot follows the same rule as Delete.
func (s *SlotService) Update(ctx context.Context, identity domain.Identity, slotID string, req UpdateSlotRequest) (*domain.ParkingSlot, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}
	if slotID == "" {
		return nil, ErrInvalidSlotID
	}

	var slot *domain.ParkingSlot
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		slot, err = tx.Slots().GetByIDForUpdate(ctx, slotID)
		if err != nil {
			return translateSlotError(err)
		}

		if slot.IsActive && req.IsActive != nil && !*req.IsActive {
			if err := ensureNoOpenBooking(ctx, tx, slotID); err != nil {
				return err
			}
		}

		applySlotPatch(slot, req)
		if err := validateSlot(slot); err != nil {
			return err
		}

		slot.UpdatedAt = s.clock.Now()
		return translateSlotError(tx.Slots().Update(ctx, slot))
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	s.Invalidate(ctx, slotID)
	return slot, nil
}

// Delete deactivates a slot. Slots are kept for the bookings and history
// that reference them.
func (s *SlotService) Delete(ctx context.Context, identity domain.Identity, slotID string) error {
	if err := requireStaff(identity); err != nil {
		return err
	}
	if slotID == "" {
		return ErrInvalidSlotID
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		slot, err := tx.Slots().GetByIDForUpdate(ctx, slotID)
		if err != nil {
			return translateSlotError(err)
		}

		if err := ensureNoOpenBooking(ctx, tx, slotID); err != nil {
			return err
		}

		slot.IsActive = false
		slot.UpdatedAt = s.clock.Now()
		return translateSlotError(tx.Slots().Update(ctx, slot))
	})
	if err != nil {
		return translateStoreError(err)
	}

	s.Invalidate(ctx, slotID)
	s.logger.Info("slot deleted", zap.String("slot_id", slotID), zap.String("by", identity.UserID))
	return nil
}

// SetStatus applies an administrative status override. Only maintenance
// and available can be set; occupied belongs to bookings.
func (s *SlotService) SetStatus(ctx context.Context, identity domain.Identity, slotID string, status domain.SlotStatus) (*domain.ParkingSlot, error) {
	switch status {
	case domain.SlotStatusMaintenance:
		return s.SetMaintenance(ctx, identity, slotID, 0)
	case domain.SlotStatusAvailable:
		return s.ClearMaintenance(ctx, identity, slotID)
	default:
		return nil, fmt.Errorf("%w: %q cannot be set manually", ErrInvalidStatus, status)
	}
}

// SetMaintenance takes a slot out of service. A positive durationHours
// records when maintenance is expected to end.
func (s *SlotService) SetMaintenance(ctx context.Context, identity domain.Identity, slotID string, durationHours int) (*domain.ParkingSlot, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}
	if slotID == "" {
		return nil, ErrInvalidSlotID
	}
	if durationHours < 0 {
		return nil, fmt.Errorf("%w: maintenance duration must not be negative", ErrValidation)
	}

	var slot *domain.ParkingSlot
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		slot, err = tx.Slots().GetByIDForUpdate(ctx, slotID)
		if err != nil {
			return translateSlotError(err)
		}

		if err := ensureNoOpenBooking(ctx, tx, slotID); err != nil {
			return err
		}

		now := s.clock.Now()
		slot.Status = domain.SlotStatusMaintenance
		slot.MaintenanceUntil = null.Time{}
		if durationHours > 0 {
			slot.MaintenanceUntil = null.TimeFrom(now.Add(time.Duration(durationHours) * time.Hour))
		}
		slot.UpdatedAt = now
		return translateSlotError(tx.Slots().Update(ctx, slot))
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	s.Invalidate(ctx, slotID)
	s.logger.Info("slot under maintenance", zap.String("slot_id", slotID), zap.Int("hours", durationHours))
	return slot, nil
}

// ClearMaintenance returns a slot to service.
func (s *SlotService) ClearMaintenance(ctx context.Context, identity domain.Identity, slotID string) (*domain.ParkingSlot, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}
	if slotID == "" {
		return nil, ErrInvalidSlotID
	}

	var slot *domain.ParkingSlot
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		slot, err = tx.Slots().GetByIDForUpdate(ctx, slotID)
		if err != nil {
			return translateSlotError(err)
		}

		if err := ensureNoOpenBooking(ctx, tx, slotID); err != nil {
			return err
		}

		slot.Status = domain.SlotStatusAvailable
		slot.MaintenanceUntil = null.Time{}
		slot.UpdatedAt = s.clock.Now()
		return translateSlotError(tx.Slots().Update(ctx, slot))
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	s.Invalidate(ctx, slotID)
	return slot, nil
}

// Reserve marks an available slot occupied. It must run inside tx so the
// slot row stays locked until the booking is written.
func (s *SlotService) Reserve(ctx context.Context, tx repository.Store, slotID string) (*domain.ParkingSlot, error) {
	slot, err := tx.Slots().GetByIDForUpdate(ctx, slotID)
	if err != nil {
		return nil, translateSlotError(err)
	}

	if !slot.IsAvailable() {
		return nil, ErrSlotUnavailable
	}

	if err := tx.Slots().UpdateStatus(ctx, slotID, domain.SlotStatusOccupied); err != nil {
		return nil, partialWrite("reserve slot", err)
	}

	slot.Status = domain.SlotStatusOccupied
	return slot, nil
}

// Release marks a slot available. Releasing an available slot is a no-op.
func (s *SlotService) Release(ctx context.Context, tx repository.Store, slotID string) error {
	if err := tx.Slots().UpdateStatus(ctx, slotID, domain.SlotStatusAvailable); err != nil {
		return partialWrite("release slot", err)
	}
	return nil
}

// Invalidate drops cached state for a slot. Failures are logged.
func (s *SlotService) Invalidate(ctx context.Context, slotID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSlot(ctx, slotID); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("slot_id", slotID), zap.Error(err))
	}
}

// InvalidateDashboard drops the cached dashboard after a booking or
// payment change that leaves slot state untouched.
func (s *SlotService) InvalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboard(ctx); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// ParkingInfo summarises the facility for anonymous visitors.
func (s *SlotService) ParkingInfo(ctx context.Context) (*domain.ParkingInfo, error) {
	slots, err := s.store.Slots().List(ctx, domain.SlotFilter{})
	if err != nil {
		return nil, err
	}

	info := &domain.ParkingInfo{
		SlotsByType:      make(map[domain.SlotType]int),
		AvailableByFloor: make(map[string]int),
	}
	first := true
	for _, slot := range slots {
		if !slot.IsActive {
			continue
		}
		info.TotalSlots++
		info.SlotsByType[slot.Type]++
		if slot.IsAvailable() {
			info.AvailableSlots++
			info.AvailableByFloor[slot.Floor]++
		}

		rate := slot.HourlyRate()
		if first || rate.LessThan(info.MinHourlyRate) {
			info.MinHourlyRate = rate
		}
		if first || rate.GreaterThan(info.MaxHourlyRate) {
			info.MaxHourlyRate = rate
		}
		first = false
	}

	return info, nil
}

// seedSlots is the demo inventory created by Seed.
var seedSlots = []CreateSlotRequest{
	{SlotNumber: "G-A-101", Floor: "G", Zone: "A", Type: domain.SlotTypeStandard, Size: domain.SlotSizeMedium, Features: domain.SlotFeatures{SecurityCamera: true}},
	{SlotNumber: "G-A-102", Floor: "G", Zone: "A", Type: domain.SlotTypeStandard, Size: domain.SlotSizeMedium, Features: domain.SlotFeatures{HandicapAccessible: true}},
	{SlotNumber: "1-B-201", Floor: "1", Zone: "B", Type: domain.SlotTypePremium, Size: domain.SlotSizeLarge, PremiumRatePerHour: decimalPtr("2.00"), Features: domain.SlotFeatures{Covered: true, SecurityCamera: true}},
	{SlotNumber: "1-B-202", Floor: "1", Zone: "B", Type: domain.SlotTypeCovered, Size: domain.SlotSizeLarge, PremiumRatePerHour: decimalPtr("1.00"), Features: domain.SlotFeatures{Covered: true, EVCharging: true}},
}

// Seed creates the demo slots that do not exist yet and returns the new ones.
func (s *SlotService) Seed(ctx context.Context, identity domain.Identity) ([]*domain.ParkingSlot, error) {
	if err := requireStaff(identity); err != nil {
		return nil, err
	}

	var created []*domain.ParkingSlot
	for _, req := range seedSlots {
		_, err := s.store.Slots().GetBySlotNumber(ctx, req.SlotNumber)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, err
		}

		slot, err := s.Create(ctx, identity, req)
		if err != nil {
			if errors.Is(err, ErrSlotNumberTaken) {
				continue
			}
			return created, err
		}
		created = append(created, slot)
	}

	return created, nil
}

func ensureNoOpenBooking(ctx context.Context, tx repository.Store, slotID string) error {
	open, err := tx.Bookings().CountOpenBySlot(ctx, slotID)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrSlotHasActiveBooking
	}
	return nil
}

func applySlotPatch(slot *domain.ParkingSlot, req UpdateSlotRequest) {
	if req.SlotNumber != nil {
		slot.SlotNumber = strings.TrimSpace(*req.SlotNumber)
	}
	if req.Floor != nil {
		slot.Floor = *req.Floor
	}
	if req.Zone != nil {
		slot.Zone = *req.Zone
	}
	if req.Type != nil {
		slot.Type = *req.Type
	}
	if req.Size != nil {
		slot.Size = *req.Size
	}
	if req.BaseRatePerHour != nil {
		slot.BaseRatePerHour = *req.BaseRatePerHour
	}
	if req.PremiumRatePerHour != nil {
		slot.PremiumRatePerHour = *req.PremiumRatePerHour
	}
	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}
	if req.Features != nil {
		slot.Features = *req.Features
	}
	if req.DistanceFromElevator != nil {
		slot.DistanceFromElevator = *req.DistanceFromElevator
	}
	if req.DistanceFromExit != nil {
		slot.DistanceFromExit = *req.DistanceFromExit
	}
	if req.LocationNotes != nil {
		slot.LocationNotes = *req.LocationNotes
	}
	if req.Notes != nil {
		slot.Notes = *req.Notes
	}
}

func validateSlot(slot *domain.ParkingSlot) error {
	switch {
	case slot.SlotNumber == "" || len(slot.SlotNumber) > 20:
		return fmt.Errorf("%w: slot number must be 1-20 characters", ErrInvalidSlot)
	case !domain.ValidFloor(slot.Floor):
		return fmt.Errorf("%w: unknown floor %q", ErrInvalidSlot, slot.Floor)
	case len(slot.Zone) > 10:
		return fmt.Errorf("%w: zone must be at most 10 characters", ErrInvalidSlot)
	case !slot.Type.Valid():
		return fmt.Errorf("%w: unknown slot type %q", ErrInvalidSlot, slot.Type)
	case !slot.Size.Valid():
		return fmt.Errorf("%w: unknown slot size %q", ErrInvalidSlot, slot.Size)
	case slot.BaseRatePerHour.IsNegative() || slot.PremiumRatePerHour.IsNegative():
		return ErrInvalidRate
	case slot.DistanceFromElevator.Valid && slot.DistanceFromElevator.Int64 < 0,
		slot.DistanceFromExit.Valid && slot.DistanceFromExit.Int64 < 0:
		return fmt.Errorf("%w: distances must not be negative", ErrInvalidSlot)
	}
	return nil
}

func requireStaff(identity domain.Identity) error {
	if identity.UserID == "" {
		return ErrUnauthenticated
	}
	if !identity.IsStaff {
		return ErrStaffOnly
	}
	return nil
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
