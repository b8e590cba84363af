package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"parking/internal/domain"
	"parking/internal/repository"
)

// SlotRepository is a PostgreSQL implementation of repository.SlotRepository.
type SlotRepository struct {
	q Querier
}

// NewSlotRepository creates a slot repository over a connection pool or a transaction.
func NewSlotRepository(q Querier) *SlotRepository {
	return &SlotRepository{q: q}
}

const slotColumns = `id, slot_number, floor, zone, slot_type, slot_size, status,
	base_rate_per_hour, premium_rate_per_hour, is_active,
	is_ev_charging, is_handicap_accessible, is_covered, has_security_camera,
	distance_from_elevator, distance_from_exit, location_notes, notes,
	maintenance_until, created_by, created_at, updated_at`

// floorOrder sorts floors from the lowest level.
const floorOrder = `array_position(ARRAY['B1','G','1','2','3']::text[], floor)`

func scanSlot(row rowScanner) (*domain.ParkingSlot, error) {
	var slot domain.ParkingSlot
	err := row.Scan(
		&slot.ID,
		&slot.SlotNumber,
		&slot.Floor,
		&slot.Zone,
		&slot.Type,
		&slot.Size,
		&slot.Status,
		&slot.BaseRatePerHour,
		&slot.PremiumRatePerHour,
		&slot.IsActive,
		&slot.Features.EVCharging,
		&slot.Features.HandicapAccessible,
		&slot.Features.Covered,
		&slot.Features.SecurityCamera,
		&slot.DistanceFromElevator,
		&slot.DistanceFromExit,
		&slot.LocationNotes,
		&slot.Notes,
		&slot.MaintenanceUntil,
		&slot.CreatedBy,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create persists a new slot.
func (r *SlotRepository) Create(ctx context.Context, slot *domain.ParkingSlot) error {
	query := `
		INSERT INTO parking_slots (` + slotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.q.ExecContext(ctx, query,
		slot.ID,
		slot.SlotNumber,
		slot.Floor,
		slot.Zone,
		slot.Type,
		slot.Size,
		slot.Status,
		slot.BaseRatePerHour,
		slot.PremiumRatePerHour,
		slot.IsActive,
		slot.Features.EVCharging,
		slot.Features.HandicapAccessible,
		slot.Features.Covered,
		slot.Features.SecurityCamera,
		slot.DistanceFromElevator,
		slot.DistanceFromExit,
		slot.LocationNotes,
		slot.Notes,
		slot.MaintenanceUntil,
		slot.CreatedBy,
		slot.CreatedAt,
		slot.UpdatedAt,
	)

	return mapError(err)
}

// GetByID retrieves a slot by ID.
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a slot and locks its row.
func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetBySlotNumber retrieves a slot by its slot number.
func (r *SlotRepository) GetBySlotNumber(ctx context.Context, slotNumber string) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE slot_number = $1`
	return r.getOne(ctx, query, slotNumber)
}

func (r *SlotRepository) getOne(ctx context.Context, query string, arg any) (*domain.ParkingSlot, error) {
	slot, err := scanSlot(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapError(err)
	}
	return slot, nil
}

// List retrieves slots matching the filter.
func (r *SlotRepository) List(ctx context.Context, filter domain.SlotFilter) ([]*domain.ParkingSlot, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.AvailableOnly {
		add("status = $%d", domain.SlotStatusAvailable)
		conds = append(conds, "is_active")
	}
	if filter.Type != "" {
		add("slot_type = $%d", filter.Type)
	}
	if filter.Size != "" {
		add("slot_size = $%d", filter.Size)
	}
	if filter.Floor != "" {
		add("floor = $%d", filter.Floor)
	}
	if filter.Zone != "" {
		add("zone = $%d", filter.Zone)
	}
	if filter.EVCharging {
		conds = append(conds, "is_ev_charging")
	}
	if filter.HandicapAccessible {
		conds = append(conds, "is_handicap_accessible")
	}

	query := `SELECT ` + slotColumns + ` FROM parking_slots`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY ` + floorOrder + `, slot_number`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*domain.ParkingSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Update updates an existing slot.
func (r *SlotRepository) Update(ctx context.Context, slot *domain.ParkingSlot) error {
	query := `
		UPDATE parking_slots
		SET slot_number = $1, floor = $2, zone = $3, slot_type = $4, slot_size = $5, status = $6,
			base_rate_per_hour = $7, premium_rate_per_hour = $8, is_active = $9,
			is_ev_charging = $10, is_handicap_accessible = $11, is_covered = $12, has_security_camera = $13,
			distance_from_elevator = $14, distance_from_exit = $15, location_notes = $16, notes = $17,
			maintenance_until = $18, updated_at = $19
		WHERE id = $20
	`

	result, err := r.q.ExecContext(ctx, query,
		slot.SlotNumber,
		slot.Floor,
		slot.Zone,
		slot.Type,
		slot.Size,
		slot.Status,
		slot.BaseRatePerHour,
		slot.PremiumRatePerHour,
		slot.IsActive,
		slot.Features.EVCharging,
		slot.Features.HandicapAccessible,
		slot.Features.Covered,
		slot.Features.SecurityCamera,
		slot.DistanceFromElevator,
		slot.DistanceFromExit,
		slot.LocationNotes,
		slot.Notes,
		slot.MaintenanceUntil,
		slot.UpdatedAt,
		slot.ID,
	)
	if err != nil {
		return mapError(err)
	}

	return checkAffected(result)
}

// UpdateStatus updates the status of a slot.
func (r *SlotRepository) UpdateStatus(ctx context.Context, id string, status domain.SlotStatus) error {
	query := `UPDATE parking_slots SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return mapError(err)
	}

	return checkAffected(result)
}

var _ repository.SlotRepository = (*SlotRepository)(nil)
