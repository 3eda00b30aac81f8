// internal/inventory/implementation.go
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
)

const aggregateType = "blood_unit"

// service implements the Service interface.
type service struct {
	store          Store
	log            eventlog.Log
	clock          clock.Clock
	criticalWindow time.Duration
}

// NewService creates the ledger service. criticalWindow bounds the
// near-expiry horizon used for donation pre-selection.
func NewService(store Store, log eventlog.Log, clk clock.Clock, criticalWindow time.Duration) Service {
	return &service{
		store:          store,
		log:            log,
		clock:          clk,
		criticalWindow: criticalWindow,
	}
}

func (s *service) AddStock(ctx context.Context, in AddStockInput) (*BloodUnit, error) {
	if in.BatchNumber == "" {
		return nil, fmt.Errorf("batch number required: %w", blood.ErrValidation)
	}
	if !in.BloodType.Valid() {
		return nil, fmt.Errorf("unknown blood type %q: %w", in.BloodType, blood.ErrValidation)
	}
	if !in.Component.Valid() {
		return nil, fmt.Errorf("unknown component %q: %w", in.Component, blood.ErrValidation)
	}
	if in.Units <= 0 {
		return nil, fmt.Errorf("units must be positive: %w", blood.ErrValidation)
	}
	if !in.ExpiryDate.After(in.DonationDate) {
		return nil, fmt.Errorf("expiry must be after donation date: %w", blood.ErrValidation)
	}

	now := s.clock.Now()
	unit := BloodUnit{
		ID:             uuid.New(),
		BatchNumber:    in.BatchNumber,
		BloodType:      in.BloodType,
		Component:      in.Component,
		UnitsAvailable: in.Units,
		DonationDate:   in.DonationDate.UTC(),
		ExpiryDate:     in.ExpiryDate.UTC(),
		SourceLocation: in.SourceLocation,
		HospitalID:     in.HospitalID,
		IsExpired:      !in.ExpiryDate.After(now),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.InsertUnit(txCtx, unit); err != nil {
			return err
		}
		return s.log.Append(txCtx, unit.ID, aggregateType, 0, "StockAdded", StockAddedEvent{
			UnitID:      unit.ID,
			BatchNumber: unit.BatchNumber,
			BloodType:   unit.BloodType,
			Component:   unit.Component,
			Units:       unit.UnitsAvailable,
		})
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BloodUnit, error) {
	unit, err := s.store.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// Reserve places an exclusive hold on a unit. The hold does not debit
// units_available; allocation re-checks quantity when the hold is consumed.
func (s *service) Reserve(ctx context.Context, unitID uuid.UUID, quantity int, reservedFor *uuid.UUID) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", blood.ErrValidation)
	}
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := s.store.GetUnitForUpdate(txCtx, unitID)
		if err != nil {
			return err
		}
		if unit.ExpiredAt(s.clock.Now()) {
			return fmt.Errorf("batch %s: %w", unit.BatchNumber, blood.ErrExpired)
		}
		if unit.IsReserved {
			return fmt.Errorf("batch %s already reserved: %w", unit.BatchNumber, blood.ErrConflict)
		}
		if quantity > unit.UnitsAvailable {
			return fmt.Errorf("batch %s has %d units, %d requested: %w",
				unit.BatchNumber, unit.UnitsAvailable, quantity, blood.ErrConflict)
		}

		unit.IsReserved = true
		unit.ReservedFor = reservedFor
		unit.UpdatedAt = s.clock.Now()
		unit.Version++
		if err := s.store.UpdateUnit(txCtx, unit); err != nil {
			return err
		}
		return s.log.Append(txCtx, unit.ID, aggregateType, unit.Version-1, "UnitReserved", UnitReservedEvent{
			UnitID:      unit.ID,
			Quantity:    quantity,
			ReservedFor: reservedFor,
		})
	})
}

// Release clears the reservation hold. Releasing an unreserved unit is a no-op.
func (s *service) Release(ctx context.Context, unitID uuid.UUID) error {
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := s.store.GetUnitForUpdate(txCtx, unitID)
		if err != nil {
			return err
		}
		if !unit.IsReserved {
			return nil
		}
		unit.IsReserved = false
		unit.ReservedFor = nil
		unit.UpdatedAt = s.clock.Now()
		unit.Version++
		if err := s.store.UpdateUnit(txCtx, unit); err != nil {
			return err
		}
		return s.log.Append(txCtx, unit.ID, aggregateType, unit.Version-1, "UnitReleased", UnitReleasedEvent{UnitID: unit.ID})
	})
}

func (s *service) Allocate(ctx context.Context, in AllocateInput) (*BloodUnit, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", blood.ErrValidation)
	}
	var result BloodUnit
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := s.store.GetUnitForUpdate(txCtx, in.UnitID)
		if err != nil {
			return err
		}
		if unit.ExpiredAt(s.clock.Now()) {
			return fmt.Errorf("batch %s: %w", unit.BatchNumber, blood.ErrExpired)
		}
		if in.Quantity > unit.UnitsAvailable {
			return fmt.Errorf("batch %s has %d units, %d requested: %w",
				unit.BatchNumber, unit.UnitsAvailable, in.Quantity, blood.ErrInsufficientUnits)
		}

		unit.UnitsAvailable -= in.Quantity
		if in.Transfer && in.DestinationHospital != nil {
			unit.HospitalID = in.DestinationHospital
			unit.IsReserved = false
			unit.ReservedFor = nil
		}
		unit.UpdatedAt = s.clock.Now()
		unit.Version++
		if err := s.store.UpdateUnit(txCtx, unit); err != nil {
			return err
		}
		if err := s.log.Append(txCtx, unit.ID, aggregateType, unit.Version-1, "UnitsAllocated", UnitsAllocatedEvent{
			UnitID:              unit.ID,
			Quantity:            in.Quantity,
			DestinationHospital: in.DestinationHospital,
			Remaining:           unit.UnitsAvailable,
		}); err != nil {
			return err
		}
		result = unit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Transfer reassigns batch ownership and clears any hold; unit counts are
// untouched. Used when a donation offer is accepted.
func (s *service) Transfer(ctx context.Context, unitID, destination uuid.UUID) error {
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := s.store.GetUnitForUpdate(txCtx, unitID)
		if err != nil {
			return err
		}
		unit.HospitalID = &destination
		unit.IsReserved = false
		unit.ReservedFor = nil
		unit.UpdatedAt = s.clock.Now()
		unit.Version++
		if err := s.store.UpdateUnit(txCtx, unit); err != nil {
			return err
		}
		return s.log.Append(txCtx, unit.ID, aggregateType, unit.Version-1, "UnitTransferred", UnitTransferredEvent{
			UnitID:              unit.ID,
			DestinationHospital: destination,
		})
	})
}

// AssignOwner claims unallocated central stock for a hospital. A unit
// already owned by a different hospital is a conflict.
func (s *service) AssignOwner(ctx context.Context, unitID, hospitalID uuid.UUID) error {
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := s.store.GetUnitForUpdate(txCtx, unitID)
		if err != nil {
			return err
		}
		if unit.OwnedBy(hospitalID) {
			return nil
		}
		if unit.HospitalID != nil {
			return fmt.Errorf("batch %s owned by another hospital: %w", unit.BatchNumber, blood.ErrConflict)
		}
		unit.HospitalID = &hospitalID
		unit.UpdatedAt = s.clock.Now()
		unit.Version++
		return s.store.UpdateUnit(txCtx, unit)
	})
}

// SweepExpiry flips is_expired for every unit past its expiry. The flag is
// advisory for reads; Reserve and Allocate also compare timestamps inline.
func (s *service) SweepExpiry(ctx context.Context, now time.Time) (int, error) {
	var flipped int
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		n, err := s.store.MarkExpired(txCtx, now.UTC())
		flipped = n
		return err
	})
	return flipped, err
}

func (s *service) List(ctx context.Context, f Filter) ([]BloodUnit, error) {
	return s.store.ListUnits(ctx, f)
}

func (s *service) NearExpiry(ctx context.Context, hospitalID uuid.UUID, days int) ([]BloodUnit, error) {
	now := s.clock.Now()
	before := now.Add(time.Duration(days) * 24 * time.Hour)
	return s.store.ListUnits(ctx, Filter{
		HospitalID:     &hospitalID,
		ExpiringBefore: &before,
		ExpiringAfter:  &now,
		MinUnits:       1,
	})
}

// CriticalExpiry lists a hospital's unreserved units inside the critical
// window, feeding the donation publishing form.
func (s *service) CriticalExpiry(ctx context.Context, hospitalID uuid.UUID) ([]BloodUnit, error) {
	now := s.clock.Now()
	before := now.Add(s.criticalWindow)
	return s.store.ListUnits(ctx, Filter{
		HospitalID:     &hospitalID,
		UnreservedOnly: true,
		ExpiringBefore: &before,
		ExpiringAfter:  &now,
		MinUnits:       1,
	})
}

func (s *service) Summary(ctx context.Context) ([]StockSummary, error) {
	return s.store.Summarize(ctx, s.clock.Now().Add(7*24*time.Hour))
}
