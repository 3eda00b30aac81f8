// internal/inventory/service.go
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Filter narrows ledger reads.
type Filter struct {
	BloodType      *blood.Type
	Component      *blood.Component
	HospitalID     *uuid.UUID
	IncludeExpired bool
	UnreservedOnly bool
	ExpiringBefore *time.Time
	ExpiringAfter  *time.Time
	MinUnits       int
}

// Store is the persistence contract for the ledger. Mutations happen inside
// WithTx; GetUnitForUpdate must take a row-level lock so the
// read-validate-write cycle is serialized per unit.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUnit(ctx context.Context, id uuid.UUID) (BloodUnit, error)
	GetUnitForUpdate(ctx context.Context, id uuid.UUID) (BloodUnit, error)
	InsertUnit(ctx context.Context, u BloodUnit) error
	UpdateUnit(ctx context.Context, u BloodUnit) error
	ListUnits(ctx context.Context, f Filter) ([]BloodUnit, error)
	MarkExpired(ctx context.Context, now time.Time) (int, error)
	Summarize(ctx context.Context, nearExpiryBefore time.Time) ([]StockSummary, error)
}

// AddStockInput describes an inbound-stock event.
type AddStockInput struct {
	BatchNumber    string
	BloodType      blood.Type
	Component      blood.Component
	Units          int
	DonationDate   time.Time
	ExpiryDate     time.Time
	SourceLocation string
	HospitalID     *uuid.UUID
}

// AllocateInput debits units from a batch. When Transfer is set and a
// destination is given, ownership of the batch moves to the destination.
type AllocateInput struct {
	UnitID              uuid.UUID
	Quantity            int
	DestinationHospital *uuid.UUID
	Transfer            bool
}

// Service is the inventory ledger: the single mutator of units_available
// and is_reserved. Expiry is checked inline on every decision path, so a
// stale is_expired flag can never let expired stock move.
type Service interface {
	AddStock(ctx context.Context, in AddStockInput) (*BloodUnit, error)
	Get(ctx context.Context, id uuid.UUID) (*BloodUnit, error)
	Reserve(ctx context.Context, unitID uuid.UUID, quantity int, reservedFor *uuid.UUID) error
	Release(ctx context.Context, unitID uuid.UUID) error
	Allocate(ctx context.Context, in AllocateInput) (*BloodUnit, error)
	Transfer(ctx context.Context, unitID, destination uuid.UUID) error
	AssignOwner(ctx context.Context, unitID, hospitalID uuid.UUID) error
	SweepExpiry(ctx context.Context, now time.Time) (int, error)
	List(ctx context.Context, f Filter) ([]BloodUnit, error)
	NearExpiry(ctx context.Context, hospitalID uuid.UUID, days int) ([]BloodUnit, error)
	CriticalExpiry(ctx context.Context, hospitalID uuid.UUID) ([]BloodUnit, error)
	Summary(ctx context.Context) ([]StockSummary, error)
}
