// internal/inventory/domain.go
package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// BloodUnit is a discrete batch of blood product tracked by the ledger.
// A nil HospitalID means unallocated central stock. ReservedFor references
// the donation offer or exchange request holding the unit, when reserved.
type BloodUnit struct {
	ID             uuid.UUID       `json:"id"`
	BatchNumber    string          `json:"batch_number"`
	BloodType      blood.Type      `json:"blood_type"`
	Component      blood.Component `json:"component"`
	UnitsAvailable int             `json:"units_available"`
	DonationDate   time.Time       `json:"donation_date"`
	ExpiryDate     time.Time       `json:"expiry_date"`
	SourceLocation string          `json:"source_location,omitempty"`
	HospitalID     *uuid.UUID      `json:"hospital_id,omitempty"`
	IsExpired      bool            `json:"is_expired"`
	IsReserved     bool            `json:"is_reserved"`
	ReservedFor    *uuid.UUID      `json:"reserved_for,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ExpiredAt reports expiry as of now, regardless of whether the stored
// is_expired flag has been swept yet.
func (u BloodUnit) ExpiredAt(now time.Time) bool {
	return u.IsExpired || !u.ExpiryDate.After(now)
}

// OwnedBy reports whether the unit is allocated to the given hospital.
func (u BloodUnit) OwnedBy(hospitalID uuid.UUID) bool {
	return u.HospitalID != nil && *u.HospitalID == hospitalID
}

// StockSummary aggregates availability per blood type and component.
type StockSummary struct {
	BloodType       blood.Type      `json:"blood_type"`
	Component       blood.Component `json:"component"`
	TotalUnits      int             `json:"total_units"`
	NearExpiryUnits int             `json:"near_expiry_units"`
}

// UnitReservedEvent records a reservation hold being placed.
type UnitReservedEvent struct {
	UnitID      uuid.UUID  `json:"unit_id"`
	Quantity    int        `json:"quantity"`
	ReservedFor *uuid.UUID `json:"reserved_for,omitempty"`
}

// UnitReleasedEvent records a reservation hold being cleared.
type UnitReleasedEvent struct {
	UnitID uuid.UUID `json:"unit_id"`
}

// UnitsAllocatedEvent records units being debited from a batch.
type UnitsAllocatedEvent struct {
	UnitID              uuid.UUID  `json:"unit_id"`
	Quantity            int        `json:"quantity"`
	DestinationHospital *uuid.UUID `json:"destination_hospital,omitempty"`
	Remaining           int        `json:"remaining"`
}

// UnitTransferredEvent records full ownership transfer of a batch.
type UnitTransferredEvent struct {
	UnitID              uuid.UUID `json:"unit_id"`
	DestinationHospital uuid.UUID `json:"destination_hospital"`
}

// StockAddedEvent records inbound stock entering the ledger.
type StockAddedEvent struct {
	UnitID      uuid.UUID       `json:"unit_id"`
	BatchNumber string          `json:"batch_number"`
	BloodType   blood.Type      `json:"blood_type"`
	Component   blood.Component `json:"component"`
	Units       int             `json:"units"`
}
