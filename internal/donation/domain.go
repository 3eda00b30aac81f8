// internal/donation/domain.go
package donation

import (
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
)

// Status is the offer lifecycle. ACCEPTED and CANCELLED are terminal.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusAccepted  Status = "ACCEPTED"
	StatusCancelled Status = "CANCELLED"
)

// Offer publishes a hospital's excess or near-expiry batch for transfer.
// While the offer is AVAILABLE the referenced unit carries a reservation
// hold pointing back at the offer.
type Offer struct {
	ID                   uuid.UUID  `json:"id"`
	UnitID               uuid.UUID  `json:"unit_id"`
	DonatingHospitalID   uuid.UUID  `json:"donating_hospital_id"`
	UnitsOffered         int        `json:"units_offered"`
	Reason               string     `json:"reason"`
	Notes                string     `json:"notes,omitempty"`
	IsCriticalExpiry     bool       `json:"is_critical_expiry"`
	Status               Status     `json:"status"`
	IsActive             bool       `json:"is_active"`
	AcceptedByHospitalID *uuid.UUID `json:"accepted_by_hospital_id,omitempty"`
	AcceptedAt           *time.Time `json:"accepted_at,omitempty"`
	CreatedByUserID      uuid.UUID  `json:"created_by_user_id"`
	ExpiresAt            time.Time  `json:"expires_at"`
	CreatedAt            time.Time  `json:"created_at"`
	Version              int        `json:"version"`
}

// Listing is the read-side projection of an available offer: the offer,
// its unit, and the donor, with derived fields computed at read time.
type Listing struct {
	Offer               Offer               `json:"offer"`
	Unit                inventory.BloodUnit `json:"unit"`
	Donor               hospital.Hospital   `json:"donor"`
	DaysToExpiry        int                 `json:"days_to_expiry"`
	EstimatedDistanceKm int                 `json:"estimated_distance_km,omitempty"`
}

// OfferPublishedEvent records an offer entering the pool.
type OfferPublishedEvent struct {
	OfferID          uuid.UUID `json:"offer_id"`
	UnitID           uuid.UUID `json:"unit_id"`
	UnitsOffered     int       `json:"units_offered"`
	IsCriticalExpiry bool      `json:"is_critical_expiry"`
}

// OfferAcceptedEvent records the transfer side of an acceptance.
type OfferAcceptedEvent struct {
	OfferID             uuid.UUID `json:"offer_id"`
	UnitID              uuid.UUID `json:"unit_id"`
	AcceptedByHospital  uuid.UUID `json:"accepted_by_hospital"`
}

// OfferCancelledEvent records a donor withdrawing an offer.
type OfferCancelledEvent struct {
	OfferID uuid.UUID `json:"offer_id"`
}
