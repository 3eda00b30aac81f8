// internal/donation/service.go
package donation

import (
	"context"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Store is the persistence contract for donation offers.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOffer(ctx context.Context, id uuid.UUID) (Offer, error)
	GetOfferForUpdate(ctx context.Context, id uuid.UUID) (Offer, error)
	FindActiveOfferByUnit(ctx context.Context, unitID uuid.UUID) (*Offer, error)
	InsertOffer(ctx context.Context, o Offer) error
	UpdateOffer(ctx context.Context, o Offer) error
	ListAvailable(ctx context.Context, f ListFilter) ([]Listing, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]Offer, error)
}

// ListFilter narrows the available-donations projection.
type ListFilter struct {
	BloodType          *blood.Type
	Component          *blood.Component
	Region             string
	ExcludeHospitalID  *uuid.UUID
}

// SortKey orders listings.
type SortKey string

const (
	SortByExpiry   SortKey = "expiry_date"
	SortByCreated  SortKey = "created_at"
	SortByDistance SortKey = "distance"
)

// PublishInput offers one or more units for donation.
type PublishInput struct {
	UnitIDs []uuid.UUID
	Reason  string
	Notes   string
}

// PublishResult reports how many offers were created; units already
// offered are skipped, not errors.
type PublishResult struct {
	ScheduledCount int         `json:"scheduled_count"`
	OfferIDs       []uuid.UUID `json:"offer_ids"`
}

// Service is the donation matching workflow.
type Service interface {
	Publish(ctx context.Context, caller authz.Caller, in PublishInput) (*PublishResult, error)
	Accept(ctx context.Context, caller authz.Caller, offerID uuid.UUID) error
	Cancel(ctx context.Context, caller authz.Caller, offerID uuid.UUID) error
	ListAvailable(ctx context.Context, caller authz.Caller, f ListFilter, sortBy SortKey) ([]Listing, error)
	MySchedules(ctx context.Context, caller authz.Caller) ([]Offer, error)
}
