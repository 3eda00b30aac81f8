// internal/storage/memory/donation.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/donation"
)

// OfferStore is the in-memory donation store.
type OfferStore struct {
	db *DB
}

func NewOfferStore(db *DB) *OfferStore {
	return &OfferStore{db: db}
}

func (s *OfferStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.withTx(ctx, fn)
}

func (s *OfferStore) GetOffer(ctx context.Context, id uuid.UUID) (donation.Offer, error) {
	defer s.db.enter(ctx)()
	o, ok := s.db.state.offers[id]
	if !ok {
		return donation.Offer{}, fmt.Errorf("donation offer %s: %w", id, blood.ErrNotFound)
	}
	return o, nil
}

func (s *OfferStore) GetOfferForUpdate(ctx context.Context, id uuid.UUID) (donation.Offer, error) {
	return s.GetOffer(ctx, id)
}

func (s *OfferStore) FindActiveOfferByUnit(ctx context.Context, unitID uuid.UUID) (*donation.Offer, error) {
	defer s.db.enter(ctx)()
	for _, o := range s.db.state.offers {
		if o.UnitID == unitID && o.IsActive {
			offer := o
			return &offer, nil
		}
	}
	return nil, nil
}

func (s *OfferStore) InsertOffer(ctx context.Context, o donation.Offer) error {
	defer s.db.enter(ctx)()
	for _, existing := range s.db.state.offers {
		if existing.UnitID == o.UnitID && existing.IsActive && o.IsActive {
			return fmt.Errorf("unit already has an active offer: %w", blood.ErrConflict)
		}
	}
	s.db.state.offers[o.ID] = o
	return nil
}

func (s *OfferStore) UpdateOffer(ctx context.Context, o donation.Offer) error {
	defer s.db.enter(ctx)()
	existing, ok := s.db.state.offers[o.ID]
	if !ok || existing.Version != o.Version-1 {
		return fmt.Errorf("offer %s version mismatch: %w", o.ID, blood.ErrConflict)
	}
	s.db.state.offers[o.ID] = o
	return nil
}

func (s *OfferStore) ListAvailable(ctx context.Context, f donation.ListFilter) ([]donation.Listing, error) {
	defer s.db.enter(ctx)()
	var listings []donation.Listing
	for _, o := range s.db.state.offers {
		if !o.IsActive || o.Status != donation.StatusAvailable {
			continue
		}
		if f.ExcludeHospitalID != nil && o.DonatingHospitalID == *f.ExcludeHospitalID {
			continue
		}
		unit := s.db.state.units[o.UnitID]
		if f.BloodType != nil && unit.BloodType != *f.BloodType {
			continue
		}
		if f.Component != nil && unit.Component != *f.Component {
			continue
		}
		donor := s.db.state.hospitals[o.DonatingHospitalID]
		if f.Region != "" && !strings.Contains(strings.ToLower(donor.Region), strings.ToLower(f.Region)) {
			continue
		}
		listings = append(listings, donation.Listing{Offer: o, Unit: unit, Donor: donor})
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Offer.CreatedAt.Before(listings[j].Offer.CreatedAt)
	})
	return listings, nil
}

func (s *OfferStore) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]donation.Offer, error) {
	defer s.db.enter(ctx)()
	var offers []donation.Offer
	for _, o := range s.db.state.offers {
		if o.DonatingHospitalID == hospitalID {
			offers = append(offers, o)
		}
	}
	sort.Slice(offers, func(i, j int) bool {
		return offers[i].CreatedAt.After(offers[j].CreatedAt)
	})
	return offers, nil
}
