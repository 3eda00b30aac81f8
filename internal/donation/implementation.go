// internal/donation/implementation.go
package donation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
	"github.com/RichKitibwa/BloodLink/internal/notify"
)

const aggregateType = "donation_offer"

// service implements the Service interface. All inventory mutation goes
// through the ledger; the nested ledger calls join this service's
// transaction via the context.
type service struct {
	store          Store
	ledger         inventory.Service
	hospitals      hospital.Directory
	distance       hospital.DistanceEstimator
	log            eventlog.Log
	emitter        notify.Emitter
	clock          clock.Clock
	criticalWindow time.Duration
}

// NewService creates the donation matching service.
func NewService(store Store, ledger inventory.Service, hospitals hospital.Directory, distance hospital.DistanceEstimator, log eventlog.Log, emitter notify.Emitter, clk clock.Clock, criticalWindow time.Duration) Service {
	return &service{
		store:          store,
		ledger:         ledger,
		hospitals:      hospitals,
		distance:       distance,
		log:            log,
		emitter:        emitter,
		clock:          clk,
		criticalWindow: criticalWindow,
	}
}

func (s *service) Publish(ctx context.Context, caller authz.Caller, in PublishInput) (*PublishResult, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	if len(in.UnitIDs) == 0 {
		return nil, fmt.Errorf("no units given: %w", blood.ErrValidation)
	}

	now := s.clock.Now()
	criticalThreshold := now.Add(s.criticalWindow)
	result := &PublishResult{}

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		for _, unitID := range in.UnitIDs {
			unit, err := s.ledger.Get(txCtx, unitID)
			if err != nil {
				return err
			}
			if unit.HospitalID != nil && !unit.OwnedBy(caller.HospitalID) {
				return fmt.Errorf("batch %s belongs to another hospital: %w", unit.BatchNumber, blood.ErrForbidden)
			}
			if unit.ExpiredAt(now) {
				return fmt.Errorf("cannot offer expired batch %s: %w", unit.BatchNumber, blood.ErrExpired)
			}

			// Re-publishing an already offered unit is skipped, not an error.
			existing, err := s.store.FindActiveOfferByUnit(txCtx, unitID)
			if err != nil {
				return err
			}
			if existing != nil && existing.Status == StatusAvailable {
				continue
			}
			if unit.IsReserved {
				return fmt.Errorf("batch %s is reserved: %w", unit.BatchNumber, blood.ErrConflict)
			}

			if unit.HospitalID == nil {
				if err := s.ledger.AssignOwner(txCtx, unitID, caller.HospitalID); err != nil {
					return err
				}
			}

			isCritical := !unit.ExpiryDate.After(criticalThreshold)
			reason := in.Reason
			if reason == "" {
				if isCritical {
					reason = "Critical Expiry"
				} else {
					reason = "Available for Transfer"
				}
			}

			offer := Offer{
				ID:                 uuid.New(),
				UnitID:             unitID,
				DonatingHospitalID: caller.HospitalID,
				UnitsOffered:       unit.UnitsAvailable,
				Reason:             reason,
				Notes:              in.Notes,
				IsCriticalExpiry:   isCritical,
				Status:             StatusAvailable,
				IsActive:           true,
				CreatedByUserID:    caller.UserID,
				ExpiresAt:          unit.ExpiryDate,
				CreatedAt:          now,
				Version:            1,
			}
			if err := s.store.InsertOffer(txCtx, offer); err != nil {
				return err
			}
			if err := s.log.Append(txCtx, offer.ID, aggregateType, 0, "OfferPublished", OfferPublishedEvent{
				OfferID:          offer.ID,
				UnitID:           unitID,
				UnitsOffered:     offer.UnitsOffered,
				IsCriticalExpiry: isCritical,
			}); err != nil {
				return err
			}
			if err := s.ledger.Reserve(txCtx, unitID, unit.UnitsAvailable, &offer.ID); err != nil {
				return err
			}

			result.ScheduledCount++
			result.OfferIDs = append(result.OfferIDs, offer.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.ScheduledCount > 0 {
		donor, derr := s.hospitals.Get(ctx, caller.HospitalID)
		name := "A hospital"
		if derr == nil {
			name = donor.Name
		}
		s.emitter.Emit(ctx, notify.Event{
			Title:    "Blood Units Available for Donation",
			Message:  fmt.Sprintf("%s has scheduled %d blood unit(s) for donation", name, result.ScheduledCount),
			Severity: notify.SeverityInfo,
		})
	}
	return result, nil
}

func (s *service) Accept(ctx context.Context, caller authz.Caller, offerID uuid.UUID) error {
	if err := authz.RequireHospital(caller); err != nil {
		return err
	}

	var accepted Offer
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		offer, err := s.store.GetOfferForUpdate(txCtx, offerID)
		if err != nil {
			return err
		}
		if !offer.IsActive || offer.Status != StatusAvailable {
			return fmt.Errorf("donation no longer available: %w", blood.ErrInvalidState)
		}
		if offer.DonatingHospitalID == caller.HospitalID {
			return fmt.Errorf("cannot accept your own donation: %w", blood.ErrValidation)
		}

		now := s.clock.Now()
		offer.Status = StatusAccepted
		offer.AcceptedByHospitalID = &caller.HospitalID
		offer.AcceptedAt = &now
		offer.IsActive = false
		offer.Version++
		if err := s.store.UpdateOffer(txCtx, offer); err != nil {
			return err
		}
		if err := s.log.Append(txCtx, offer.ID, aggregateType, offer.Version-1, "OfferAccepted", OfferAcceptedEvent{
			OfferID:            offer.ID,
			UnitID:             offer.UnitID,
			AcceptedByHospital: caller.HospitalID,
		}); err != nil {
			return err
		}
		if err := s.ledger.Transfer(txCtx, offer.UnitID, caller.HospitalID); err != nil {
			return err
		}
		accepted = offer
		return nil
	})
	if err != nil {
		return err
	}

	acceptor, derr := s.hospitals.Get(ctx, caller.HospitalID)
	name := "A hospital"
	if derr == nil {
		name = acceptor.Name
	}
	donorID := accepted.DonatingHospitalID
	s.emitter.Emit(ctx, notify.Event{
		Title:               "Donation Accepted",
		Message:             fmt.Sprintf("%s has accepted your blood donation", name),
		Severity:            notify.SeveritySuccess,
		RecipientHospitalID: &donorID,
		ActionRef:           fmt.Sprintf("/donations/%s", accepted.ID),
	})
	return nil
}

func (s *service) Cancel(ctx context.Context, caller authz.Caller, offerID uuid.UUID) error {
	if err := authz.RequireHospital(caller); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		offer, err := s.store.GetOfferForUpdate(txCtx, offerID)
		if err != nil {
			return err
		}
		if offer.DonatingHospitalID != caller.HospitalID {
			return fmt.Errorf("only the donating hospital may cancel: %w", blood.ErrForbidden)
		}
		if offer.Status == StatusAccepted {
			return fmt.Errorf("cannot cancel an accepted donation: %w", blood.ErrInvalidState)
		}

		offer.Status = StatusCancelled
		offer.IsActive = false
		offer.Version++
		if err := s.store.UpdateOffer(txCtx, offer); err != nil {
			return err
		}
		if err := s.log.Append(txCtx, offer.ID, aggregateType, offer.Version-1, "OfferCancelled", OfferCancelledEvent{OfferID: offer.ID}); err != nil {
			return err
		}
		return s.ledger.Release(txCtx, offer.UnitID)
	})
}

func (s *service) ListAvailable(ctx context.Context, caller authz.Caller, f ListFilter, sortBy SortKey) ([]Listing, error) {
	if f.ExcludeHospitalID == nil && caller.Affiliated() {
		id := caller.HospitalID
		f.ExcludeHospitalID = &id
	}
	listings, err := s.store.ListAvailable(ctx, f)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var own *hospital.Hospital
	if caller.Affiliated() {
		if h, err := s.hospitals.Get(ctx, caller.HospitalID); err == nil {
			own = &h
		}
	}
	for i := range listings {
		listings[i].DaysToExpiry = int(listings[i].Unit.ExpiryDate.Sub(now).Hours() / 24)
		if own != nil {
			listings[i].EstimatedDistanceKm = s.distance.EstimateKm(*own, listings[i].Donor)
		}
	}

	switch sortBy {
	case SortByCreated:
		sort.Slice(listings, func(i, j int) bool {
			return listings[i].Offer.CreatedAt.After(listings[j].Offer.CreatedAt)
		})
	case SortByDistance:
		sort.Slice(listings, func(i, j int) bool {
			return listings[i].EstimatedDistanceKm < listings[j].EstimatedDistanceKm
		})
	default:
		sort.Slice(listings, func(i, j int) bool {
			return listings[i].Unit.ExpiryDate.Before(listings[j].Unit.ExpiryDate)
		})
	}
	return listings, nil
}

func (s *service) MySchedules(ctx context.Context, caller authz.Caller) ([]Offer, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	return s.store.ListByHospital(ctx, caller.HospitalID)
}
