// internal/emergency/implementation.go
package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/notify"
)

const (
	requestAggregate  = "emergency_request"
	responseAggregate = "emergency_response"
)

// service implements the Service interface.
type service struct {
	store       Store
	hospitals   hospital.Directory
	log         eventlog.Log
	emitter     notify.Emitter
	clock       clock.Clock
	rateLimiter *rate.Limiter
}

// NewService creates the emergency matcher. ratePerMinute caps broadcast
// creation so a misbehaving client cannot flood every hospital.
func NewService(store Store, hospitals hospital.Directory, log eventlog.Log, emitter notify.Emitter, clk clock.Clock, ratePerMinute int) Service {
	return &service{
		store:       store,
		hospitals:   hospitals,
		log:         log,
		emitter:     emitter,
		clock:       clk,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute), ratePerMinute),
	}
}

func (s *service) Create(ctx context.Context, caller authz.Caller, in CreateInput) (*Request, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("emergency broadcast: %w", blood.ErrRateLimited)
	}
	if !in.BloodType.Valid() {
		return nil, fmt.Errorf("unknown blood type %q: %w", in.BloodType, blood.ErrValidation)
	}
	if !in.Component.Valid() {
		return nil, fmt.Errorf("unknown component %q: %w", in.Component, blood.ErrValidation)
	}
	if in.UnitsNeeded <= 0 {
		return nil, fmt.Errorf("units needed must be positive: %w", blood.ErrValidation)
	}
	if in.PatientCondition == "" || in.ContactPerson == "" || in.ContactPhone == "" {
		return nil, fmt.Errorf("patient condition and contact details required: %w", blood.ErrValidation)
	}
	now := s.clock.Now()
	if !in.ResponseDeadline.After(now) {
		return nil, fmt.Errorf("response deadline must be in the future: %w", blood.ErrValidation)
	}

	req := Request{
		ID:               uuid.New(),
		HospitalID:       caller.HospitalID,
		CreatedByUserID:  caller.UserID,
		BloodType:        in.BloodType,
		Component:        in.Component,
		UnitsNeeded:      in.UnitsNeeded,
		PatientCondition: in.PatientCondition,
		ContactPerson:    in.ContactPerson,
		ContactPhone:     in.ContactPhone,
		IsActive:         true,
		ResponseDeadline: in.ResponseDeadline.UTC(),
		CreatedAt:        now,
		Version:          1,
	}

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.InsertRequest(txCtx, req); err != nil {
			return err
		}
		return s.log.Append(txCtx, req.ID, requestAggregate, 0, "EmergencyBroadcast", BroadcastEvent{
			RequestID:        req.ID,
			UnitsNeeded:      req.UnitsNeeded,
			ResponseDeadline: req.ResponseDeadline,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, notify.Event{
		Title:     "EMERGENCY BLOOD REQUEST",
		Message:   fmt.Sprintf("URGENT: %s needs %d units of %s %s. Patient condition: %s. Contact: %s (%s)", s.hospitalName(ctx, caller.HospitalID), req.UnitsNeeded, req.BloodType, req.Component, req.PatientCondition, req.ContactPerson, req.ContactPhone),
		Severity:  notify.SeverityCritical,
		ActionRef: fmt.Sprintf("/emergency/%s", req.ID),
	})
	return &req, nil
}

func (s *service) Respond(ctx context.Context, caller authz.Caller, requestID uuid.UUID, in RespondInput) (*Response, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	if in.UnitsOffered <= 0 {
		return nil, fmt.Errorf("units offered must be positive: %w", blood.ErrValidation)
	}
	if in.ContactPerson == "" || in.ContactPhone == "" {
		return nil, fmt.Errorf("contact details required: %w", blood.ErrValidation)
	}

	var (
		resp      Response
		requester uuid.UUID
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.store.GetRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if !req.ActiveAt(s.clock.Now()) {
			return fmt.Errorf("emergency request is no longer active: %w", blood.ErrInvalidState)
		}

		resp = Response{
			ID:                    uuid.New(),
			RequestID:             requestID,
			RespondingHospitalID:  caller.HospitalID,
			UnitsOffered:          in.UnitsOffered,
			Message:               in.Message,
			ContactPerson:         in.ContactPerson,
			ContactPhone:          in.ContactPhone,
			EstimatedAvailability: in.EstimatedAvailability,
			CreatedAt:             s.clock.Now(),
		}
		if err := s.store.InsertResponse(txCtx, resp); err != nil {
			return err
		}
		requester = req.HospitalID
		return s.log.Append(txCtx, resp.ID, responseAggregate, 0, "EmergencyResponded", RespondedEvent{
			RequestID:            requestID,
			ResponseID:           resp.ID,
			RespondingHospitalID: caller.HospitalID,
			UnitsOffered:         in.UnitsOffered,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, notify.Event{
		Title:               "Emergency Response Received",
		Message:             fmt.Sprintf("%s can provide %d units. Contact: %s (%s)", s.hospitalName(ctx, caller.HospitalID), resp.UnitsOffered, resp.ContactPerson, resp.ContactPhone),
		Severity:            notify.SeverityCritical,
		RecipientHospitalID: &requester,
		ActionRef:           fmt.Sprintf("/emergency/%s/responses", requestID),
	})
	return &resp, nil
}

// ListActive excludes requests past their deadline regardless of the
// stored is_active flag.
func (s *service) ListActive(ctx context.Context) ([]Request, error) {
	return s.store.ListActive(ctx, s.clock.Now())
}

func (s *service) Responses(ctx context.Context, caller authz.Caller, requestID uuid.UUID) ([]Response, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.HospitalID != caller.HospitalID && !caller.Privileged() {
		return nil, fmt.Errorf("only the requesting hospital can view responses: %w", blood.ErrForbidden)
	}
	return s.store.ListResponses(ctx, requestID)
}

// Deactivate sweeps the stored flag for requests past their deadline.
// Correctness never depends on this running; reads filter by deadline.
func (s *service) Deactivate(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		n, err = s.store.DeactivateExpired(txCtx, now.UTC())
		return err
	})
	return n, err
}

func (s *service) hospitalName(ctx context.Context, id uuid.UUID) string {
	h, err := s.hospitals.Get(ctx, id)
	if err != nil {
		return "A hospital"
	}
	return h.Name
}
