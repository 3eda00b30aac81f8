// internal/exchange/implementation.go
package exchange

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
	"github.com/RichKitibwa/BloodLink/internal/notify"
)

const (
	requestAggregate  = "exchange_request"
	responseAggregate = "exchange_response"
)

// service implements the Service interface.
type service struct {
	store     Store
	hospitals hospital.Directory
	log       eventlog.Log
	emitter   notify.Emitter
	clock     clock.Clock
}

// NewService creates the exchange negotiation service.
func NewService(store Store, hospitals hospital.Directory, log eventlog.Log, emitter notify.Emitter, clk clock.Clock) Service {
	return &service{
		store:     store,
		hospitals: hospitals,
		log:       log,
		emitter:   emitter,
		clock:     clk,
	}
}

func (s *service) Create(ctx context.Context, caller authz.Caller, in CreateInput) (*Request, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	if !in.BloodType.Valid() {
		return nil, fmt.Errorf("unknown blood type %q: %w", in.BloodType, blood.ErrValidation)
	}
	if !in.Component.Valid() {
		return nil, fmt.Errorf("unknown component %q: %w", in.Component, blood.ErrValidation)
	}
	if in.UnitsRequested <= 0 {
		return nil, fmt.Errorf("units requested must be positive: %w", blood.ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = blood.PriorityNormal
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q: %w", in.Priority, blood.ErrValidation)
	}

	if in.TargetHospitalID != nil {
		if *in.TargetHospitalID == caller.HospitalID {
			return nil, fmt.Errorf("cannot request blood from your own hospital: %w", blood.ErrValidation)
		}
		target, err := s.hospitals.Get(ctx, *in.TargetHospitalID)
		if err != nil {
			return nil, err
		}
		if !target.IsActive {
			return nil, fmt.Errorf("target hospital is inactive: %w", blood.ErrValidation)
		}
	}

	now := s.clock.Now()
	req := Request{
		ID:                   uuid.New(),
		RequestingHospitalID: caller.HospitalID,
		TargetHospitalID:     in.TargetHospitalID,
		CreatedByUserID:      caller.UserID,
		BloodType:            in.BloodType,
		Component:            in.Component,
		UnitsRequested:       in.UnitsRequested,
		Priority:             in.Priority,
		Status:               blood.StatusPending,
		Reason:               in.Reason,
		PatientDetails:       in.PatientDetails,
		UrgencyNotes:         in.UrgencyNotes,
		ExpectedUseDate:      in.ExpectedUseDate,
		CreatedAt:            now,
		UpdatedAt:            now,
		Version:              1,
	}

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.InsertRequest(txCtx, req); err != nil {
			return err
		}
		return s.log.Append(txCtx, req.ID, requestAggregate, 0, "RequestCreated", RequestCreatedEvent{
			RequestID: req.ID,
			Target:    req.TargetHospitalID,
			BloodType: req.BloodType,
			Component: req.Component,
			Units:     req.UnitsRequested,
			Priority:  req.Priority,
		})
	})
	if err != nil {
		return nil, err
	}

	severity := notify.SeverityInfo
	title := "Blood Request"
	if req.Priority.Urgent() {
		severity = notify.SeverityCritical
		title = "URGENT Blood Request"
	}
	s.emitter.Emit(ctx, notify.Event{
		Title:               title,
		Message:             fmt.Sprintf("%s is requesting %d units of %s %s", s.hospitalName(ctx, caller.HospitalID), req.UnitsRequested, req.BloodType, req.Component),
		Severity:            severity,
		RecipientHospitalID: req.TargetHospitalID,
		ActionRef:           fmt.Sprintf("/requests/%s", req.ID),
	})
	return &req, nil
}

func (s *service) Get(ctx context.Context, caller authz.Caller, requestID uuid.UUID) (*Request, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.VisibleTo(caller.HospitalID) && !caller.Privileged() {
		return nil, fmt.Errorf("request not visible to caller: %w", blood.ErrForbidden)
	}
	return &req, nil
}

func (s *service) List(ctx context.Context, caller authz.Caller, f ListFilter) ([]Request, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	f.HospitalID = caller.HospitalID
	if !f.ShowIncoming && !f.ShowOutgoing {
		return nil, nil
	}
	return s.store.ListRequests(ctx, f)
}

func (s *service) Pending(ctx context.Context, caller authz.Caller) ([]Request, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	pending := blood.StatusPending
	return s.store.ListRequests(ctx, ListFilter{
		HospitalID:   caller.HospitalID,
		ShowIncoming: true,
		Status:       &pending,
	})
}

func (s *service) Respond(ctx context.Context, caller authz.Caller, requestID uuid.UUID, in RespondInput) (*Response, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	if in.UnitsOffered <= 0 {
		return nil, fmt.Errorf("units offered must be positive: %w", blood.ErrValidation)
	}

	var (
		resp      Response
		requester uuid.UUID
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.store.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Status != blood.StatusPending {
			return fmt.Errorf("request is not pending: %w", blood.ErrInvalidState)
		}
		if req.RequestingHospitalID == caller.HospitalID {
			return fmt.Errorf("cannot respond to your own request: %w", blood.ErrValidation)
		}
		existing, err := s.store.FindResponseByHospital(txCtx, requestID, caller.HospitalID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("hospital already responded to this request: %w", blood.ErrConflict)
		}

		resp = Response{
			ID:                    uuid.New(),
			RequestID:             requestID,
			RespondingHospitalID:  caller.HospitalID,
			RespondingUserID:      caller.UserID,
			UnitsOffered:          in.UnitsOffered,
			Message:               in.Message,
			EstimatedAvailability: in.EstimatedAvailability,
			Status:                ResponseOffered,
			CreatedAt:             s.clock.Now(),
		}
		if err := s.store.InsertResponse(txCtx, resp); err != nil {
			return err
		}
		requester = req.RequestingHospitalID
		return s.log.Append(txCtx, resp.ID, responseAggregate, 0, "ResponseOffered", ResponseOfferedEvent{
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
		Title:               "Response to Blood Request",
		Message:             fmt.Sprintf("%s can provide %d units", s.hospitalName(ctx, caller.HospitalID), resp.UnitsOffered),
		Severity:            notify.SeveritySuccess,
		RecipientHospitalID: &requester,
		ActionRef:           fmt.Sprintf("/requests/%s", requestID),
	})
	return &resp, nil
}

func (s *service) Responses(ctx context.Context, caller authz.Caller, requestID uuid.UUID) ([]Response, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequestingHospitalID != caller.HospitalID {
		return nil, fmt.Errorf("only the requesting hospital can view responses: %w", blood.ErrForbidden)
	}
	return s.store.ListResponses(ctx, requestID)
}

// AcceptResponse marks one competing response ACCEPTED and moves the
// request to APPROVED. Inventory is untouched here: the requester follows
// up with a ledger allocation once units physically move.
func (s *service) AcceptResponse(ctx context.Context, caller authz.Caller, requestID, responseID uuid.UUID) error {
	if err := authz.RequireHospital(caller); err != nil {
		return err
	}

	var responder uuid.UUID
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.store.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.RequestingHospitalID != caller.HospitalID {
			return fmt.Errorf("only the requesting hospital may accept: %w", blood.ErrForbidden)
		}
		if req.Status != blood.StatusPending {
			return fmt.Errorf("request is not pending: %w", blood.ErrInvalidState)
		}
		resp, err := s.store.GetResponse(txCtx, requestID, responseID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		resp.Status = ResponseAccepted
		resp.AcceptedAt = &now
		if err := s.store.UpdateResponse(txCtx, resp); err != nil {
			return err
		}

		prev := req.Status
		req.Status = blood.StatusApproved
		req.ApprovedByUserID = &caller.UserID
		req.ApprovedAt = &now
		req.UpdatedAt = now
		req.Version++
		if err := s.store.UpdateRequest(txCtx, req); err != nil {
			return err
		}
		responder = resp.RespondingHospitalID
		return s.log.Append(txCtx, req.ID, requestAggregate, req.Version-1, "RequestApproved", RequestStatusChangedEvent{
			RequestID: req.ID,
			From:      prev,
			To:        req.Status,
		})
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, notify.Event{
		Title:               "Blood Request Response Accepted",
		Message:             fmt.Sprintf("%s has accepted your offer", s.hospitalName(ctx, caller.HospitalID)),
		Severity:            notify.SeveritySuccess,
		RecipientHospitalID: &responder,
		ActionRef:           fmt.Sprintf("/requests/%s", requestID),
	})
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, caller authz.Caller, requestID uuid.UUID, status blood.RequestStatus, rejectionReason string) (*Request, error) {
	if err := authz.RequireHospital(caller); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, blood.ErrValidation)
	}
	if status == blood.StatusRejected && rejectionReason == "" {
		return nil, fmt.Errorf("rejection requires a reason: %w", blood.ErrValidation)
	}

	var updated Request
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.store.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if !s.canUpdate(caller, req) {
			return fmt.Errorf("caller may not update this request: %w", blood.ErrForbidden)
		}
		if status == blood.StatusCancelled && req.RequestingHospitalID != caller.HospitalID {
			return fmt.Errorf("only the requester may cancel: %w", blood.ErrForbidden)
		}
		if !req.Status.CanTransition(status) {
			return fmt.Errorf("cannot move %s request to %s: %w", req.Status, status, blood.ErrInvalidState)
		}

		now := s.clock.Now()
		prev := req.Status
		req.Status = status
		req.UpdatedAt = now
		switch status {
		case blood.StatusApproved:
			req.ApprovedByUserID = &caller.UserID
			req.ApprovedAt = &now
		case blood.StatusFulfilled:
			req.FulfilledAt = &now
		case blood.StatusRejected:
			req.RejectionReason = rejectionReason
		}
		req.Version++
		if err := s.store.UpdateRequest(txCtx, req); err != nil {
			return err
		}
		if err := s.log.Append(txCtx, req.ID, requestAggregate, req.Version-1, "RequestStatusChanged", RequestStatusChangedEvent{
			RequestID: req.ID,
			From:      prev,
			To:        status,
			Reason:    rejectionReason,
		}); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if caller.HospitalID != updated.RequestingHospitalID {
		requester := updated.RequestingHospitalID
		s.emitter.Emit(ctx, notify.Event{
			Title:               fmt.Sprintf("Blood Request %s", statusTitle(status)),
			Message:             fmt.Sprintf("Your request for %d units of %s is now %s", updated.UnitsRequested, updated.BloodType, status),
			Severity:            statusSeverity(status),
			RecipientHospitalID: &requester,
			ActionRef:           fmt.Sprintf("/requests/%s", updated.ID),
		})
	}
	return &updated, nil
}

func (s *service) Cancel(ctx context.Context, caller authz.Caller, requestID uuid.UUID) error {
	if err := authz.RequireHospital(caller); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.store.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.RequestingHospitalID != caller.HospitalID {
			return fmt.Errorf("only the requester may cancel: %w", blood.ErrForbidden)
		}
		if req.Status != blood.StatusPending {
			return fmt.Errorf("only pending requests can be cancelled: %w", blood.ErrInvalidState)
		}

		now := s.clock.Now()
		prev := req.Status
		req.Status = blood.StatusCancelled
		req.UpdatedAt = now
		req.Version++
		if err := s.store.UpdateRequest(txCtx, req); err != nil {
			return err
		}
		return s.log.Append(txCtx, req.ID, requestAggregate, req.Version-1, "RequestCancelled", RequestStatusChangedEvent{
			RequestID: req.ID,
			From:      prev,
			To:        blood.StatusCancelled,
		})
	})
}

func (s *service) canUpdate(caller authz.Caller, req Request) bool {
	if caller.Privileged() {
		return true
	}
	if req.RequestingHospitalID == caller.HospitalID {
		return true
	}
	return req.TargetHospitalID != nil && *req.TargetHospitalID == caller.HospitalID
}

func (s *service) hospitalName(ctx context.Context, id uuid.UUID) string {
	h, err := s.hospitals.Get(ctx, id)
	if err != nil {
		return "A hospital"
	}
	return h.Name
}

func statusTitle(s blood.RequestStatus) string {
	switch s {
	case blood.StatusApproved:
		return "Approved"
	case blood.StatusFulfilled:
		return "Fulfilled"
	case blood.StatusRejected:
		return "Rejected"
	case blood.StatusCancelled:
		return "Cancelled"
	}
	return "Updated"
}

func statusSeverity(s blood.RequestStatus) notify.Severity {
	if s == blood.StatusRejected {
		return notify.SeverityWarning
	}
	return notify.SeveritySuccess
}
