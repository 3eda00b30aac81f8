// internal/exchange/domain.go
package exchange

import (
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Request asks another hospital (or all, when TargetHospitalID is nil) for
// units. Status follows blood.RequestStatus: PENDING is the only state
// CANCELLED is reachable from, and the terminal set is
// {FULFILLED, REJECTED, CANCELLED}.
type Request struct {
	ID                   uuid.UUID           `json:"id"`
	RequestingHospitalID uuid.UUID           `json:"requesting_hospital_id"`
	TargetHospitalID     *uuid.UUID          `json:"target_hospital_id,omitempty"`
	CreatedByUserID      uuid.UUID           `json:"created_by_user_id"`
	BloodType            blood.Type          `json:"blood_type"`
	Component            blood.Component     `json:"component"`
	UnitsRequested       int                 `json:"units_requested"`
	Priority             blood.Priority      `json:"priority"`
	Status               blood.RequestStatus `json:"status"`
	Reason               string              `json:"reason,omitempty"`
	PatientDetails       string              `json:"patient_details,omitempty"`
	UrgencyNotes         string              `json:"urgency_notes,omitempty"`
	ExpectedUseDate      *time.Time          `json:"expected_use_date,omitempty"`
	ApprovedByUserID     *uuid.UUID          `json:"approved_by_user_id,omitempty"`
	ApprovedAt           *time.Time          `json:"approved_at,omitempty"`
	FulfilledAt          *time.Time          `json:"fulfilled_at,omitempty"`
	RejectionReason      string              `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Version              int                 `json:"version"`
}

// Broadcast reports whether the request targets all hospitals.
func (r Request) Broadcast() bool {
	return r.TargetHospitalID == nil
}

// VisibleTo reports whether a hospital may read this request.
func (r Request) VisibleTo(hospitalID uuid.UUID) bool {
	if r.RequestingHospitalID == hospitalID || r.Broadcast() {
		return true
	}
	return *r.TargetHospitalID == hospitalID
}

// ResponseStatus is the offer-against-a-request lifecycle.
type ResponseStatus string

const (
	ResponseOffered  ResponseStatus = "OFFERED"
	ResponseAccepted ResponseStatus = "ACCEPTED"
	ResponseDeclined ResponseStatus = "DECLINED"
)

// Response is one hospital's offer against a request. At most one response
// exists per (request, responding hospital).
type Response struct {
	ID                    uuid.UUID      `json:"id"`
	RequestID             uuid.UUID      `json:"request_id"`
	RespondingHospitalID  uuid.UUID      `json:"responding_hospital_id"`
	RespondingUserID      uuid.UUID      `json:"responding_user_id"`
	UnitsOffered          int            `json:"units_offered"`
	Message               string         `json:"message,omitempty"`
	EstimatedAvailability *time.Time     `json:"estimated_availability,omitempty"`
	Status                ResponseStatus `json:"status"`
	AcceptedAt            *time.Time     `json:"accepted_at,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
}

// RequestCreatedEvent records a new request entering negotiation.
type RequestCreatedEvent struct {
	RequestID uuid.UUID       `json:"request_id"`
	Target    *uuid.UUID      `json:"target,omitempty"`
	BloodType blood.Type      `json:"blood_type"`
	Component blood.Component `json:"component"`
	Units     int             `json:"units"`
	Priority  blood.Priority  `json:"priority"`
}

// ResponseOfferedEvent records a hospital responding to a request.
type ResponseOfferedEvent struct {
	RequestID            uuid.UUID `json:"request_id"`
	ResponseID           uuid.UUID `json:"response_id"`
	RespondingHospitalID uuid.UUID `json:"responding_hospital_id"`
	UnitsOffered         int       `json:"units_offered"`
}

// RequestStatusChangedEvent records any request status transition.
type RequestStatusChangedEvent struct {
	RequestID uuid.UUID           `json:"request_id"`
	From      blood.RequestStatus `json:"from"`
	To        blood.RequestStatus `json:"to"`
	Reason    string              `json:"reason,omitempty"`
}
