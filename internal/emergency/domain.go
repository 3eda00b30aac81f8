// internal/emergency/domain.go
package emergency

import (
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Request is a deadline-bounded broadcast for units. Activity is decided
// at read time: a request past its deadline is inactive even if the stored
// flag has not been swept.
type Request struct {
	ID               uuid.UUID       `json:"id"`
	HospitalID       uuid.UUID       `json:"hospital_id"`
	CreatedByUserID  uuid.UUID       `json:"created_by_user_id"`
	BloodType        blood.Type      `json:"blood_type"`
	Component        blood.Component `json:"component"`
	UnitsNeeded      int             `json:"units_needed"`
	PatientCondition string          `json:"patient_condition"`
	ContactPerson    string          `json:"contact_person"`
	ContactPhone     string          `json:"contact_phone"`
	IsActive         bool            `json:"is_active"`
	ResponseDeadline time.Time       `json:"response_deadline"`
	CreatedAt        time.Time       `json:"created_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	Version          int             `json:"version"`
}

// ActiveAt reports whether the request can still receive responses.
func (r Request) ActiveAt(now time.Time) bool {
	return r.IsActive && r.ResponseDeadline.After(now)
}

// Response is one hospital's answer to an emergency. Responses never
// mutate the request; any hospital may act on one out-of-band.
type Response struct {
	ID                    uuid.UUID  `json:"id"`
	RequestID             uuid.UUID  `json:"request_id"`
	RespondingHospitalID  uuid.UUID  `json:"responding_hospital_id"`
	UnitsOffered          int        `json:"units_offered"`
	Message               string     `json:"message,omitempty"`
	ContactPerson         string     `json:"contact_person"`
	ContactPhone          string     `json:"contact_phone"`
	EstimatedAvailability *time.Time `json:"estimated_availability,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// BroadcastEvent records an emergency going out to all hospitals.
type BroadcastEvent struct {
	RequestID        uuid.UUID `json:"request_id"`
	UnitsNeeded      int       `json:"units_needed"`
	ResponseDeadline time.Time `json:"response_deadline"`
}

// RespondedEvent records one hospital answering an emergency.
type RespondedEvent struct {
	RequestID            uuid.UUID `json:"request_id"`
	ResponseID           uuid.UUID `json:"response_id"`
	RespondingHospitalID uuid.UUID `json:"responding_hospital_id"`
	UnitsOffered         int       `json:"units_offered"`
}
