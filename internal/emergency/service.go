// internal/emergency/service.go
package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Store is the persistence contract for emergency broadcasts.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	InsertRequest(ctx context.Context, r Request) error
	ListActive(ctx context.Context, now time.Time) ([]Request, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
	InsertResponse(ctx context.Context, r Response) error
	ListResponses(ctx context.Context, requestID uuid.UUID) ([]Response, error)
}

// CreateInput describes an emergency broadcast.
type CreateInput struct {
	BloodType        blood.Type
	Component        blood.Component
	UnitsNeeded      int
	PatientCondition string
	ContactPerson    string
	ContactPhone     string
	ResponseDeadline time.Time
}

// RespondInput is one hospital's answer to an active emergency.
type RespondInput struct {
	UnitsOffered          int
	Message               string
	ContactPerson         string
	ContactPhone          string
	EstimatedAvailability *time.Time
}

// Service is the emergency broadcast matcher.
type Service interface {
	Create(ctx context.Context, caller authz.Caller, in CreateInput) (*Request, error)
	Respond(ctx context.Context, caller authz.Caller, requestID uuid.UUID, in RespondInput) (*Response, error)
	ListActive(ctx context.Context) ([]Request, error)
	Responses(ctx context.Context, caller authz.Caller, requestID uuid.UUID) ([]Response, error)
	Deactivate(ctx context.Context, now time.Time) (int, error)
}
