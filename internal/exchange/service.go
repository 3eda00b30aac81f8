// internal/exchange/service.go
package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Store is the persistence contract for exchange negotiation.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	GetRequestForUpdate(ctx context.Context, id uuid.UUID) (Request, error)
	InsertRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error
	ListRequests(ctx context.Context, f ListFilter) ([]Request, error)
	FindResponseByHospital(ctx context.Context, requestID, hospitalID uuid.UUID) (*Response, error)
	GetResponse(ctx context.Context, requestID, responseID uuid.UUID) (Response, error)
	InsertResponse(ctx context.Context, r Response) error
	UpdateResponse(ctx context.Context, r Response) error
	ListResponses(ctx context.Context, requestID uuid.UUID) ([]Response, error)
}

// ListFilter narrows request listings for one hospital's view.
type ListFilter struct {
	HospitalID   uuid.UUID
	ShowIncoming bool
	ShowOutgoing bool
	Status       *blood.RequestStatus
	Priority     *blood.Priority
	BloodType    *blood.Type
}

// CreateInput describes a new exchange request.
type CreateInput struct {
	TargetHospitalID *uuid.UUID
	BloodType        blood.Type
	Component        blood.Component
	UnitsRequested   int
	Priority         blood.Priority
	Reason           string
	PatientDetails   string
	UrgencyNotes     string
	ExpectedUseDate  *time.Time
}

// RespondInput is one hospital's offer against a request.
type RespondInput struct {
	UnitsOffered          int
	Message               string
	EstimatedAvailability *time.Time
}

// Service is the exchange negotiation workflow. Accepting a response moves
// the request to APPROVED but does not move inventory; the follow-up
// allocation goes through the ledger separately.
type Service interface {
	Create(ctx context.Context, caller authz.Caller, in CreateInput) (*Request, error)
	Get(ctx context.Context, caller authz.Caller, requestID uuid.UUID) (*Request, error)
	List(ctx context.Context, caller authz.Caller, f ListFilter) ([]Request, error)
	Pending(ctx context.Context, caller authz.Caller) ([]Request, error)
	Respond(ctx context.Context, caller authz.Caller, requestID uuid.UUID, in RespondInput) (*Response, error)
	Responses(ctx context.Context, caller authz.Caller, requestID uuid.UUID) ([]Response, error)
	AcceptResponse(ctx context.Context, caller authz.Caller, requestID, responseID uuid.UUID) error
	UpdateStatus(ctx context.Context, caller authz.Caller, requestID uuid.UUID, status blood.RequestStatus, rejectionReason string) (*Request, error)
	Cancel(ctx context.Context, caller authz.Caller, requestID uuid.UUID) error
}
