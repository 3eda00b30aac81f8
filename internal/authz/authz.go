// internal/authz/authz.go
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
)

// Role is the caller's function within a hospital or blood bank.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleHospitalStaff  Role = "hospital_staff"
	RoleBloodBankStaff Role = "blood_bank_staff"
	RoleViewer         Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHospitalStaff, RoleBloodBankStaff, RoleViewer:
		return true
	}
	return false
}

// Caller is the identity yielded by the external Authorization collaborator.
// HospitalID is uuid.Nil for callers with no hospital affiliation.
type Caller struct {
	UserID     uuid.UUID
	HospitalID uuid.UUID
	Role       Role
}

// Affiliated reports whether the caller belongs to a hospital.
func (c Caller) Affiliated() bool {
	return c.HospitalID != uuid.Nil
}

// Privileged reports whether the caller may act beyond their own hospital.
func (c Caller) Privileged() bool {
	return c.Role == RoleAdmin || c.Role == RoleBloodBankStaff
}

// RequireHospital rejects callers without a hospital affiliation from
// hospital-scoped operations.
func RequireHospital(c Caller) error {
	if !c.Affiliated() {
		return fmt.Errorf("caller has no hospital affiliation: %w", blood.ErrValidation)
	}
	return nil
}

// RequireRole checks the caller against an allowed role set.
func RequireRole(c Caller, roles ...Role) error {
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role %s not permitted: %w", c.Role, blood.ErrForbidden)
}

type callerKey struct{}

// WithCaller stores the authenticated caller on the request context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext retrieves the caller placed by the transport layer.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
