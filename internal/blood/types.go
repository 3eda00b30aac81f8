// internal/blood/types.go
package blood

import "fmt"

// Type is the ABO/Rh blood group of a unit.
type Type string

const (
	APositive  Type = "A+"
	ANegative  Type = "A-"
	BPositive  Type = "B+"
	BNegative  Type = "B-"
	ABPositive Type = "AB+"
	ABNegative Type = "AB-"
	OPositive  Type = "O+"
	ONegative  Type = "O-"
)

var types = map[Type]bool{
	APositive: true, ANegative: true,
	BPositive: true, BNegative: true,
	ABPositive: true, ABNegative: true,
	OPositive: true, ONegative: true,
}

func (t Type) Valid() bool {
	return types[t]
}

// ParseType validates a raw blood type string.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown blood type %q: %w", s, ErrValidation)
	}
	return t, nil
}

// Component is the processed blood product kind.
type Component string

const (
	WholeBlood         Component = "Whole Blood"
	PackedCells        Component = "Packed Cells"
	FreshFrozenPlasma  Component = "Fresh Frozen Plasma"
	Platelets          Component = "Platelets"
	Cryoprecipitate    Component = "Cryoprecipitate"
)

var components = map[Component]bool{
	WholeBlood: true, PackedCells: true, FreshFrozenPlasma: true,
	Platelets: true, Cryoprecipitate: true,
}

func (c Component) Valid() bool {
	return components[c]
}

// ParseComponent validates a raw component string.
func ParseComponent(s string) (Component, error) {
	c := Component(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown blood component %q: %w", s, ErrValidation)
	}
	return c, nil
}

// Priority orders requests and drives notification severity.
type Priority string

const (
	PriorityNormal       Priority = "normal"
	PriorityCritical     Priority = "critical"
	PriorityVeryCritical Priority = "very_critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityCritical, PriorityVeryCritical:
		return true
	}
	return false
}

// Urgent reports whether the priority escalates notifications to CRITICAL.
func (p Priority) Urgent() bool {
	return p == PriorityCritical || p == PriorityVeryCritical
}

// RequestStatus is shared by local orders and peer-to-peer exchange requests.
// PENDING is the only state with outgoing edges other than FULFILLED;
// FULFILLED, REJECTED and CANCELLED are terminal.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusFulfilled RequestStatus = "fulfilled"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFulfilled, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusFulfilled, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the request state machine:
// PENDING -> APPROVED | REJECTED | CANCELLED, APPROVED -> FULFILLED | REJECTED.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected || to == StatusCancelled
	case StatusApproved:
		return to == StatusFulfilled || to == StatusRejected
	}
	return false
}
