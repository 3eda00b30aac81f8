// internal/blood/errors.go
package blood

import "errors"

// Sentinel errors shared by the workflow components. Services wrap these
// with context via fmt.Errorf("...: %w", err); the transport layer maps
// them to status codes with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrConflict          = errors.New("conflicting concurrent operation")
	ErrInsufficientUnits = errors.New("insufficient units available")
	ErrExpired           = errors.New("blood unit has expired")
	ErrValidation        = errors.New("validation failed")
	ErrRateLimited       = errors.New("rate limit exceeded")
)
