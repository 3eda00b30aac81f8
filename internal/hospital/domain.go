// internal/hospital/domain.go
package hospital

import (
	"time"

	"github.com/google/uuid"
)

// Hospital is a participating node in the exchange network.
type Hospital struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	District  string    `json:"district,omitempty"`
	Region    string    `json:"region,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
