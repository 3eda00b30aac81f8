// internal/eventlog/eventlog.go
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrConcurrencyConflict signals that another writer advanced the
	// aggregate past the expected version.
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
)

// Entry is one recorded state transition.
type Entry struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Log records exactly one entry per valid state transition, guarded by an
// optimistic version check on (aggregate_id, version). Append must join the
// transaction already open on ctx so that the transition and its entry
// commit or roll back together.
type Log interface {
	Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, eventType string, payload any) error
	Load(ctx context.Context, aggregateID uuid.UUID) ([]Entry, error)
}
