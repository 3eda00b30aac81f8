// internal/storage/memory/eventlog.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
)

// EventLog is the in-memory transition log. The version uniqueness check
// mirrors the database's (aggregate_id, version) index.
type EventLog struct {
	db  *DB
	clk clock.Clock
}

func NewEventLog(db *DB, clk clock.Clock) *EventLog {
	return &EventLog{db: db, clk: clk}
}

func (l *EventLog) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	defer l.db.enter(ctx)()
	version := expectedVersion + 1
	for _, e := range l.db.state.events {
		if e.AggregateID == aggregateID && e.Version == version {
			return fmt.Errorf("aggregate %s at version %d: %w", aggregateID, expectedVersion, eventlog.ErrConcurrencyConflict)
		}
	}
	l.db.state.events = append(l.db.state.events, eventlog.Entry{
		ID:            int64(len(l.db.state.events) + 1),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventData:     data,
		Version:       version,
		CreatedAt:     l.clk.Now(),
	})
	return nil
}

func (l *EventLog) Load(ctx context.Context, aggregateID uuid.UUID) ([]eventlog.Entry, error) {
	defer l.db.enter(ctx)()
	var entries []eventlog.Entry
	for _, e := range l.db.state.events {
		if e.AggregateID == aggregateID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
