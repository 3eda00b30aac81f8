// internal/storage/postgres/event_log.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/eventlog"
)

// EventLog appends transition records with an optimistic version guard.
// The unique index on (aggregate_id, version) turns a lost race into
// eventlog.ErrConcurrencyConflict instead of a duplicate entry.
type EventLog struct {
	db  *sql.DB
	clk clock.Clock
}

func NewEventLog(db *sql.DB, clk clock.Clock) *EventLog {
	return &EventLog{db: db, clk: clk}
}

func (l *EventLog) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	query := `
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = execContext(ctx, l.db, query,
		aggregateID, aggregateType, eventType, data, expectedVersion+1, l.clk.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("aggregate %s at version %d: %w", aggregateID, expectedVersion, eventlog.ErrConcurrencyConflict)
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (l *EventLog) Load(ctx context.Context, aggregateID uuid.UUID) ([]eventlog.Entry, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, version, created_at
		FROM events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`
	rows, err := queryContext(ctx, l.db, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var entries []eventlog.Entry
	for rows.Next() {
		var e eventlog.Entry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.EventData, &e.Version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
