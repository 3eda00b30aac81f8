// internal/storage/postgres/notify_store.go
package postgres

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/notify"
)

// NotifyStore persists notifications for later delivery. Emit never fails
// the caller; a failed insert is logged and dropped.
type NotifyStore struct {
	db  *sql.DB
	clk clock.Clock
}

func NewNotifyStore(db *sql.DB, clk clock.Clock) *NotifyStore {
	return &NotifyStore{db: db, clk: clk}
}

func (s *NotifyStore) Emit(ctx context.Context, e notify.Event) {
	query := `
		INSERT INTO notifications (id, title, message, severity, recipient_hospital_id, action_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), e.Title, e.Message, e.Severity, nullUUID(e.RecipientHospitalID), e.ActionRef, s.clk.Now(),
	)
	if err != nil {
		log.Printf("notify: dropping event %q: %v", e.Title, err)
	}
}
