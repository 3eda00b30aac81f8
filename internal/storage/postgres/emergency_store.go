// internal/storage/postgres/emergency_store.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/emergency"
)

const emergencyColumns = `id, hospital_id, created_by_user_id, blood_type, component,
units_needed, patient_condition, contact_person, contact_phone, is_active,
response_deadline, created_at, resolved_at, version`

const emergencyResponseColumns = `id, request_id, responding_hospital_id, units_offered,
message, contact_person, contact_phone, estimated_availability, created_at`

// EmergencyStore is the Postgres implementation of the emergency store.
type EmergencyStore struct {
	db *sql.DB
}

func NewEmergencyStore(db *sql.DB) *EmergencyStore {
	return &EmergencyStore{db: db}
}

func (s *EmergencyStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

func (s *EmergencyStore) GetRequest(ctx context.Context, id uuid.UUID) (emergency.Request, error) {
	query := `SELECT ` + emergencyColumns + ` FROM emergency_requests WHERE id = $1`
	return scanEmergency(queryRowContext(ctx, s.db, query, id))
}

func (s *EmergencyStore) InsertRequest(ctx context.Context, r emergency.Request) error {
	query := `
		INSERT INTO emergency_requests (` + emergencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := execContext(ctx, s.db, query,
		r.ID, r.HospitalID, r.CreatedByUserID, r.BloodType, r.Component,
		r.UnitsNeeded, r.PatientCondition, r.ContactPerson, r.ContactPhone, r.IsActive,
		r.ResponseDeadline, r.CreatedAt, nullTime(r.ResolvedAt), r.Version,
	)
	if err != nil {
		return fmt.Errorf("insert emergency request: %w", err)
	}
	return nil
}

func (s *EmergencyStore) ListActive(ctx context.Context, now time.Time) ([]emergency.Request, error) {
	query := `
		SELECT ` + emergencyColumns + `
		FROM emergency_requests
		WHERE is_active = TRUE AND response_deadline > $1
		ORDER BY response_deadline ASC
	`
	rows, err := queryContext(ctx, s.db, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active emergencies: %w", err)
	}
	defer rows.Close()

	var requests []emergency.Request
	for rows.Next() {
		r, err := scanEmergency(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *EmergencyStore) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE emergency_requests
		SET is_active = FALSE, resolved_at = $1, version = version + 1
		WHERE is_active = TRUE AND response_deadline <= $1
	`
	res, err := execContext(ctx, s.db, query, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired emergencies: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate expired emergencies: %w", err)
	}
	return int(n), nil
}

func (s *EmergencyStore) InsertResponse(ctx context.Context, r emergency.Response) error {
	query := `
		INSERT INTO emergency_responses (` + emergencyResponseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := execContext(ctx, s.db, query,
		r.ID, r.RequestID, r.RespondingHospitalID, r.UnitsOffered,
		r.Message, r.ContactPerson, r.ContactPhone, nullTime(r.EstimatedAvailability), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert emergency response: %w", err)
	}
	return nil
}

func (s *EmergencyStore) ListResponses(ctx context.Context, requestID uuid.UUID) ([]emergency.Response, error) {
	query := `SELECT ` + emergencyResponseColumns + ` FROM emergency_responses WHERE request_id = $1 ORDER BY created_at ASC`
	rows, err := queryContext(ctx, s.db, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list emergency responses: %w", err)
	}
	defer rows.Close()

	var responses []emergency.Response
	for rows.Next() {
		var (
			r            emergency.Response
			availability sql.NullTime
		)
		err := rows.Scan(
			&r.ID, &r.RequestID, &r.RespondingHospitalID, &r.UnitsOffered,
			&r.Message, &r.ContactPerson, &r.ContactPhone, &availability, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan emergency response: %w", err)
		}
		r.EstimatedAvailability = fromNullTime(availability)
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func scanEmergency(row rowScanner) (emergency.Request, error) {
	var (
		r        emergency.Request
		resolved sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.HospitalID, &r.CreatedByUserID, &r.BloodType, &r.Component,
		&r.UnitsNeeded, &r.PatientCondition, &r.ContactPerson, &r.ContactPhone, &r.IsActive,
		&r.ResponseDeadline, &r.CreatedAt, &resolved, &r.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return emergency.Request{}, fmt.Errorf("emergency request: %w", blood.ErrNotFound)
		}
		return emergency.Request{}, fmt.Errorf("scan emergency request: %w", err)
	}
	r.ResolvedAt = fromNullTime(resolved)
	return r, nil
}
