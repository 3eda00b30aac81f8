// internal/storage/postgres/exchange_store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/exchange"
)

const requestColumns = `id, requesting_hospital_id, target_hospital_id, created_by_user_id,
blood_type, component, units_requested, priority, status, reason, patient_details,
urgency_notes, expected_use_date, approved_by_user_id, approved_at, fulfilled_at,
rejection_reason, created_at, updated_at, version`

const responseColumns = `id, request_id, responding_hospital_id, responding_user_id,
units_offered, message, estimated_availability, status, accepted_at, created_at`

// ExchangeStore is the Postgres implementation of the exchange store.
type ExchangeStore struct {
	db *sql.DB
}

func NewExchangeStore(db *sql.DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

func (s *ExchangeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

func (s *ExchangeStore) GetRequest(ctx context.Context, id uuid.UUID) (exchange.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM exchange_requests WHERE id = $1`
	return scanRequest(queryRowContext(ctx, s.db, query, id))
}

func (s *ExchangeStore) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (exchange.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM exchange_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(queryRowContext(ctx, s.db, query, id))
}

func (s *ExchangeStore) InsertRequest(ctx context.Context, r exchange.Request) error {
	query := `
		INSERT INTO exchange_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := execContext(ctx, s.db, query,
		r.ID, r.RequestingHospitalID, nullUUID(r.TargetHospitalID), r.CreatedByUserID,
		r.BloodType, r.Component, r.UnitsRequested, r.Priority, r.Status, r.Reason, r.PatientDetails,
		r.UrgencyNotes, nullTime(r.ExpectedUseDate), nullUUID(r.ApprovedByUserID), nullTime(r.ApprovedAt),
		nullTime(r.FulfilledAt), r.RejectionReason, r.CreatedAt, r.UpdatedAt, r.Version,
	)
	if err != nil {
		return fmt.Errorf("insert exchange request: %w", err)
	}
	return nil
}

func (s *ExchangeStore) UpdateRequest(ctx context.Context, r exchange.Request) error {
	query := `
		UPDATE exchange_requests
		SET status = $1, approved_by_user_id = $2, approved_at = $3, fulfilled_at = $4,
		    rejection_reason = $5, updated_at = $6, version = $7
		WHERE id = $8 AND version = $9
	`
	res, err := execContext(ctx, s.db, query,
		r.Status, nullUUID(r.ApprovedByUserID), nullTime(r.ApprovedAt), nullTime(r.FulfilledAt),
		r.RejectionReason, r.UpdatedAt, r.Version, r.ID, r.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update exchange request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update exchange request: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("exchange request %s version mismatch: %w", r.ID, blood.ErrConflict)
	}
	return nil
}

func (s *ExchangeStore) ListRequests(ctx context.Context, f exchange.ListFilter) ([]exchange.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM exchange_requests WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	// Incoming means targeted at (or broadcast to) this hospital; outgoing
	// means raised by it. Both flags off yields the same visibility as both on.
	switch {
	case f.ShowIncoming && !f.ShowOutgoing:
		h := arg(f.HospitalID)
		query += ` AND (target_hospital_id = ` + h + ` OR (target_hospital_id IS NULL AND requesting_hospital_id <> ` + h + `))`
	case f.ShowOutgoing && !f.ShowIncoming:
		query += ` AND requesting_hospital_id = ` + arg(f.HospitalID)
	default:
		h := arg(f.HospitalID)
		query += ` AND (requesting_hospital_id = ` + h + ` OR target_hospital_id = ` + h + ` OR target_hospital_id IS NULL)`
	}
	if f.Status != nil {
		query += ` AND status = ` + arg(*f.Status)
	}
	if f.Priority != nil {
		query += ` AND priority = ` + arg(*f.Priority)
	}
	if f.BloodType != nil {
		query += ` AND blood_type = ` + arg(*f.BloodType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := queryContext(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exchange requests: %w", err)
	}
	defer rows.Close()

	var requests []exchange.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *ExchangeStore) FindResponseByHospital(ctx context.Context, requestID, hospitalID uuid.UUID) (*exchange.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM exchange_responses WHERE request_id = $1 AND responding_hospital_id = $2`
	resp, err := scanResponse(queryRowContext(ctx, s.db, query, requestID, hospitalID))
	if err != nil {
		if errors.Is(err, blood.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

func (s *ExchangeStore) GetResponse(ctx context.Context, requestID, responseID uuid.UUID) (exchange.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM exchange_responses WHERE id = $1 AND request_id = $2`
	return scanResponse(queryRowContext(ctx, s.db, query, responseID, requestID))
}

func (s *ExchangeStore) InsertResponse(ctx context.Context, r exchange.Response) error {
	query := `
		INSERT INTO exchange_responses (` + responseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := execContext(ctx, s.db, query,
		r.ID, r.RequestID, r.RespondingHospitalID, r.RespondingUserID,
		r.UnitsOffered, r.Message, nullTime(r.EstimatedAvailability), r.Status, nullTime(r.AcceptedAt), r.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hospital already responded to request %s: %w", r.RequestID, blood.ErrConflict)
		}
		return fmt.Errorf("insert exchange response: %w", err)
	}
	return nil
}

func (s *ExchangeStore) UpdateResponse(ctx context.Context, r exchange.Response) error {
	query := `UPDATE exchange_responses SET status = $1, accepted_at = $2 WHERE id = $3`
	_, err := execContext(ctx, s.db, query, r.Status, nullTime(r.AcceptedAt), r.ID)
	if err != nil {
		return fmt.Errorf("update exchange response: %w", err)
	}
	return nil
}

func (s *ExchangeStore) ListResponses(ctx context.Context, requestID uuid.UUID) ([]exchange.Response, error) {
	query := `SELECT ` + responseColumns + ` FROM exchange_responses WHERE request_id = $1 ORDER BY created_at ASC`
	rows, err := queryContext(ctx, s.db, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list exchange responses: %w", err)
	}
	defer rows.Close()

	var responses []exchange.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func scanRequest(row rowScanner) (exchange.Request, error) {
	var (
		r           exchange.Request
		target      uuid.NullUUID
		expectedUse sql.NullTime
		approvedBy  uuid.NullUUID
		approvedAt  sql.NullTime
		fulfilledAt sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.RequestingHospitalID, &target, &r.CreatedByUserID,
		&r.BloodType, &r.Component, &r.UnitsRequested, &r.Priority, &r.Status, &r.Reason, &r.PatientDetails,
		&r.UrgencyNotes, &expectedUse, &approvedBy, &approvedAt, &fulfilledAt,
		&r.RejectionReason, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return exchange.Request{}, fmt.Errorf("exchange request: %w", blood.ErrNotFound)
		}
		return exchange.Request{}, fmt.Errorf("scan exchange request: %w", err)
	}
	r.TargetHospitalID = fromNullUUID(target)
	r.ExpectedUseDate = fromNullTime(expectedUse)
	r.ApprovedByUserID = fromNullUUID(approvedBy)
	r.ApprovedAt = fromNullTime(approvedAt)
	r.FulfilledAt = fromNullTime(fulfilledAt)
	return r, nil
}

func scanResponse(row rowScanner) (exchange.Response, error) {
	var (
		r            exchange.Response
		availability sql.NullTime
		acceptedAt   sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.RequestID, &r.RespondingHospitalID, &r.RespondingUserID,
		&r.UnitsOffered, &r.Message, &availability, &r.Status, &acceptedAt, &r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return exchange.Response{}, fmt.Errorf("exchange response: %w", blood.ErrNotFound)
		}
		return exchange.Response{}, fmt.Errorf("scan exchange response: %w", err)
	}
	r.EstimatedAvailability = fromNullTime(availability)
	r.AcceptedAt = fromNullTime(acceptedAt)
	return r, nil
}
