// internal/storage/postgres/inventory_store.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
)

const unitColumns = `id, batch_number, blood_type, component, units_available, donation_date,
expiry_date, source_location, hospital_id, is_expired, is_reserved, reserved_for,
version, created_at, updated_at`

// UnitStore is the Postgres implementation of the inventory ledger store.
type UnitStore struct {
	db *sql.DB
}

func NewUnitStore(db *sql.DB) *UnitStore {
	return &UnitStore{db: db}
}

func (s *UnitStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

func (s *UnitStore) GetUnit(ctx context.Context, id uuid.UUID) (inventory.BloodUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM blood_units WHERE id = $1`
	return s.scanUnit(queryRowContext(ctx, s.db, query, id))
}

// GetUnitForUpdate takes a row-level lock; it must run inside WithTx.
func (s *UnitStore) GetUnitForUpdate(ctx context.Context, id uuid.UUID) (inventory.BloodUnit, error) {
	ctx, span := tracer.Start(ctx, "inventory.lock_unit",
		trace.WithAttributes(attribute.String("unit.id", id.String())),
	)
	defer span.End()

	query := `SELECT ` + unitColumns + ` FROM blood_units WHERE id = $1 FOR UPDATE`
	return s.scanUnit(queryRowContext(ctx, s.db, query, id))
}

func (s *UnitStore) InsertUnit(ctx context.Context, u inventory.BloodUnit) error {
	query := `
		INSERT INTO blood_units (` + unitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := execContext(ctx, s.db, query,
		u.ID, u.BatchNumber, u.BloodType, u.Component, u.UnitsAvailable, u.DonationDate,
		u.ExpiryDate, u.SourceLocation, nullUUID(u.HospitalID), u.IsExpired, u.IsReserved,
		nullUUID(u.ReservedFor), u.Version, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("batch %s already exists: %w", u.BatchNumber, blood.ErrConflict)
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// UpdateUnit writes the mutable fields guarded by an optimistic version
// check; a missed match means another writer got there first.
func (s *UnitStore) UpdateUnit(ctx context.Context, u inventory.BloodUnit) error {
	query := `
		UPDATE blood_units
		SET units_available = $1, hospital_id = $2, is_expired = $3, is_reserved = $4,
		    reserved_for = $5, version = $6, updated_at = $7
		WHERE id = $8 AND version = $9
	`
	res, err := execContext(ctx, s.db, query,
		u.UnitsAvailable, nullUUID(u.HospitalID), u.IsExpired, u.IsReserved,
		nullUUID(u.ReservedFor), u.Version, u.UpdatedAt, u.ID, u.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("unit %s version mismatch: %w", u.ID, blood.ErrConflict)
	}
	return nil
}

func (s *UnitStore) ListUnits(ctx context.Context, f inventory.Filter) ([]inventory.BloodUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM blood_units WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.BloodType != nil {
		query += ` AND blood_type = ` + arg(*f.BloodType)
	}
	if f.Component != nil {
		query += ` AND component = ` + arg(*f.Component)
	}
	if f.HospitalID != nil {
		query += ` AND hospital_id = ` + arg(*f.HospitalID)
	}
	if !f.IncludeExpired {
		query += ` AND is_expired = FALSE`
	}
	if f.UnreservedOnly {
		query += ` AND is_reserved = FALSE`
	}
	if f.ExpiringBefore != nil {
		query += ` AND expiry_date <= ` + arg(*f.ExpiringBefore)
	}
	if f.ExpiringAfter != nil {
		query += ` AND expiry_date > ` + arg(*f.ExpiringAfter)
	}
	if f.MinUnits > 0 {
		query += ` AND units_available >= ` + arg(f.MinUnits)
	}
	query += ` ORDER BY expiry_date ASC`

	rows, err := queryContext(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []inventory.BloodUnit
	for rows.Next() {
		u, err := s.scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *UnitStore) MarkExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE blood_units
		SET is_expired = TRUE, version = version + 1, updated_at = $1
		WHERE expiry_date <= $1 AND is_expired = FALSE
	`
	res, err := execContext(ctx, s.db, query, now)
	if err != nil {
		return 0, fmt.Errorf("mark expired: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *UnitStore) Summarize(ctx context.Context, nearExpiryBefore time.Time) ([]inventory.StockSummary, error) {
	query := `
		SELECT blood_type, component,
		       COALESCE(SUM(units_available), 0),
		       COALESCE(SUM(units_available) FILTER (WHERE expiry_date <= $1), 0)
		FROM blood_units
		WHERE is_expired = FALSE AND units_available > 0
		GROUP BY blood_type, component
		ORDER BY blood_type, component
	`
	rows, err := queryContext(ctx, s.db, query, nearExpiryBefore)
	if err != nil {
		return nil, fmt.Errorf("summarize stock: %w", err)
	}
	defer rows.Close()

	var summaries []inventory.StockSummary
	for rows.Next() {
		var sm inventory.StockSummary
		if err := rows.Scan(&sm.BloodType, &sm.Component, &sm.TotalUnits, &sm.NearExpiryUnits); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *UnitStore) scanUnit(row rowScanner) (inventory.BloodUnit, error) {
	var (
		u           inventory.BloodUnit
		hospitalID  uuid.NullUUID
		reservedFor uuid.NullUUID
	)
	err := row.Scan(
		&u.ID, &u.BatchNumber, &u.BloodType, &u.Component, &u.UnitsAvailable, &u.DonationDate,
		&u.ExpiryDate, &u.SourceLocation, &hospitalID, &u.IsExpired, &u.IsReserved, &reservedFor,
		&u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return inventory.BloodUnit{}, fmt.Errorf("blood unit: %w", blood.ErrNotFound)
		}
		return inventory.BloodUnit{}, fmt.Errorf("scan unit: %w", err)
	}
	u.HospitalID = fromNullUUID(hospitalID)
	u.ReservedFor = fromNullUUID(reservedFor)
	return u, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
