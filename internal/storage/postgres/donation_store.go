// internal/storage/postgres/donation_store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/donation"
)

const offerColumns = `id, unit_id, donating_hospital_id, units_offered, reason, notes,
is_critical_expiry, status, is_active, accepted_by_hospital_id, accepted_at,
created_by_user_id, expires_at, created_at, version`

// OfferStore is the Postgres implementation of the donation store.
type OfferStore struct {
	db *sql.DB
}

func NewOfferStore(db *sql.DB) *OfferStore {
	return &OfferStore{db: db}
}

func (s *OfferStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.db, fn)
}

func (s *OfferStore) GetOffer(ctx context.Context, id uuid.UUID) (donation.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM donation_offers WHERE id = $1`
	return scanOffer(queryRowContext(ctx, s.db, query, id))
}

func (s *OfferStore) GetOfferForUpdate(ctx context.Context, id uuid.UUID) (donation.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM donation_offers WHERE id = $1 FOR UPDATE`
	return scanOffer(queryRowContext(ctx, s.db, query, id))
}

func (s *OfferStore) FindActiveOfferByUnit(ctx context.Context, unitID uuid.UUID) (*donation.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM donation_offers WHERE unit_id = $1 AND is_active = TRUE`
	offer, err := scanOffer(queryRowContext(ctx, s.db, query, unitID))
	if err != nil {
		if errors.Is(err, blood.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (s *OfferStore) InsertOffer(ctx context.Context, o donation.Offer) error {
	query := `
		INSERT INTO donation_offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := execContext(ctx, s.db, query,
		o.ID, o.UnitID, o.DonatingHospitalID, o.UnitsOffered, o.Reason, o.Notes,
		o.IsCriticalExpiry, o.Status, o.IsActive, nullUUID(o.AcceptedByHospitalID), nullTime(o.AcceptedAt),
		o.CreatedByUserID, o.ExpiresAt, o.CreatedAt, o.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("unit already has an active offer: %w", blood.ErrConflict)
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (s *OfferStore) UpdateOffer(ctx context.Context, o donation.Offer) error {
	query := `
		UPDATE donation_offers
		SET status = $1, is_active = $2, accepted_by_hospital_id = $3, accepted_at = $4, version = $5
		WHERE id = $6 AND version = $7
	`
	res, err := execContext(ctx, s.db, query,
		o.Status, o.IsActive, nullUUID(o.AcceptedByHospitalID), nullTime(o.AcceptedAt),
		o.Version, o.ID, o.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("offer %s version mismatch: %w", o.ID, blood.ErrConflict)
	}
	return nil
}

func (s *OfferStore) ListAvailable(ctx context.Context, f donation.ListFilter) ([]donation.Listing, error) {
	query := `
		SELECT o.id, o.unit_id, o.donating_hospital_id, o.units_offered, o.reason, o.notes,
		       o.is_critical_expiry, o.status, o.is_active, o.accepted_by_hospital_id, o.accepted_at,
		       o.created_by_user_id, o.expires_at, o.created_at, o.version,
		       u.id, u.batch_number, u.blood_type, u.component, u.units_available, u.donation_date,
		       u.expiry_date, u.source_location, u.hospital_id, u.is_expired, u.is_reserved, u.reserved_for,
		       u.version, u.created_at, u.updated_at,
		       h.id, h.name, h.code, h.email, h.phone, h.address, h.district, h.region, h.is_active, h.created_at
		FROM donation_offers o
		JOIN blood_units u ON o.unit_id = u.id
		JOIN hospitals h ON o.donating_hospital_id = h.id
		WHERE o.is_active = TRUE AND o.status = 'AVAILABLE'
	`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.ExcludeHospitalID != nil {
		query += ` AND o.donating_hospital_id <> ` + arg(*f.ExcludeHospitalID)
	}
	if f.BloodType != nil {
		query += ` AND u.blood_type = ` + arg(*f.BloodType)
	}
	if f.Component != nil {
		query += ` AND u.component = ` + arg(*f.Component)
	}
	if f.Region != "" {
		query += ` AND h.region ILIKE ` + arg("%"+f.Region+"%")
	}

	rows, err := queryContext(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available offers: %w", err)
	}
	defer rows.Close()

	var listings []donation.Listing
	for rows.Next() {
		var (
			l              donation.Listing
			acceptedBy     uuid.NullUUID
			acceptedAt     sql.NullTime
			unitHospitalID uuid.NullUUID
			unitReserved   uuid.NullUUID
		)
		err := rows.Scan(
			&l.Offer.ID, &l.Offer.UnitID, &l.Offer.DonatingHospitalID, &l.Offer.UnitsOffered,
			&l.Offer.Reason, &l.Offer.Notes, &l.Offer.IsCriticalExpiry, &l.Offer.Status,
			&l.Offer.IsActive, &acceptedBy, &acceptedAt, &l.Offer.CreatedByUserID,
			&l.Offer.ExpiresAt, &l.Offer.CreatedAt, &l.Offer.Version,
			&l.Unit.ID, &l.Unit.BatchNumber, &l.Unit.BloodType, &l.Unit.Component,
			&l.Unit.UnitsAvailable, &l.Unit.DonationDate, &l.Unit.ExpiryDate, &l.Unit.SourceLocation,
			&unitHospitalID, &l.Unit.IsExpired, &l.Unit.IsReserved, &unitReserved,
			&l.Unit.Version, &l.Unit.CreatedAt, &l.Unit.UpdatedAt,
			&l.Donor.ID, &l.Donor.Name, &l.Donor.Code, &l.Donor.Email, &l.Donor.Phone,
			&l.Donor.Address, &l.Donor.District, &l.Donor.Region, &l.Donor.IsActive, &l.Donor.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.Offer.AcceptedByHospitalID = fromNullUUID(acceptedBy)
		l.Offer.AcceptedAt = fromNullTime(acceptedAt)
		l.Unit.HospitalID = fromNullUUID(unitHospitalID)
		l.Unit.ReservedFor = fromNullUUID(unitReserved)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *OfferStore) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]donation.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM donation_offers WHERE donating_hospital_id = $1 ORDER BY created_at DESC`
	rows, err := queryContext(ctx, s.db, query, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("list offers by hospital: %w", err)
	}
	defer rows.Close()

	var offers []donation.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func scanOffer(row rowScanner) (donation.Offer, error) {
	var (
		o          donation.Offer
		acceptedBy uuid.NullUUID
		acceptedAt sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.UnitID, &o.DonatingHospitalID, &o.UnitsOffered, &o.Reason, &o.Notes,
		&o.IsCriticalExpiry, &o.Status, &o.IsActive, &acceptedBy, &acceptedAt,
		&o.CreatedByUserID, &o.ExpiresAt, &o.CreatedAt, &o.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return donation.Offer{}, fmt.Errorf("donation offer: %w", blood.ErrNotFound)
		}
		return donation.Offer{}, fmt.Errorf("scan offer: %w", err)
	}
	o.AcceptedByHospitalID = fromNullUUID(acceptedBy)
	o.AcceptedAt = fromNullTime(acceptedAt)
	return o, nil
}
