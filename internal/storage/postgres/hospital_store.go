// internal/storage/postgres/hospital_store.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
)

const hospitalColumns = `id, name, code, email, phone, address, district, region, is_active, created_at`

// HospitalStore backs the hospital directory.
type HospitalStore struct {
	db *sql.DB
}

func NewHospitalStore(db *sql.DB) *HospitalStore {
	return &HospitalStore{db: db}
}

func (s *HospitalStore) Get(ctx context.Context, id uuid.UUID) (hospital.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE id = $1`
	return scanHospital(queryRowContext(ctx, s.db, query, id))
}

func (s *HospitalStore) ListActive(ctx context.Context) ([]hospital.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE is_active = TRUE ORDER BY name ASC`
	rows, err := queryContext(ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("list active hospitals: %w", err)
	}
	defer rows.Close()

	var hospitals []hospital.Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, rows.Err()
}

// Insert registers a hospital. Registration proper lives outside this core;
// this exists for seeding and integration tests.
func (s *HospitalStore) Insert(ctx context.Context, h hospital.Hospital) error {
	query := `
		INSERT INTO hospitals (` + hospitalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := execContext(ctx, s.db, query,
		h.ID, h.Name, h.Code, h.Email, h.Phone, h.Address, h.District, h.Region, h.IsActive, h.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hospital code %s taken: %w", h.Code, blood.ErrConflict)
		}
		return fmt.Errorf("insert hospital: %w", err)
	}
	return nil
}

func scanHospital(row rowScanner) (hospital.Hospital, error) {
	var h hospital.Hospital
	err := row.Scan(&h.ID, &h.Name, &h.Code, &h.Email, &h.Phone, &h.Address, &h.District, &h.Region, &h.IsActive, &h.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return hospital.Hospital{}, fmt.Errorf("hospital: %w", blood.ErrNotFound)
		}
		return hospital.Hospital{}, fmt.Errorf("scan hospital: %w", err)
	}
	return h, nil
}
