// internal/storage/memory/hospital.go
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/hospital"
)

// HospitalDirectory is the in-memory hospital directory.
type HospitalDirectory struct {
	db *DB
}

func NewHospitalDirectory(db *DB) *HospitalDirectory {
	return &HospitalDirectory{db: db}
}

func (s *HospitalDirectory) Get(ctx context.Context, id uuid.UUID) (hospital.Hospital, error) {
	defer s.db.enter(ctx)()
	h, ok := s.db.state.hospitals[id]
	if !ok {
		return hospital.Hospital{}, fmt.Errorf("hospital %s: %w", id, blood.ErrNotFound)
	}
	return h, nil
}

func (s *HospitalDirectory) ListActive(ctx context.Context) ([]hospital.Hospital, error) {
	defer s.db.enter(ctx)()
	var hospitals []hospital.Hospital
	for _, h := range s.db.state.hospitals {
		if h.IsActive {
			hospitals = append(hospitals, h)
		}
	}
	sort.Slice(hospitals, func(i, j int) bool {
		return hospitals[i].Name < hospitals[j].Name
	})
	return hospitals, nil
}

// Put registers or replaces a hospital for test setup.
func (s *HospitalDirectory) Put(ctx context.Context, h hospital.Hospital) {
	defer s.db.enter(ctx)()
	s.db.state.hospitals[h.ID] = h
}
