// internal/storage/memory/inventory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
)

// UnitStore is the in-memory inventory store.
type UnitStore struct {
	db *DB
}

func NewUnitStore(db *DB) *UnitStore {
	return &UnitStore{db: db}
}

func (s *UnitStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.withTx(ctx, fn)
}

func (s *UnitStore) GetUnit(ctx context.Context, id uuid.UUID) (inventory.BloodUnit, error) {
	defer s.db.enter(ctx)()
	u, ok := s.db.state.units[id]
	if !ok {
		return inventory.BloodUnit{}, fmt.Errorf("blood unit %s: %w", id, blood.ErrNotFound)
	}
	return u, nil
}

func (s *UnitStore) GetUnitForUpdate(ctx context.Context, id uuid.UUID) (inventory.BloodUnit, error) {
	return s.GetUnit(ctx, id)
}

func (s *UnitStore) InsertUnit(ctx context.Context, u inventory.BloodUnit) error {
	defer s.db.enter(ctx)()
	for _, existing := range s.db.state.units {
		if existing.BatchNumber == u.BatchNumber {
			return fmt.Errorf("batch %s already tracked: %w", u.BatchNumber, blood.ErrConflict)
		}
	}
	s.db.state.units[u.ID] = u
	return nil
}

func (s *UnitStore) UpdateUnit(ctx context.Context, u inventory.BloodUnit) error {
	defer s.db.enter(ctx)()
	existing, ok := s.db.state.units[u.ID]
	if !ok || existing.Version != u.Version-1 {
		return fmt.Errorf("blood unit %s version mismatch: %w", u.ID, blood.ErrConflict)
	}
	s.db.state.units[u.ID] = u
	return nil
}

func (s *UnitStore) ListUnits(ctx context.Context, f inventory.Filter) ([]inventory.BloodUnit, error) {
	defer s.db.enter(ctx)()
	var units []inventory.BloodUnit
	for _, u := range s.db.state.units {
		if matchesFilter(u, f) {
			units = append(units, u)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].ExpiryDate.Before(units[j].ExpiryDate)
	})
	return units, nil
}

func matchesFilter(u inventory.BloodUnit, f inventory.Filter) bool {
	if f.BloodType != nil && u.BloodType != *f.BloodType {
		return false
	}
	if f.Component != nil && u.Component != *f.Component {
		return false
	}
	if f.HospitalID != nil && !u.OwnedBy(*f.HospitalID) {
		return false
	}
	if !f.IncludeExpired && u.IsExpired {
		return false
	}
	if f.UnreservedOnly && u.IsReserved {
		return false
	}
	if f.ExpiringBefore != nil && !u.ExpiryDate.Before(*f.ExpiringBefore) {
		return false
	}
	if f.ExpiringAfter != nil && !u.ExpiryDate.After(*f.ExpiringAfter) {
		return false
	}
	if u.UnitsAvailable < f.MinUnits {
		return false
	}
	return true
}

func (s *UnitStore) MarkExpired(ctx context.Context, now time.Time) (int, error) {
	defer s.db.enter(ctx)()
	var n int
	for id, u := range s.db.state.units {
		if !u.IsExpired && !u.ExpiryDate.After(now) {
			u.IsExpired = true
			u.Version++
			u.UpdatedAt = now
			s.db.state.units[id] = u
			n++
		}
	}
	return n, nil
}

func (s *UnitStore) Summarize(ctx context.Context, nearExpiryBefore time.Time) ([]inventory.StockSummary, error) {
	defer s.db.enter(ctx)()
	type key struct {
		bt blood.Type
		c  blood.Component
	}
	totals := map[key]*inventory.StockSummary{}
	for _, u := range s.db.state.units {
		if u.IsExpired {
			continue
		}
		k := key{u.BloodType, u.Component}
		sum, ok := totals[k]
		if !ok {
			sum = &inventory.StockSummary{BloodType: u.BloodType, Component: u.Component}
			totals[k] = sum
		}
		sum.TotalUnits += u.UnitsAvailable
		if u.ExpiryDate.Before(nearExpiryBefore) {
			sum.NearExpiryUnits += u.UnitsAvailable
		}
	}
	var out []inventory.StockSummary
	for _, sum := range totals {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BloodType != out[j].BloodType {
			return out[i].BloodType < out[j].BloodType
		}
		return out[i].Component < out[j].Component
	})
	return out, nil
}
