package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
	"github.com/RichKitibwa/BloodLink/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) (inventory.Service, *memory.DB) {
	t.Helper()
	db := memory.NewDB()
	clk := clock.NewFixed(testNow)
	svc := inventory.NewService(memory.NewUnitStore(db), memory.NewEventLog(db, clk), clk, 5*24*time.Hour)
	return svc, db
}

func addUnit(t *testing.T, svc inventory.Service, batch string, units int, expiresIn time.Duration) *inventory.BloodUnit {
	t.Helper()
	unit, err := svc.AddStock(context.Background(), inventory.AddStockInput{
		BatchNumber:  batch,
		BloodType:    blood.APositive,
		Component:    blood.WholeBlood,
		Units:        units,
		DonationDate: testNow.Add(-24 * time.Hour),
		ExpiryDate:   testNow.Add(expiresIn),
	})
	if err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	return unit
}

func TestLedger_AddStock(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid input", func(t *testing.T) {
		svc, _ := newLedger(t)
		_, err := svc.AddStock(context.Background(), inventory.AddStockInput{
			BatchNumber:  "",
			BloodType:    blood.APositive,
			Component:    blood.WholeBlood,
			Units:        5,
			DonationDate: testNow,
			ExpiryDate:   testNow.Add(time.Hour),
		})
		if !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects duplicate batch number", func(t *testing.T) {
		svc, _ := newLedger(t)
		addUnit(t, svc, "B-001", 10, 30*24*time.Hour)
		_, err := svc.AddStock(context.Background(), inventory.AddStockInput{
			BatchNumber:  "B-001",
			BloodType:    blood.APositive,
			Component:    blood.WholeBlood,
			Units:        5,
			DonationDate: testNow.Add(-time.Hour),
			ExpiryDate:   testNow.Add(time.Hour),
		})
		if !errors.Is(err, blood.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestLedger_Reserve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("places hold without debiting units", func(t *testing.T) {
		svc, _ := newLedger(t)
		unit := addUnit(t, svc, "B-001", 10, 30*24*time.Hour)

		if err := svc.Reserve(ctx, unit.ID, 10, nil); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		got, err := svc.Get(ctx, unit.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !got.IsReserved {
			t.Fatalf("expected unit to be reserved")
		}
		if got.UnitsAvailable != 10 {
			t.Fatalf("expected 10 units still available, got %d", got.UnitsAvailable)
		}
	})

	t.Run("rejects second reservation", func(t *testing.T) {
		svc, _ := newLedger(t)
		unit := addUnit(t, svc, "B-001", 10, 30*24*time.Hour)

		if err := svc.Reserve(ctx, unit.ID, 5, nil); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		if err := svc.Reserve(ctx, unit.ID, 5, nil); !errors.Is(err, blood.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("rejects expired unit even before sweep", func(t *testing.T) {
		db := memory.NewDB()
		store := memory.NewUnitStore(db)
		early := clock.NewFixed(testNow)
		svc := inventory.NewService(store, memory.NewEventLog(db, early), early, 5*24*time.Hour)
		unit := addUnit(t, svc, "B-001", 10, time.Hour)

		// Same data seen through a clock past the expiry date. The stored
		// is_expired flag is still false; the timestamp check alone rejects.
		lateClk := clock.NewFixed(testNow.Add(2 * time.Hour))
		late := inventory.NewService(store, memory.NewEventLog(db, lateClk), lateClk, 5*24*time.Hour)
		if err := late.Reserve(ctx, unit.ID, 1, nil); !errors.Is(err, blood.ErrExpired) {
			t.Fatalf("expected expired error, got %v", err)
		}
	})

	t.Run("rejects over-reservation", func(t *testing.T) {
		svc, _ := newLedger(t)
		unit := addUnit(t, svc, "B-001", 3, 30*24*time.Hour)
		if err := svc.Reserve(ctx, unit.ID, 4, nil); !errors.Is(err, blood.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestLedger_Release(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newLedger(t)
	unit := addUnit(t, svc, "B-001", 10, 30*24*time.Hour)

	if err := svc.Reserve(ctx, unit.ID, 10, nil); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := svc.Release(ctx, unit.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	got, _ := svc.Get(ctx, unit.ID)
	if got.IsReserved {
		t.Fatalf("expected hold cleared")
	}

	// Releasing again is a no-op, not an error.
	if err := svc.Release(ctx, unit.ID); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestLedger_Allocate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("debits units", func(t *testing.T) {
		svc, _ := newLedger(t)
		unit := addUnit(t, svc, "B-001", 10, 30*24*time.Hour)

		got, err := svc.Allocate(ctx, inventory.AllocateInput{UnitID: unit.ID, Quantity: 4})
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if got.UnitsAvailable != 6 {
			t.Fatalf("expected 6 remaining, got %d", got.UnitsAvailable)
		}
	})

	t.Run("rejects more than available", func(t *testing.T) {
		svc, _ := newLedger(t)
		unit := addUnit(t, svc, "B-001", 3, 30*24*time.Hour)
		_, err := svc.Allocate(ctx, inventory.AllocateInput{UnitID: unit.ID, Quantity: 5})
		if !errors.Is(err, blood.ErrInsufficientUnits) {
			t.Fatalf("expected insufficient units, got %v", err)
		}
	})

	t.Run("transfer reassigns ownership and clears hold", func(t *testing.T) {
		svc, _ := newLedger(t)
		unit := addUnit(t, svc, "B-001", 10, 30*24*time.Hour)
		dest := uuid.New()

		if err := svc.Reserve(ctx, unit.ID, 10, nil); err != nil {
			t.Fatalf("Reserve: %v", err)
		}
		got, err := svc.Allocate(ctx, inventory.AllocateInput{
			UnitID:              unit.ID,
			Quantity:            10,
			DestinationHospital: &dest,
			Transfer:            true,
		})
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if got.HospitalID == nil || *got.HospitalID != dest {
			t.Fatalf("expected ownership moved to %s", dest)
		}
		if got.IsReserved {
			t.Fatalf("expected hold cleared on transfer")
		}
		if got.UnitsAvailable != 0 {
			t.Fatalf("expected 0 remaining, got %d", got.UnitsAvailable)
		}
	})
}

func TestLedger_AssignOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newLedger(t)
	unit := addUnit(t, svc, "B-001", 10, 30*24*time.Hour)
	first := uuid.New()
	second := uuid.New()

	if err := svc.AssignOwner(ctx, unit.ID, first); err != nil {
		t.Fatalf("AssignOwner: %v", err)
	}
	// Idempotent for the same hospital.
	if err := svc.AssignOwner(ctx, unit.ID, first); err != nil {
		t.Fatalf("repeat AssignOwner: %v", err)
	}
	if err := svc.AssignOwner(ctx, unit.ID, second); !errors.Is(err, blood.ErrConflict) {
		t.Fatalf("expected conflict for second claimant, got %v", err)
	}
}

func TestLedger_SweepExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newLedger(t)
	addUnit(t, svc, "B-001", 10, 30*24*time.Hour)
	short := addUnit(t, svc, "B-002", 5, time.Hour)

	n, err := svc.SweepExpiry(ctx, testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("SweepExpiry: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unit swept, got %d", n)
	}
	got, _ := svc.Get(ctx, short.ID)
	if !got.IsExpired {
		t.Fatalf("expected short-dated unit flagged expired")
	}
}

func TestLedger_CriticalExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newLedger(t)
	hospitalID := uuid.New()

	soon := addUnit(t, svc, "B-001", 5, 3*24*time.Hour)
	far := addUnit(t, svc, "B-002", 5, 30*24*time.Hour)
	if err := svc.AssignOwner(ctx, soon.ID, hospitalID); err != nil {
		t.Fatalf("AssignOwner: %v", err)
	}
	if err := svc.AssignOwner(ctx, far.ID, hospitalID); err != nil {
		t.Fatalf("AssignOwner: %v", err)
	}

	units, err := svc.CriticalExpiry(ctx, hospitalID)
	if err != nil {
		t.Fatalf("CriticalExpiry: %v", err)
	}
	if len(units) != 1 || units[0].ID != soon.ID {
		t.Fatalf("expected only the short-dated unit, got %d units", len(units))
	}
}
