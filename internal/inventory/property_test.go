package inventory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/clock"
	"github.com/RichKitibwa/BloodLink/internal/inventory"
	"github.com/RichKitibwa/BloodLink/internal/storage/memory"
)

// Random interleavings of reserve, release and allocate must never drive
// any batch below zero available units, and reservations stay exclusive.
func TestLedger_UnitsNeverNegative(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		db := memory.NewDB()
		clk := clock.NewFixed(testNow)
		svc := inventory.NewService(memory.NewUnitStore(db), memory.NewEventLog(db, clk), clk, 5*24*time.Hour)

		unitCount := rapid.IntRange(1, 4).Draw(rt, "unitCount")
		ids := make([]uuid.UUID, 0, unitCount)
		for i := 0; i < unitCount; i++ {
			unit, err := svc.AddStock(ctx, inventory.AddStockInput{
				BatchNumber:  fmt.Sprintf("B-%03d", i),
				BloodType:    blood.OPositive,
				Component:    blood.PackedCells,
				Units:        rapid.IntRange(1, 20).Draw(rt, "units"),
				DonationDate: testNow.Add(-24 * time.Hour),
				ExpiryDate:   testNow.Add(30 * 24 * time.Hour),
			})
			if err != nil {
				rt.Fatalf("AddStock: %v", err)
			}
			ids = append(ids, unit.ID)
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := ids[rapid.IntRange(0, len(ids)-1).Draw(rt, "unit")]
			qty := rapid.IntRange(1, 25).Draw(rt, "qty")

			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				// May fail with conflict when already held or short on units.
				_ = svc.Reserve(ctx, id, qty, nil)
			case 1:
				if err := svc.Release(ctx, id); err != nil {
					rt.Fatalf("Release: %v", err)
				}
			case 2:
				// May fail with insufficient units.
				_, _ = svc.Allocate(ctx, inventory.AllocateInput{UnitID: id, Quantity: qty})
			}

			for _, uid := range ids {
				unit, err := svc.Get(ctx, uid)
				if err != nil {
					rt.Fatalf("Get: %v", err)
				}
				if unit.UnitsAvailable < 0 {
					rt.Fatalf("batch %s went negative: %d", unit.BatchNumber, unit.UnitsAvailable)
				}
				if !unit.IsReserved && unit.ReservedFor != nil {
					rt.Fatalf("batch %s has a dangling reservation reference", unit.BatchNumber)
				}
			}
		}
	})
}
