package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

var warehouse = domaininv.Location{Type: domaininv.LocationWarehouse, ID: "main"}

func newTestInventory(t *testing.T) (*Service, domaininv.Ingredient) {
	t.Helper()
	store := memory.New()
	svc := New(store, logger.NewNop())

	ing, err := svc.CreateIngredient(context.Background(), domaininv.Ingredient{
		Code:          "COFFEE-ARABICA",
		Name:          "Arabica beans",
		Unit:          domaininv.UnitKg,
		MinStockLevel: 5,
	})
	if err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}
	return svc, ing
}

func TestReceiveAccumulates(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()

	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 10}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	level, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 2.5}, "u1")
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if level.Quantity != 12.5 {
		t.Fatalf("level = %v, want 12.5", level.Quantity)
	}
}

func TestIssueChecksStock(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()

	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 3}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	if _, err := svc.Issue(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 5}, "u1"); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Issue(too much) error = %v, want ErrInsufficientStock", err)
	}

	level, err := svc.Issue(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 2}, "u1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if level.Quantity != 1 {
		t.Fatalf("level = %v, want 1", level.Quantity)
	}
}

func TestTransferMovesBothSides(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()
	bag := domaininv.Location{Type: domaininv.LocationBag, ID: "op-7"}

	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 10}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := svc.Transfer(ctx, warehouse, bag, Movement{IngredientID: ing.ID, Quantity: 4}, "u1"); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	from, err := svc.Level(ctx, warehouse, ing.ID)
	if err != nil {
		t.Fatalf("Level(warehouse) error = %v", err)
	}
	if from.Quantity != 6 {
		t.Fatalf("warehouse level = %v, want 6", from.Quantity)
	}
	to, err := svc.Level(ctx, bag, ing.ID)
	if err != nil {
		t.Fatalf("Level(bag) error = %v", err)
	}
	if to.Quantity != 4 {
		t.Fatalf("bag level = %v, want 4", to.Quantity)
	}
}

func TestTransferStampsBothSidesTogether(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()
	bag := domaininv.Location{Type: domaininv.LocationBag, ID: "op-7"}

	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 10}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := svc.Transfer(ctx, warehouse, bag, Movement{IngredientID: ing.ID, Quantity: 4}, "u1"); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	records, err := svc.Movements(ctx, ing.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Movements() error = %v", err)
	}
	var out, in *domaininv.Record
	for i := range records {
		rec := &records[i]
		switch {
		case rec.Location == warehouse && rec.Quantity == 6:
			out = rec
		case rec.Location == bag:
			in = rec
		}
	}
	if out == nil || in == nil {
		t.Fatalf("transfer records missing from ledger: %+v", records)
	}
	if !out.RecordedAt.Equal(in.RecordedAt) {
		t.Fatalf("transfer sides recorded at %v vs %v, want the same instant", out.RecordedAt, in.RecordedAt)
	}
}

func TestTransferRejectsSameLocation(t *testing.T) {
	svc, ing := newTestInventory(t)
	if err := svc.Transfer(context.Background(), warehouse, warehouse, Movement{IngredientID: ing.ID, Quantity: 1}, "u1"); err == nil {
		t.Fatal("Transfer(same location) succeeded, want error")
	}
}

func TestAdjustSetsAbsoluteLevel(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()

	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 10}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	level, err := svc.Adjust(ctx, warehouse, ing.ID, 7.5, "stock count", "u1")
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if level.Quantity != 7.5 {
		t.Fatalf("level after adjust = %v, want 7.5", level.Quantity)
	}
}

func TestLevelUnknownIngredientIsZero(t *testing.T) {
	svc, ing := newTestInventory(t)
	level, err := svc.Level(context.Background(), warehouse, ing.ID)
	if err != nil {
		t.Fatalf("Level() error = %v", err)
	}
	if level.Quantity != 0 {
		t.Fatalf("level = %v, want 0", level.Quantity)
	}
}

func TestLowStockReport(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()

	// Below the minimum of 5.
	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 3}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	low, err := svc.LowStockReport(ctx, "main")
	if err != nil {
		t.Fatalf("LowStockReport() error = %v", err)
	}
	if len(low) != 1 || low[0].Ingredient.ID != ing.ID {
		t.Fatalf("LowStockReport() = %+v, want one entry for %s", low, ing.ID)
	}

	// Refill above the minimum clears the report.
	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 10}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	low, err = svc.LowStockReport(ctx, "main")
	if err != nil {
		t.Fatalf("LowStockReport() error = %v", err)
	}
	if len(low) != 0 {
		t.Fatalf("LowStockReport() = %+v, want empty", low)
	}
}

func TestMovementsLedgerIsAppendOnly(t *testing.T) {
	svc, ing := newTestInventory(t)
	ctx := context.Background()

	if _, err := svc.Receive(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 10}, "u1"); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if _, err := svc.Issue(ctx, warehouse, Movement{IngredientID: ing.ID, Quantity: 4}, "u1"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	records, err := svc.Movements(ctx, ing.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Movements() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Movements() = %d records, want 2", len(records))
	}
}
