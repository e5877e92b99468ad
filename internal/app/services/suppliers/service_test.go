package suppliers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/supplier"
	invsvc "github.com/vendnet/vendops/internal/app/services/inventory"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

type suppliersFixture struct {
	svc        *Service
	store      *memory.Store
	inventory  *invsvc.Service
	supplier   supplier.Supplier
	ingredient domaininv.Ingredient
	bank       finance.Account
}

func newSuppliersFixture(t *testing.T) suppliersFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	inv := invsvc.New(store, logger.NewNop())
	svc := New(store, store, inv, logger.NewNop())

	sp, err := svc.CreateSupplier(ctx, supplier.Supplier{Name: "Beans & Co", TaxID: "301234567"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	ing, err := store.CreateIngredient(ctx, domaininv.Ingredient{Code: "COFFEE", Name: "Beans", Unit: domaininv.UnitKg})
	if err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}
	bank, err := store.CreateFinanceAccount(ctx, finance.Account{Code: "bank_main", Name: "Bank", Type: finance.AccountBank, Active: true})
	if err != nil {
		t.Fatalf("CreateFinanceAccount: %v", err)
	}
	return suppliersFixture{svc: svc, store: store, inventory: inv, supplier: sp, ingredient: ing, bank: bank}
}

func (fx suppliersFixture) confirmedPurchase(t *testing.T, qty, price float64) supplier.Purchase {
	t.Helper()
	ctx := context.Background()
	p, err := fx.svc.CreatePurchase(ctx, fx.supplier.ID, []PurchaseItemInput{
		{IngredientID: fx.ingredient.ID, Quantity: qty, PricePerUnit: price},
	}, time.Now().UTC().Add(24*time.Hour), "", "mgr-1")
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	p, err = fx.svc.ConfirmPurchase(ctx, p.ID, "mgr-1")
	if err != nil {
		t.Fatalf("ConfirmPurchase: %v", err)
	}
	return p
}

func TestCreateSupplierValidation(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.CreateSupplier(ctx, supplier.Supplier{Name: "   "}); err == nil {
		t.Fatal("expected error for blank name")
	}
	// Tax IDs are unique.
	if _, err := fx.svc.CreateSupplier(ctx, supplier.Supplier{Name: "Other", TaxID: fx.supplier.TaxID}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate tax id error = %v, want ErrConflict", err)
	}
}

func TestCreatePurchaseTotals(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	p, err := fx.svc.CreatePurchase(ctx, fx.supplier.ID, []PurchaseItemInput{
		{IngredientID: fx.ingredient.ID, Quantity: 10, PricePerUnit: 120000},
	}, time.Time{}, "monthly order", "mgr-1")
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if p.Status != supplier.PurchaseDraft {
		t.Fatalf("status = %s, want %s", p.Status, supplier.PurchaseDraft)
	}
	if p.TotalAmount != 1200000 {
		t.Fatalf("TotalAmount = %v, want 1200000", p.TotalAmount)
	}
	if p.Items[0].Amount != 1200000 {
		t.Fatalf("item amount = %v, want 1200000", p.Items[0].Amount)
	}
}

func TestCreatePurchaseRejectsBadInput(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.CreatePurchase(ctx, fx.supplier.ID, nil, time.Time{}, "", "mgr-1"); err == nil {
		t.Fatal("expected error for empty items")
	}
	if _, err := fx.svc.CreatePurchase(ctx, fx.supplier.ID, []PurchaseItemInput{
		{IngredientID: fx.ingredient.ID, Quantity: -1, PricePerUnit: 100},
	}, time.Time{}, "", "mgr-1"); err == nil {
		t.Fatal("expected error for negative quantity")
	}
	if _, err := fx.svc.CreatePurchase(ctx, fx.supplier.ID, []PurchaseItemInput{
		{IngredientID: "missing", Quantity: 1, PricePerUnit: 100},
	}, time.Time{}, "", "mgr-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown ingredient error = %v, want ErrNotFound", err)
	}

	inactive, err := fx.svc.CreateSupplier(ctx, supplier.Supplier{Name: "Closed Down"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	inactive.Active = false
	if _, err := fx.store.UpdateSupplier(ctx, inactive); err != nil {
		t.Fatalf("UpdateSupplier: %v", err)
	}
	if _, err := fx.svc.CreatePurchase(ctx, inactive.ID, []PurchaseItemInput{
		{IngredientID: fx.ingredient.ID, Quantity: 1, PricePerUnit: 100},
	}, time.Time{}, "", "mgr-1"); err == nil {
		t.Fatal("expected error for inactive supplier")
	}
}

func TestConfirmPurchaseOnlyFromDraft(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	p := fx.confirmedPurchase(t, 5, 100000)
	if p.Status != supplier.PurchaseConfirmed {
		t.Fatalf("status = %s, want %s", p.Status, supplier.PurchaseConfirmed)
	}
	if _, err := fx.svc.ConfirmPurchase(ctx, p.ID, "mgr-1"); err == nil {
		t.Fatal("expected error confirming twice")
	}
}

func TestCancelPurchase(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	p := fx.confirmedPurchase(t, 5, 100000)
	p, err := fx.svc.CancelPurchase(ctx, p.ID)
	if err != nil {
		t.Fatalf("CancelPurchase: %v", err)
	}
	if p.Status != supplier.PurchaseCancelled {
		t.Fatalf("status = %s, want %s", p.Status, supplier.PurchaseCancelled)
	}
	if _, err := fx.svc.ReceivePurchase(ctx, p.ID, "", nil, "wh-1"); err == nil {
		t.Fatal("expected error receiving a cancelled purchase")
	}
}

func TestReceivePurchaseBooksStockAndExpense(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	p := fx.confirmedPurchase(t, 10, 120000)
	// One kilo short of the order.
	p, err := fx.svc.ReceivePurchase(ctx, p.ID, "main", map[string]float64{fx.ingredient.ID: 9}, "wh-1")
	if err != nil {
		t.Fatalf("ReceivePurchase: %v", err)
	}
	if p.Status != supplier.PurchaseReceived {
		t.Fatalf("status = %s, want %s", p.Status, supplier.PurchaseReceived)
	}
	if p.Items[0].ReceivedQuantity != 9 {
		t.Fatalf("ReceivedQuantity = %v, want 9", p.Items[0].ReceivedQuantity)
	}

	lvl, err := fx.inventory.Level(ctx, domaininv.Location{Type: domaininv.LocationWarehouse, ID: "main"}, fx.ingredient.ID)
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if lvl.Quantity != 9 {
		t.Fatalf("warehouse level = %v, want 9", lvl.Quantity)
	}

	// Only the delivered quantity is paid for.
	txs, err := fx.store.ListTransactions(ctx, storage.TransactionFilter{Category: finance.CategoryPurchase})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txs))
	}
	tx := txs[0]
	if tx.Amount != 1080000 {
		t.Fatalf("expense amount = %v, want 1080000", tx.Amount)
	}
	if tx.FromAccountID != fx.bank.ID {
		t.Fatalf("expense account = %s, want %s", tx.FromAccountID, fx.bank.ID)
	}
	if tx.ReferenceType != "purchase" || tx.ReferenceID != p.ID {
		t.Fatalf("expense reference = %s/%s, want purchase/%s", tx.ReferenceType, tx.ReferenceID, p.ID)
	}
}

func TestReceivePurchaseRequiresConfirmed(t *testing.T) {
	fx := newSuppliersFixture(t)
	ctx := context.Background()

	p, err := fx.svc.CreatePurchase(ctx, fx.supplier.ID, []PurchaseItemInput{
		{IngredientID: fx.ingredient.ID, Quantity: 1, PricePerUnit: 100},
	}, time.Time{}, "", "mgr-1")
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if _, err := fx.svc.ReceivePurchase(ctx, p.ID, "", nil, "wh-1"); err == nil {
		t.Fatal("expected error receiving a draft purchase")
	}
}
