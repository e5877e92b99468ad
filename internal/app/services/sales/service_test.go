package sales

import (
	"context"
	"testing"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/catalog"
	"github.com/vendnet/vendops/internal/app/domain/finance"
	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	invsvc "github.com/vendnet/vendops/internal/app/services/inventory"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

type salesFixture struct {
	svc        *Service
	store      *memory.Store
	inventory  *invsvc.Service
	machine    machine.Machine
	product    catalog.Product
	ingredient domaininv.Ingredient
	account    finance.Account
}

func newSalesFixture(t *testing.T) salesFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	inv := invsvc.New(store, logger.NewNop())
	svc := New(store, store, store, store, inv, logger.NewNop())

	m, err := store.CreateMachine(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee, Status: machine.StatusActive})
	if err != nil {
		t.Fatalf("CreateMachine: %v", err)
	}
	p, err := store.CreateProduct(ctx, catalog.Product{Code: "ESP", Name: "Espresso", Price: 15000, Active: true})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	ing, err := store.CreateIngredient(ctx, domaininv.Ingredient{Code: "COFFEE", Name: "Beans", Unit: domaininv.UnitKg})
	if err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}
	r, err := store.CreateRecipe(ctx, catalog.Recipe{
		ProductID: p.ID,
		Version:   1,
		Items:     []catalog.RecipeItem{{IngredientID: ing.ID, Quantity: 0.02}},
	})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	if err := store.SetActiveRecipe(ctx, p.ID, r.ID); err != nil {
		t.Fatalf("SetActiveRecipe: %v", err)
	}
	acc, err := store.CreateFinanceAccount(ctx, finance.Account{Code: "wallet_payme", Name: "Payme", Type: finance.AccountWallet, Active: true})
	if err != nil {
		t.Fatalf("CreateFinanceAccount: %v", err)
	}

	// Stock the machine for two espressos.
	loc := domaininv.Location{Type: domaininv.LocationMachine, ID: m.ID}
	if _, err := inv.Receive(ctx, loc, invsvc.Movement{IngredientID: ing.ID, Quantity: 0.04}, ""); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	return salesFixture{svc: svc, store: store, inventory: inv, machine: m, product: p, ingredient: ing, account: acc}
}

func TestRecordSale(t *testing.T) {
	fx := newSalesFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Record(ctx, RecordInput{
		MachineID:     fx.machine.ID,
		ProductID:     fx.product.ID,
		Quantity:      1,
		PaymentMethod: sale.MethodPayme,
		TransactionID: "tx-100",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if created.TotalAmount != 15000 {
		t.Fatalf("TotalAmount = %v, want 15000 (product price default)", created.TotalAmount)
	}
	if created.SyncStatus != sale.SyncPending {
		t.Fatalf("SyncStatus = %s, want pending", created.SyncStatus)
	}

	// Revenue lands on the wallet account.
	acc, err := fx.store.GetFinanceAccount(ctx, fx.account.ID)
	if err != nil {
		t.Fatalf("GetFinanceAccount: %v", err)
	}
	if acc.Balance != 15000 {
		t.Fatalf("account balance = %v, want 15000", acc.Balance)
	}

	// One recipe portion consumed from the machine.
	loc := domaininv.Location{Type: domaininv.LocationMachine, ID: fx.machine.ID}
	level, err := fx.inventory.Level(ctx, loc, fx.ingredient.ID)
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if level.Quantity != 0.02 {
		t.Fatalf("machine stock = %v, want 0.02", level.Quantity)
	}
}

func TestRecordSaleFloorsDraindedStock(t *testing.T) {
	fx := newSalesFixture(t)
	ctx := context.Background()

	// Three espressos against stock for two; the third sale floors at zero.
	for i := 0; i < 3; i++ {
		if _, err := fx.svc.Record(ctx, RecordInput{
			MachineID:     fx.machine.ID,
			ProductID:     fx.product.ID,
			PaymentMethod: sale.MethodCash,
		}); err != nil {
			t.Fatalf("Record() #%d error = %v", i+1, err)
		}
	}

	loc := domaininv.Location{Type: domaininv.LocationMachine, ID: fx.machine.ID}
	level, err := fx.inventory.Level(ctx, loc, fx.ingredient.ID)
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if level.Quantity != 0 {
		t.Fatalf("machine stock = %v, want 0", level.Quantity)
	}
}

func TestRecordSaleRejectsInactiveProduct(t *testing.T) {
	fx := newSalesFixture(t)
	ctx := context.Background()

	fx.product.Active = false
	if _, err := fx.store.UpdateProduct(ctx, fx.product); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if _, err := fx.svc.Record(ctx, RecordInput{
		MachineID:     fx.machine.ID,
		ProductID:     fx.product.ID,
		PaymentMethod: sale.MethodCash,
	}); err == nil {
		t.Fatal("Record(inactive product) succeeded, want error")
	}
}

func TestRecordSaleRejectsUnknownMethod(t *testing.T) {
	fx := newSalesFixture(t)
	if _, err := fx.svc.Record(context.Background(), RecordInput{
		MachineID:     fx.machine.ID,
		ProductID:     fx.product.ID,
		PaymentMethod: "crypto",
	}); err == nil {
		t.Fatal("Record(unknown method) succeeded, want error")
	}
}

func TestIngestPaymentExtractsFromRawData(t *testing.T) {
	fx := newSalesFixture(t)

	p, err := fx.svc.IngestPayment(context.Background(), sale.Payment{
		Source:  "payme",
		Method:  sale.MethodPayme,
		PaidAt:  time.Now(),
		RawData: []byte(`{"transaction_id":"tx-55","amount":12000,"state":2}`),
	})
	if err != nil {
		t.Fatalf("IngestPayment() error = %v", err)
	}
	if p.ExternalID != "tx-55" {
		t.Fatalf("ExternalID = %q, want tx-55", p.ExternalID)
	}
	if p.Amount != 12000 {
		t.Fatalf("Amount = %v, want 12000", p.Amount)
	}
}

func TestIngestPaymentRequiresAmount(t *testing.T) {
	fx := newSalesFixture(t)
	if _, err := fx.svc.IngestPayment(context.Background(), sale.Payment{
		Source: "click",
		Method: sale.MethodClick,
	}); err == nil {
		t.Fatal("IngestPayment(no amount) succeeded, want error")
	}
}
