package collections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/collection"
	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

type collectionsFixture struct {
	svc     *Service
	store   *memory.Store
	machine machine.Machine
}

func newCollectionsFixture(t *testing.T) collectionsFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, store, logger.NewNop())

	m, err := store.CreateMachine(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee, Status: machine.StatusActive})
	if err != nil {
		t.Fatalf("CreateMachine: %v", err)
	}
	return collectionsFixture{svc: svc, store: store, machine: m}
}

func (fx collectionsFixture) seedCashSale(t *testing.T, amount float64, soldAt time.Time) sale.Sale {
	t.Helper()
	s, err := fx.store.CreateSale(context.Background(), sale.Sale{
		MachineID:     fx.machine.ID,
		Quantity:      1,
		TotalAmount:   amount,
		PaymentMethod: sale.MethodCash,
		SyncStatus:    sale.SyncPending,
		SoldAt:        soldAt,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	return s
}

func TestStartCollection(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Status != collection.StatusInProgress {
		t.Fatalf("status = %s, want %s", c.Status, collection.StatusInProgress)
	}
	if c.OperatorID != "op-1" {
		t.Fatalf("operator = %q, want op-1", c.OperatorID)
	}

	// A machine carries at most one open collection.
	if _, err := fx.svc.Start(ctx, fx.machine.ID, "op-2"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("second Start error = %v, want ErrConflict", err)
	}
}

func TestStartCollectionRequiresMachine(t *testing.T) {
	fx := newCollectionsFixture(t)
	if _, err := fx.svc.Start(context.Background(), "missing", "op-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Start error = %v, want ErrNotFound", err)
	}
}

func TestSetDenominationsComputesAmounts(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	c, err = fx.svc.SetDenominations(ctx, c.ID, "op-1", []collection.Denomination{
		{Value: 10000, Quantity: 3},
		{Value: 5000, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("SetDenominations: %v", err)
	}
	if c.AmountCollected != 40000 {
		t.Fatalf("AmountCollected = %v, want 40000", c.AmountCollected)
	}
	if c.Denominations[0].Amount != 30000 {
		t.Fatalf("first denomination amount = %v, want 30000", c.Denominations[0].Amount)
	}

	if _, err := fx.svc.SetDenominations(ctx, c.ID, "op-1", []collection.Denomination{{Value: 0, Quantity: 1}}); err == nil {
		t.Fatal("expected error for zero denomination value")
	}
}

func TestSetDenominationsRejectsForeignOperator(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.SetDenominations(ctx, c.ID, "op-2", []collection.Denomination{{Value: 1000, Quantity: 1}}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("error = %v, want ErrNotOwner", err)
	}
}

func TestCompleteComputesDiscrepancy(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()
	soldAt := time.Now().UTC().Add(-time.Hour)

	fx.seedCashSale(t, 15000, soldAt)
	fx.seedCashSale(t, 15000, soldAt.Add(time.Minute))
	// Non-cash revenue stays out of the expected amount.
	if _, err := fx.store.CreateSale(ctx, sale.Sale{
		MachineID:     fx.machine.ID,
		Quantity:      1,
		TotalAmount:   20000,
		PaymentMethod: sale.MethodPayme,
		SyncStatus:    sale.SyncPending,
		SoldAt:        soldAt,
	}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.SetDenominations(ctx, c.ID, "op-1", []collection.Denomination{{Value: 1000, Quantity: 28}}); err != nil {
		t.Fatalf("SetDenominations: %v", err)
	}
	c, err = fx.svc.Complete(ctx, c.ID, "op-1", "short till")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Status != collection.StatusCompleted {
		t.Fatalf("status = %s, want %s", c.Status, collection.StatusCompleted)
	}
	if c.ExpectedAmount != 30000 {
		t.Fatalf("ExpectedAmount = %v, want 30000", c.ExpectedAmount)
	}
	if c.Discrepancy != -2000 {
		t.Fatalf("Discrepancy = %v, want -2000", c.Discrepancy)
	}
}

func TestCompleteRequiresDenominations(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.Complete(ctx, c.ID, "op-1", ""); err == nil {
		t.Fatal("expected error completing without a count")
	}
}

func TestVerifySettlesCashSales(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()
	soldAt := time.Now().UTC().Add(-time.Hour)

	cash := fx.seedCashSale(t, 15000, soldAt)
	payme, err := fx.store.CreateSale(ctx, sale.Sale{
		MachineID:     fx.machine.ID,
		Quantity:      1,
		TotalAmount:   20000,
		PaymentMethod: sale.MethodPayme,
		SyncStatus:    sale.SyncPending,
		SoldAt:        soldAt,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.SetDenominations(ctx, c.ID, "op-1", []collection.Denomination{{Value: 5000, Quantity: 3}}); err != nil {
		t.Fatalf("SetDenominations: %v", err)
	}
	if _, err := fx.svc.Complete(ctx, c.ID, "op-1", ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	c, err = fx.svc.Verify(ctx, c.ID, "mgr-1", true, "counted twice")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Status != collection.StatusVerified {
		t.Fatalf("status = %s, want %s", c.Status, collection.StatusVerified)
	}

	settled, err := fx.store.GetSale(ctx, cash.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if settled.SyncStatus != sale.SyncMatched {
		t.Fatalf("cash sale sync = %s, want %s", settled.SyncStatus, sale.SyncMatched)
	}
	untouched, err := fx.store.GetSale(ctx, payme.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if untouched.SyncStatus != sale.SyncPending {
		t.Fatalf("payme sale sync = %s, want %s", untouched.SyncStatus, sale.SyncPending)
	}

	payments, err := fx.store.ListPayments(ctx, storage.PaymentFilter{Source: "collection"})
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(payments))
	}
	if !payments[0].Verified || payments[0].Amount != 15000 {
		t.Fatalf("payment = %+v, want verified 15000", payments[0])
	}
}

func TestVerifyRejectedLeavesSalesPending(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()
	cash := fx.seedCashSale(t, 15000, time.Now().UTC().Add(-time.Hour))

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.SetDenominations(ctx, c.ID, "op-1", []collection.Denomination{{Value: 5000, Quantity: 1}}); err != nil {
		t.Fatalf("SetDenominations: %v", err)
	}
	if _, err := fx.svc.Complete(ctx, c.ID, "op-1", ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	c, err = fx.svc.Verify(ctx, c.ID, "mgr-1", false, "bag was light")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Status != collection.StatusRejected {
		t.Fatalf("status = %s, want %s", c.Status, collection.StatusRejected)
	}

	still, err := fx.store.GetSale(ctx, cash.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if still.SyncStatus != sale.SyncPending {
		t.Fatalf("cash sale sync = %s, want %s", still.SyncStatus, sale.SyncPending)
	}
}

func TestVerifyRequiresCompleted(t *testing.T) {
	fx := newCollectionsFixture(t)
	ctx := context.Background()

	c, err := fx.svc.Start(ctx, fx.machine.ID, "op-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := fx.svc.Verify(ctx, c.ID, "mgr-1", true, ""); err == nil {
		t.Fatal("expected error verifying an open collection")
	}
}
