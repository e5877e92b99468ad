package investments

import (
	"context"
	"testing"
	"time"

	domainfin "github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/domain/investment"
	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/domain/user"
	financesvc "github.com/vendnet/vendops/internal/app/services/finance"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

type investFixture struct {
	svc      *Service
	finance  *financesvc.Service
	store    *memory.Store
	machine  machine.Machine
	investor user.User
}

func newInvestFixture(t *testing.T) investFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	fin := financesvc.New(store, logger.NewNop())
	if err := fin.EnsureDefaultAccounts(ctx); err != nil {
		t.Fatalf("EnsureDefaultAccounts: %v", err)
	}
	svc := New(store, store, store, store, fin, 70, logger.NewNop())

	m, err := store.CreateMachine(ctx, machine.Machine{Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee, Status: machine.StatusActive})
	if err != nil {
		t.Fatalf("CreateMachine: %v", err)
	}
	u, err := store.CreateUser(ctx, user.User{Username: "investor1", FullName: "First Investor", Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return investFixture{svc: svc, finance: fin, store: store, machine: m, investor: u}
}

func (fx investFixture) stake(t *testing.T, share float64) investment.Investment {
	t.Helper()
	inv, err := fx.svc.Create(context.Background(), investment.Investment{
		MachineID:    fx.machine.ID,
		InvestorID:   fx.investor.ID,
		Amount:       1000000,
		SharePercent: share,
	})
	if err != nil {
		t.Fatalf("Create(stake %v%%): %v", share, err)
	}
	return inv
}

func TestCreateEnforcesShareCap(t *testing.T) {
	fx := newInvestFixture(t)
	fx.stake(t, 60)
	fx.stake(t, 40)

	_, err := fx.svc.Create(context.Background(), investment.Investment{
		MachineID:    fx.machine.ID,
		InvestorID:   fx.investor.ID,
		Amount:       500000,
		SharePercent: 1,
	})
	if err == nil {
		t.Fatal("Create() over 100% allocated share succeeded, want error")
	}
}

func TestCreateValidatesShareRange(t *testing.T) {
	fx := newInvestFixture(t)
	for _, share := range []float64{0, -5, 101} {
		if _, err := fx.svc.Create(context.Background(), investment.Investment{
			MachineID:    fx.machine.ID,
			InvestorID:   fx.investor.ID,
			Amount:       100,
			SharePercent: share,
		}); err == nil {
			t.Fatalf("Create(share %v) succeeded, want error", share)
		}
	}
}

func TestComputePayouts(t *testing.T) {
	fx := newInvestFixture(t)
	ctx := context.Background()
	fx.stake(t, 50)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	// 300000 revenue, 100000 machine expenses in the period.
	if _, err := fx.store.CreateSale(ctx, sale.Sale{
		MachineID: fx.machine.ID, TotalAmount: 300000,
		PaymentMethod: sale.MethodCash, SyncStatus: sale.SyncPending,
		SoldAt: start.Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	cash, err := fx.store.GetFinanceAccountByCode(ctx, "cash_main")
	if err != nil {
		t.Fatalf("GetFinanceAccountByCode: %v", err)
	}
	if _, err := fx.finance.Post(ctx, domainfin.Transaction{
		Type: domainfin.TypeExpense, Category: domainfin.CategoryRepair,
		FromAccountID: cash.ID, Amount: 100000,
		ReferenceType: "machine", ReferenceID: fx.machine.ID,
		OccurredAt: start.Add(48 * time.Hour),
	}); err != nil {
		t.Fatalf("Post(expense): %v", err)
	}

	payouts, err := fx.svc.ComputePayouts(ctx, fx.machine.ID, start, end)
	if err != nil {
		t.Fatalf("ComputePayouts() error = %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("payouts = %d, want 1", len(payouts))
	}
	p := payouts[0]
	// (300000 - 100000) * 70% pool * 50% share = 70000.
	if p.Amount != 70000 {
		t.Fatalf("payout amount = %v, want 70000", p.Amount)
	}
	if p.NetProfit != 200000 || p.TotalRevenue != 300000 || p.TotalExpenses != 100000 {
		t.Fatalf("payout = %+v, want revenue 300000 expenses 100000 net 200000", p)
	}
	if p.Status != investment.PayoutScheduled {
		t.Fatalf("status = %s, want scheduled", p.Status)
	}
	if !p.ScheduledDate.Equal(end.AddDate(0, 0, 7)) {
		t.Fatalf("scheduled date = %v, want %v", p.ScheduledDate, end.AddDate(0, 0, 7))
	}
}

func TestComputePayoutsSkipsLossMakingPeriod(t *testing.T) {
	fx := newInvestFixture(t)
	ctx := context.Background()
	fx.stake(t, 50)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	cash, err := fx.store.GetFinanceAccountByCode(ctx, "cash_main")
	if err != nil {
		t.Fatalf("GetFinanceAccountByCode: %v", err)
	}
	if _, err := fx.finance.Post(ctx, domainfin.Transaction{
		Type: domainfin.TypeExpense, Category: domainfin.CategoryRepair,
		FromAccountID: cash.ID, Amount: 50000,
		ReferenceType: "machine", ReferenceID: fx.machine.ID,
		OccurredAt: start.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Post(expense): %v", err)
	}

	payouts, err := fx.svc.ComputePayouts(ctx, fx.machine.ID, start, end)
	if err != nil {
		t.Fatalf("ComputePayouts() error = %v", err)
	}
	if len(payouts) != 0 {
		t.Fatalf("payouts = %+v, want none for a loss-making period", payouts)
	}
	stored, err := fx.svc.ListPayouts(ctx, storage.PayoutFilter{})
	if err != nil {
		t.Fatalf("ListPayouts: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("stored payouts = %+v, want none", stored)
	}
}

func TestMarkPaidPostsExpense(t *testing.T) {
	fx := newInvestFixture(t)
	ctx := context.Background()
	fx.stake(t, 100)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := fx.store.CreateSale(ctx, sale.Sale{
		MachineID: fx.machine.ID, TotalAmount: 100000,
		PaymentMethod: sale.MethodCash, SyncStatus: sale.SyncPending,
		SoldAt: start.Add(time.Hour),
	}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	payouts, err := fx.svc.ComputePayouts(ctx, fx.machine.ID, start, end)
	if err != nil || len(payouts) != 1 {
		t.Fatalf("ComputePayouts() = %v, %v", payouts, err)
	}

	paid, err := fx.svc.MarkPaid(ctx, payouts[0].ID, "bank_main", "wire-42")
	if err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if paid.Status != investment.PayoutPaid || paid.Reference != "wire-42" {
		t.Fatalf("paid = %+v, want paid status and reference wire-42", paid)
	}

	bank, err := fx.store.GetFinanceAccountByCode(ctx, "bank_main")
	if err != nil {
		t.Fatalf("GetFinanceAccountByCode: %v", err)
	}
	// 100000 * 70% pool * 100% share drawn from the bank account.
	if bank.Balance != -70000 {
		t.Fatalf("bank balance = %v, want -70000", bank.Balance)
	}

	// Paying twice is rejected.
	if _, err := fx.svc.MarkPaid(ctx, payouts[0].ID, "bank_main", "wire-43"); err == nil {
		t.Fatal("second MarkPaid() succeeded, want error")
	}
}
