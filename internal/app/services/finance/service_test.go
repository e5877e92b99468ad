package finance

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

func newFinanceService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store, logger.NewNop())
	if err := svc.EnsureDefaultAccounts(context.Background()); err != nil {
		t.Fatalf("EnsureDefaultAccounts: %v", err)
	}
	return svc, store
}

func accountByCode(t *testing.T, store *memory.Store, code string) finance.Account {
	t.Helper()
	acc, err := store.GetFinanceAccountByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("GetFinanceAccountByCode(%s): %v", code, err)
	}
	return acc
}

func TestEnsureDefaultAccountsIsIdempotent(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()

	if err := svc.EnsureDefaultAccounts(ctx); err != nil {
		t.Fatalf("EnsureDefaultAccounts() second run error = %v", err)
	}
	accounts, err := store.ListFinanceAccounts(ctx)
	if err != nil {
		t.Fatalf("ListFinanceAccounts: %v", err)
	}
	if len(accounts) != 5 {
		t.Fatalf("accounts = %d, want 5", len(accounts))
	}
}

func TestPostIncomeMovesBalance(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()
	cash := accountByCode(t, store, "cash_main")

	_, err := svc.Post(ctx, finance.Transaction{
		Type: finance.TypeIncome, Category: finance.CategorySales,
		ToAccountID: cash.ID, Amount: 50000,
	})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if got := accountByCode(t, store, "cash_main").Balance; got != 50000 {
		t.Fatalf("cash balance = %v, want 50000", got)
	}
}

func TestPostTransferMovesBothBalances(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()
	cash := accountByCode(t, store, "cash_main")
	bank := accountByCode(t, store, "bank_main")

	if _, err := svc.Post(ctx, finance.Transaction{
		Type: finance.TypeIncome, ToAccountID: cash.ID, Amount: 80000,
	}); err != nil {
		t.Fatalf("Post(income) error = %v", err)
	}
	if _, err := svc.Post(ctx, finance.Transaction{
		Type: finance.TypeTransfer, FromAccountID: cash.ID, ToAccountID: bank.ID, Amount: 30000,
	}); err != nil {
		t.Fatalf("Post(transfer) error = %v", err)
	}

	if got := accountByCode(t, store, "cash_main").Balance; got != 50000 {
		t.Fatalf("cash balance = %v, want 50000", got)
	}
	if got := accountByCode(t, store, "bank_main").Balance; got != 30000 {
		t.Fatalf("bank balance = %v, want 30000", got)
	}
}

func TestPostValidatesAccountSides(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()
	cash := accountByCode(t, store, "cash_main")

	cases := []finance.Transaction{
		{Type: finance.TypeIncome, FromAccountID: cash.ID, ToAccountID: cash.ID, Amount: 100},
		{Type: finance.TypeExpense, ToAccountID: cash.ID, FromAccountID: cash.ID, Amount: 100},
		{Type: finance.TypeTransfer, FromAccountID: cash.ID, ToAccountID: cash.ID, Amount: 100},
		{Type: finance.TypeIncome, ToAccountID: cash.ID, Amount: -5},
		{Type: "loan", ToAccountID: cash.ID, Amount: 100},
	}
	for i, tx := range cases {
		if _, err := svc.Post(ctx, tx); err == nil {
			t.Fatalf("Post() case %d succeeded, want error", i)
		}
	}
}

func TestSummaryIgnoresTransfers(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()
	cash := accountByCode(t, store, "cash_main")
	bank := accountByCode(t, store, "bank_main")

	txs := []finance.Transaction{
		{Type: finance.TypeIncome, Category: finance.CategorySales, ToAccountID: cash.ID, Amount: 100000},
		{Type: finance.TypeExpense, Category: finance.CategoryRent, FromAccountID: cash.ID, Amount: 40000},
		{Type: finance.TypeTransfer, FromAccountID: cash.ID, ToAccountID: bank.ID, Amount: 10000},
	}
	for _, tx := range txs {
		if _, err := svc.Post(ctx, tx); err != nil {
			t.Fatalf("Post(%s) error = %v", tx.Type, err)
		}
	}

	summary, err := svc.Summary(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.TotalIncome != 100000 || summary.TotalExpense != 40000 || summary.Net != 60000 {
		t.Fatalf("summary = %+v, want income 100000 expense 40000 net 60000", summary)
	}
	if summary.ByCategory[finance.CategorySales] != 100000 {
		t.Fatalf("sales category = %v, want 100000", summary.ByCategory[finance.CategorySales])
	}
}

func TestMachineExpenses(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()
	cash := accountByCode(t, store, "cash_main")

	post := func(machineID string, amount float64) {
		t.Helper()
		if _, err := svc.Post(ctx, finance.Transaction{
			Type: finance.TypeExpense, Category: finance.CategoryRepair,
			FromAccountID: cash.ID, Amount: amount,
			ReferenceType: "machine", ReferenceID: machineID,
		}); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	post("m1", 20000)
	post("m1", 5000)
	post("m2", 7000)

	total, err := svc.MachineExpenses(ctx, "m1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("MachineExpenses() error = %v", err)
	}
	if total != 25000 {
		t.Fatalf("MachineExpenses(m1) = %v, want 25000", total)
	}
}

func TestExportCSV(t *testing.T) {
	svc, store := newFinanceService(t)
	ctx := context.Background()
	cash := accountByCode(t, store, "cash_main")

	if _, err := svc.Post(ctx, finance.Transaction{
		Type: finance.TypeIncome, Category: finance.CategorySales,
		ToAccountID: cash.ID, Amount: 15000, Description: "espresso",
	}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, &buf, time.Time{}, time.Time{}); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,occurred_at,type") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "cash_main") || !strings.Contains(lines[1], "15000.00") {
		t.Fatalf("row = %q, want account code and amount", lines[1])
	}
}
