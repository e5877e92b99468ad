// Package finance manages accounts, money movements and reporting.
package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// defaultAccounts are created at startup when absent so sales revenue
// always has somewhere to land.
var defaultAccounts = []finance.Account{
	{Code: "cash_main", Name: "Cash on hand", Type: finance.AccountCash},
	{Code: "bank_main", Name: "Main bank account", Type: finance.AccountBank},
	{Code: "wallet_payme", Name: "Payme wallet", Type: finance.AccountWallet},
	{Code: "wallet_click", Name: "Click wallet", Type: finance.AccountWallet},
	{Code: "wallet_uzum", Name: "Uzum wallet", Type: finance.AccountWallet},
}

// Service manages the finance ledger.
type Service struct {
	store storage.FinanceStore
	log   *logger.Logger
}

// New constructs a finance service.
func New(store storage.FinanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("finance")
	}
	return &Service{store: store, log: log}
}

// EnsureDefaultAccounts creates the built-in account set when missing.
func (s *Service) EnsureDefaultAccounts(ctx context.Context) error {
	for _, a := range defaultAccounts {
		_, err := s.store.GetFinanceAccountByCode(ctx, a.Code)
		if err == nil {
			continue
		}
		a.Active = true
		a.Currency = "UZS"
		if _, err := s.store.CreateFinanceAccount(ctx, a); err != nil {
			return fmt.Errorf("seed account %s: %w", a.Code, err)
		}
	}
	s.log.Info("default accounts ensured")
	return nil
}

// CreateAccount registers a finance account.
func (s *Service) CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	a.Code = strings.TrimSpace(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	if a.Code == "" || a.Name == "" {
		return finance.Account{}, fmt.Errorf("code and name are required")
	}
	if !finance.ValidAccountType(a.Type) {
		return finance.Account{}, fmt.Errorf("unsupported account type %q", a.Type)
	}
	a.Active = true
	created, err := s.store.CreateFinanceAccount(ctx, a)
	if err != nil {
		return finance.Account{}, err
	}
	s.log.WithField("account_id", created.ID).
		WithField("code", created.Code).
		Info("account created")
	return created, nil
}

// GetAccount fetches one account.
func (s *Service) GetAccount(ctx context.Context, id string) (finance.Account, error) {
	return s.store.GetFinanceAccount(ctx, id)
}

// ListAccounts lists all accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]finance.Account, error) {
	return s.store.ListFinanceAccounts(ctx)
}

// Post validates and books a money movement. Income needs only a
// destination, expense only a source, transfer both.
func (s *Service) Post(ctx context.Context, t finance.Transaction) (finance.Transaction, error) {
	if t.Amount <= 0 {
		return finance.Transaction{}, fmt.Errorf("amount must be positive")
	}
	switch t.Type {
	case finance.TypeIncome:
		if t.ToAccountID == "" || t.FromAccountID != "" {
			return finance.Transaction{}, fmt.Errorf("income needs to_account_id only")
		}
	case finance.TypeExpense:
		if t.FromAccountID == "" || t.ToAccountID != "" {
			return finance.Transaction{}, fmt.Errorf("expense needs from_account_id only")
		}
	case finance.TypeTransfer:
		if t.FromAccountID == "" || t.ToAccountID == "" {
			return finance.Transaction{}, fmt.Errorf("transfer needs both accounts")
		}
		if t.FromAccountID == t.ToAccountID {
			return finance.Transaction{}, fmt.Errorf("transfer accounts must differ")
		}
	default:
		return finance.Transaction{}, fmt.Errorf("unsupported transaction type %q", t.Type)
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return finance.Transaction{}, err
	}
	s.log.WithField("transaction_id", created.ID).
		WithField("type", string(created.Type)).
		WithField("amount", created.Amount).
		Info("transaction posted")
	return created, nil
}

// GetTransaction fetches one transaction.
func (s *Service) GetTransaction(ctx context.Context, id string) (finance.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// ListTransactions lists movements matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]finance.Transaction, error) {
	return s.store.ListTransactions(ctx, filter)
}

// Summary aggregates income and expense over the period. Transfers
// move money between own accounts and do not count either way.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (finance.Summary, error) {
	transactions, err := s.store.ListTransactions(ctx, storage.TransactionFilter{From: from, To: to})
	if err != nil {
		return finance.Summary{}, err
	}
	summary := finance.Summary{
		From:       from,
		To:         to,
		ByCategory: make(map[finance.Category]float64),
	}
	for _, t := range transactions {
		switch t.Type {
		case finance.TypeIncome:
			summary.TotalIncome += t.Amount
			summary.ByCategory[t.Category] += t.Amount
		case finance.TypeExpense:
			summary.TotalExpense += t.Amount
			summary.ByCategory[t.Category] -= t.Amount
		}
	}
	summary.Net = summary.TotalIncome - summary.TotalExpense
	return summary, nil
}

// MachineExpenses sums expense transactions referencing a machine over
// the period.
func (s *Service) MachineExpenses(ctx context.Context, machineID string, from, to time.Time) (float64, error) {
	transactions, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
		Type:          finance.TypeExpense,
		ReferenceType: "machine",
		ReferenceID:   machineID,
		From:          from,
		To:            to,
	})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, t := range transactions {
		total += t.Amount
	}
	return total, nil
}
