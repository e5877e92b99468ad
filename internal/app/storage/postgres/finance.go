package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/storage"
)

const accountColumns = `id, code, name, type, currency, balance, active,
	description, created_at, updated_at`

func (s *Store) CreateFinanceAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Currency == "" {
		a.Currency = "UZS"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO finance_accounts (id, code, name, type, currency, balance, active,
			description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.Code, a.Name, a.Type, a.Currency, a.Balance, a.Active,
		a.Description, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return finance.Account{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) UpdateFinanceAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE finance_accounts
		SET code = $2, name = $3, type = $4, currency = $5, active = $6,
			description = $7, updated_at = $8
		WHERE id = $1
	`, a.ID, a.Code, a.Name, a.Type, a.Currency, a.Active, a.Description, a.UpdatedAt)
	if err != nil {
		return finance.Account{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return finance.Account{}, storage.ErrNotFound
	}
	return s.GetFinanceAccount(ctx, a.ID)
}

func (s *Store) GetFinanceAccount(ctx context.Context, id string) (finance.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM finance_accounts WHERE id = $1
	`, id)
	a, err := scanAccount(row)
	if err != nil {
		return finance.Account{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) GetFinanceAccountByCode(ctx context.Context, code string) (finance.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM finance_accounts WHERE code = $1
	`, code)
	a, err := scanAccount(row)
	if err != nil {
		return finance.Account{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) ListFinanceAccounts(ctx context.Context) ([]finance.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM finance_accounts ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []finance.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanAccount(row rowScanner) (finance.Account, error) {
	var a finance.Account
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Currency, &a.Balance,
		&a.Active, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return finance.Account{}, err
	}
	return a, nil
}

const transactionColumns = `id, type, category, from_account_id, to_account_id, amount,
	description, reference_type, reference_id, created_by_id, occurred_at, created_at`

// CreateTransaction inserts the movement and adjusts the affected
// account balances in one database transaction.
func (s *Store) CreateTransaction(ctx context.Context, t finance.Transaction) (finance.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	if t.OccurredAt.IsZero() {
		t.OccurredAt = t.CreatedAt
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return finance.Transaction{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO finance_transactions (id, type, category, from_account_id, to_account_id,
			amount, description, reference_type, reference_id, created_by_id, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.Type, t.Category, toNullString(t.FromAccountID), toNullString(t.ToAccountID),
		t.Amount, t.Description, t.ReferenceType, t.ReferenceID, toNullString(t.CreatedByID),
		t.OccurredAt, t.CreatedAt)
	if err != nil {
		return finance.Transaction{}, mapErr(err)
	}

	if t.FromAccountID != "" {
		if err := adjustBalance(ctx, tx, t.FromAccountID, -t.Amount); err != nil {
			return finance.Transaction{}, err
		}
	}
	if t.ToAccountID != "" {
		if err := adjustBalance(ctx, tx, t.ToAccountID, t.Amount); err != nil {
			return finance.Transaction{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return finance.Transaction{}, err
	}
	return t, nil
}

func adjustBalance(ctx context.Context, tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, accountID string, delta float64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE finance_accounts SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`, accountID, delta)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (finance.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM finance_transactions WHERE id = $1
	`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return finance.Transaction{}, mapErr(err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]finance.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM finance_transactions WHERE TRUE`
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type = $` + itoa(len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category = $` + itoa(len(args))
	}
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		n := itoa(len(args))
		query += ` AND (from_account_id = $` + n + ` OR to_account_id = $` + n + `)`
	}
	if filter.ReferenceType != "" {
		args = append(args, filter.ReferenceType)
		query += ` AND reference_type = $` + itoa(len(args))
	}
	if filter.ReferenceID != "" {
		args = append(args, filter.ReferenceID)
		query += ` AND reference_id = $` + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND occurred_at >= $` + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND occurred_at < $` + itoa(len(args))
	}
	query += ` ORDER BY occurred_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []finance.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTransaction(row rowScanner) (finance.Transaction, error) {
	var (
		t         finance.Transaction
		fromAcct  sql.NullString
		toAcct    sql.NullString
		createdBy sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Type, &t.Category, &fromAcct, &toAcct, &t.Amount,
		&t.Description, &t.ReferenceType, &t.ReferenceID, &createdBy,
		&t.OccurredAt, &t.CreatedAt); err != nil {
		return finance.Transaction{}, err
	}
	t.FromAccountID = fromNullString(fromAcct)
	t.ToAccountID = fromNullString(toAcct)
	t.CreatedByID = fromNullString(createdBy)
	return t, nil
}
