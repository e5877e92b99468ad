package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/investment"
	"github.com/vendnet/vendops/internal/app/storage"
)

const investmentColumns = `id, machine_id, investor_id, amount, share_percent,
	status, invested_at, notes, created_at, updated_at`

func (s *Store) CreateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if inv.InvestedAt.IsZero() {
		inv.InvestedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investments (id, machine_id, investor_id, amount, share_percent,
			status, invested_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, inv.ID, inv.MachineID, inv.InvestorID, inv.Amount, inv.SharePercent,
		inv.Status, inv.InvestedAt, inv.Notes, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, mapErr(err)
	}
	return inv, nil
}

func (s *Store) UpdateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	inv.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE investments
		SET machine_id = $2, investor_id = $3, amount = $4, share_percent = $5,
			status = $6, invested_at = $7, notes = $8, updated_at = $9
		WHERE id = $1
	`, inv.ID, inv.MachineID, inv.InvestorID, inv.Amount, inv.SharePercent,
		inv.Status, inv.InvestedAt, inv.Notes, inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return investment.Investment{}, storage.ErrNotFound
	}
	return inv, nil
}

func (s *Store) GetInvestment(ctx context.Context, id string) (investment.Investment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+investmentColumns+` FROM investments WHERE id = $1
	`, id)
	inv, err := scanInvestment(row)
	if err != nil {
		return investment.Investment{}, mapErr(err)
	}
	return inv, nil
}

func (s *Store) ListInvestments(ctx context.Context, filter storage.InvestmentFilter) ([]investment.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE TRUE`
	args := []any{}
	if filter.MachineID != "" {
		args = append(args, filter.MachineID)
		query += ` AND machine_id = $` + itoa(len(args))
	}
	if filter.InvestorID != "" {
		args = append(args, filter.InvestorID)
		query += ` AND investor_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY invested_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []investment.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func scanInvestment(row rowScanner) (investment.Investment, error) {
	var inv investment.Investment
	if err := row.Scan(&inv.ID, &inv.MachineID, &inv.InvestorID, &inv.Amount,
		&inv.SharePercent, &inv.Status, &inv.InvestedAt, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return investment.Investment{}, err
	}
	return inv, nil
}

const payoutColumns = `id, investment_id, period_start, period_end, total_revenue,
	total_expenses, net_profit, rate, amount, status, scheduled_date, paid_at,
	reference, created_at, updated_at`

func (s *Store) CreatePayout(ctx context.Context, p investment.Payout) (investment.Payout, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payouts (id, investment_id, period_start, period_end, total_revenue,
			total_expenses, net_profit, rate, amount, status, scheduled_date, paid_at,
			reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, p.ID, p.InvestmentID, p.PeriodStart, p.PeriodEnd, p.TotalRevenue,
		p.TotalExpenses, p.NetProfit, p.Rate, p.Amount, p.Status,
		toNullTime(p.ScheduledDate), toNullTime(p.PaidAt), p.Reference,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return investment.Payout{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) UpdatePayout(ctx context.Context, p investment.Payout) (investment.Payout, error) {
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE payouts
		SET status = $2, scheduled_date = $3, paid_at = $4, reference = $5, updated_at = $6
		WHERE id = $1
	`, p.ID, p.Status, toNullTime(p.ScheduledDate), toNullTime(p.PaidAt),
		p.Reference, p.UpdatedAt)
	if err != nil {
		return investment.Payout{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return investment.Payout{}, storage.ErrNotFound
	}
	return s.GetPayout(ctx, p.ID)
}

func (s *Store) GetPayout(ctx context.Context, id string) (investment.Payout, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+payoutColumns+` FROM payouts WHERE id = $1
	`, id)
	p, err := scanPayout(row)
	if err != nil {
		return investment.Payout{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) ListPayouts(ctx context.Context, filter storage.PayoutFilter) ([]investment.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE TRUE`
	args := []any{}
	if filter.InvestmentID != "" {
		args = append(args, filter.InvestmentID)
		query += ` AND investment_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY period_start`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []investment.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanPayout(row rowScanner) (investment.Payout, error) {
	var (
		p         investment.Payout
		scheduled sql.NullTime
		paidAt    sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.InvestmentID, &p.PeriodStart, &p.PeriodEnd,
		&p.TotalRevenue, &p.TotalExpenses, &p.NetProfit, &p.Rate, &p.Amount,
		&p.Status, &scheduled, &paidAt, &p.Reference, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return investment.Payout{}, err
	}
	p.ScheduledDate = fromNullTime(scheduled)
	p.PaidAt = fromNullTime(paidAt)
	return p, nil
}
