package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/storage"
)

const saleColumns = `id, machine_id, product_id, quantity, unit_price, total_amount,
	payment_method, transaction_id, sync_status, raw_data, sold_at, created_at`

func (s *Store) CreateSale(ctx context.Context, sl sale.Sale) (sale.Sale, error) {
	if sl.ID == "" {
		sl.ID = uuid.NewString()
	}
	sl.CreatedAt = time.Now().UTC()
	if sl.SoldAt.IsZero() {
		sl.SoldAt = sl.CreatedAt
	}
	if sl.SyncStatus == "" {
		sl.SyncStatus = sale.SyncPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (id, machine_id, product_id, quantity, unit_price, total_amount,
			payment_method, transaction_id, sync_status, raw_data, sold_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, sl.ID, sl.MachineID, sl.ProductID, sl.Quantity, sl.UnitPrice, sl.TotalAmount,
		sl.PaymentMethod, sl.TransactionID, sl.SyncStatus, nullBytes(sl.RawData),
		sl.SoldAt, sl.CreatedAt)
	if err != nil {
		return sale.Sale{}, mapErr(err)
	}
	return sl, nil
}

func (s *Store) UpdateSale(ctx context.Context, sl sale.Sale) (sale.Sale, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET machine_id = $2, product_id = $3, quantity = $4, unit_price = $5,
			total_amount = $6, payment_method = $7, transaction_id = $8,
			sync_status = $9, sold_at = $10
		WHERE id = $1
	`, sl.ID, sl.MachineID, sl.ProductID, sl.Quantity, sl.UnitPrice, sl.TotalAmount,
		sl.PaymentMethod, sl.TransactionID, sl.SyncStatus, sl.SoldAt)
	if err != nil {
		return sale.Sale{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sale.Sale{}, storage.ErrNotFound
	}
	return sl, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (sale.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1
	`, id)
	sl, err := scanSale(row)
	if err != nil {
		return sale.Sale{}, mapErr(err)
	}
	return sl, nil
}

func (s *Store) ListSales(ctx context.Context, filter storage.SaleFilter) ([]sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE TRUE`
	args := []any{}
	if filter.MachineID != "" {
		args = append(args, filter.MachineID)
		query += ` AND machine_id = $` + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND sold_at >= $` + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND sold_at < $` + itoa(len(args))
	}
	if filter.SyncStatus != "" {
		args = append(args, filter.SyncStatus)
		query += ` AND sync_status = $` + itoa(len(args))
	}
	query += ` ORDER BY sold_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sale.Sale
	for rows.Next() {
		sl, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sl)
	}
	return result, rows.Err()
}

func scanSale(row rowScanner) (sale.Sale, error) {
	var (
		sl  sale.Sale
		raw []byte
	)
	if err := row.Scan(&sl.ID, &sl.MachineID, &sl.ProductID, &sl.Quantity, &sl.UnitPrice,
		&sl.TotalAmount, &sl.PaymentMethod, &sl.TransactionID, &sl.SyncStatus,
		&raw, &sl.SoldAt, &sl.CreatedAt); err != nil {
		return sale.Sale{}, err
	}
	sl.RawData = raw
	return sl, nil
}

const paymentColumns = `id, sale_id, source, external_id, amount, method, paid_at,
	verified, verified_at, verification_notes, raw_data, created_at`

func (s *Store) CreatePayment(ctx context.Context, p sale.Payment) (sale.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	if p.PaidAt.IsZero() {
		p.PaidAt = p.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, sale_id, source, external_id, amount, method, paid_at,
			verified, verified_at, verification_notes, raw_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, toNullString(p.SaleID), p.Source, p.ExternalID, p.Amount, p.Method, p.PaidAt,
		p.Verified, toNullTime(p.VerifiedAt), p.VerificationNotes, nullBytes(p.RawData),
		p.CreatedAt)
	if err != nil {
		return sale.Payment{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p sale.Payment) (sale.Payment, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET sale_id = $2, source = $3, external_id = $4, amount = $5, method = $6,
			paid_at = $7, verified = $8, verified_at = $9, verification_notes = $10
		WHERE id = $1
	`, p.ID, toNullString(p.SaleID), p.Source, p.ExternalID, p.Amount, p.Method,
		p.PaidAt, p.Verified, toNullTime(p.VerifiedAt), p.VerificationNotes)
	if err != nil {
		return sale.Payment{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sale.Payment{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (sale.Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id)
	p, err := scanPayment(row)
	if err != nil {
		return sale.Payment{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, filter storage.PaymentFilter) ([]sale.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE TRUE`
	args := []any{}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += ` AND source = $` + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND paid_at >= $` + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND paid_at < $` + itoa(len(args))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		query += ` AND verified = $` + itoa(len(args))
	}
	query += ` ORDER BY paid_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sale.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanPayment(row rowScanner) (sale.Payment, error) {
	var (
		p          sale.Payment
		saleID     sql.NullString
		verifiedAt sql.NullTime
		raw        []byte
	)
	if err := row.Scan(&p.ID, &saleID, &p.Source, &p.ExternalID, &p.Amount, &p.Method,
		&p.PaidAt, &p.Verified, &verifiedAt, &p.VerificationNotes, &raw, &p.CreatedAt); err != nil {
		return sale.Payment{}, err
	}
	p.SaleID = fromNullString(saleID)
	p.VerifiedAt = fromNullTime(verifiedAt)
	p.RawData = raw
	return p, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
