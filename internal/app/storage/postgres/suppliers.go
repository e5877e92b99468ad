package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/supplier"
	"github.com/vendnet/vendops/internal/app/storage"
)

const supplierColumns = `id, name, tax_id, contact_name, phone, email, address,
	active, created_at, updated_at`

func (s *Store) CreateSupplier(ctx context.Context, sp supplier.Supplier) (supplier.Supplier, error) {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sp.CreatedAt = now
	sp.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, tax_id, contact_name, phone, email, address,
			active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sp.ID, sp.Name, toNullString(sp.TaxID), sp.ContactName, sp.Phone, sp.Email,
		sp.Address, sp.Active, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return supplier.Supplier{}, mapErr(err)
	}
	return sp, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sp supplier.Supplier) (supplier.Supplier, error) {
	sp.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, tax_id = $3, contact_name = $4, phone = $5, email = $6,
			address = $7, active = $8, updated_at = $9
		WHERE id = $1
	`, sp.ID, sp.Name, toNullString(sp.TaxID), sp.ContactName, sp.Phone, sp.Email,
		sp.Address, sp.Active, sp.UpdatedAt)
	if err != nil {
		return supplier.Supplier{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return supplier.Supplier{}, storage.ErrNotFound
	}
	return s.GetSupplier(ctx, sp.ID)
}

func (s *Store) GetSupplier(ctx context.Context, id string) (supplier.Supplier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+supplierColumns+` FROM suppliers WHERE id = $1
	`, id)
	sp, err := scanSupplier(row)
	if err != nil {
		return supplier.Supplier{}, mapErr(err)
	}
	return sp, nil
}

func (s *Store) ListSuppliers(ctx context.Context, activeOnly bool) ([]supplier.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []supplier.Supplier
	for rows.Next() {
		sp, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sp)
	}
	return result, rows.Err()
}

func scanSupplier(row rowScanner) (supplier.Supplier, error) {
	var (
		sp    supplier.Supplier
		taxID sql.NullString
	)
	if err := row.Scan(&sp.ID, &sp.Name, &taxID, &sp.ContactName, &sp.Phone, &sp.Email,
		&sp.Address, &sp.Active, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return supplier.Supplier{}, err
	}
	sp.TaxID = fromNullString(taxID)
	return sp, nil
}

const purchaseColumns = `id, supplier_id, status, items, total_amount, delivery_date,
	notes, created_by_id, confirmed_by_id, received_by_id, confirmed_at, received_at,
	created_at, updated_at`

func (s *Store) CreatePurchase(ctx context.Context, p supplier.Purchase) (supplier.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	itemsJSON, err := marshalPurchaseItems(p.Items)
	if err != nil {
		return supplier.Purchase{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_id, status, items, total_amount, delivery_date,
			notes, created_by_id, confirmed_by_id, received_by_id, confirmed_at, received_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.SupplierID, p.Status, itemsJSON, p.TotalAmount, toNullTime(p.DeliveryDate),
		p.Notes, toNullString(p.CreatedByID), toNullString(p.ConfirmedByID),
		toNullString(p.ReceivedByID), toNullTime(p.ConfirmedAt), toNullTime(p.ReceivedAt),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return supplier.Purchase{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) UpdatePurchase(ctx context.Context, p supplier.Purchase) (supplier.Purchase, error) {
	p.UpdatedAt = time.Now().UTC()
	itemsJSON, err := marshalPurchaseItems(p.Items)
	if err != nil {
		return supplier.Purchase{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE purchases
		SET status = $2, items = $3, total_amount = $4, delivery_date = $5, notes = $6,
			confirmed_by_id = $7, received_by_id = $8, confirmed_at = $9, received_at = $10,
			updated_at = $11
		WHERE id = $1
	`, p.ID, p.Status, itemsJSON, p.TotalAmount, toNullTime(p.DeliveryDate), p.Notes,
		toNullString(p.ConfirmedByID), toNullString(p.ReceivedByID),
		toNullTime(p.ConfirmedAt), toNullTime(p.ReceivedAt), p.UpdatedAt)
	if err != nil {
		return supplier.Purchase{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return supplier.Purchase{}, storage.ErrNotFound
	}
	return s.GetPurchase(ctx, p.ID)
}

func (s *Store) GetPurchase(ctx context.Context, id string) (supplier.Purchase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+purchaseColumns+` FROM purchases WHERE id = $1
	`, id)
	p, err := scanPurchase(row)
	if err != nil {
		return supplier.Purchase{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) ListPurchases(ctx context.Context, filter storage.PurchaseFilter) ([]supplier.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE TRUE`
	args := []any{}
	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		query += ` AND supplier_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []supplier.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func marshalPurchaseItems(items []supplier.PurchaseItem) ([]byte, error) {
	if items == nil {
		items = []supplier.PurchaseItem{}
	}
	return json.Marshal(items)
}

func scanPurchase(row rowScanner) (supplier.Purchase, error) {
	var (
		p            supplier.Purchase
		itemsRaw     []byte
		deliveryDate sql.NullTime
		createdBy    sql.NullString
		confirmedBy  sql.NullString
		receivedBy   sql.NullString
		confirmedAt  sql.NullTime
		receivedAt   sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.SupplierID, &p.Status, &itemsRaw, &p.TotalAmount,
		&deliveryDate, &p.Notes, &createdBy, &confirmedBy, &receivedBy,
		&confirmedAt, &receivedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return supplier.Purchase{}, err
	}
	if len(itemsRaw) > 0 {
		_ = json.Unmarshal(itemsRaw, &p.Items)
	}
	p.DeliveryDate = fromNullTime(deliveryDate)
	p.CreatedByID = fromNullString(createdBy)
	p.ConfirmedByID = fromNullString(confirmedBy)
	p.ReceivedByID = fromNullString(receivedBy)
	p.ConfirmedAt = fromNullTime(confirmedAt)
	p.ReceivedAt = fromNullTime(receivedAt)
	return p, nil
}
