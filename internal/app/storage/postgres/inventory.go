package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/storage"
)

const ingredientColumns = `id, code, name, category, unit, cost_per_unit,
	min_stock_level, barcode, created_at, updated_at`

func (s *Store) CreateIngredient(ctx context.Context, ing inventory.Ingredient) (inventory.Ingredient, error) {
	if ing.ID == "" {
		ing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ing.CreatedAt = now
	ing.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, code, name, category, unit, cost_per_unit,
			min_stock_level, barcode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ing.ID, ing.Code, ing.Name, ing.Category, ing.Unit, ing.CostPerUnit,
		ing.MinStockLevel, ing.Barcode, ing.CreatedAt, ing.UpdatedAt)
	if err != nil {
		return inventory.Ingredient{}, mapErr(err)
	}
	return ing, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ing inventory.Ingredient) (inventory.Ingredient, error) {
	ing.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET code = $2, name = $3, category = $4, unit = $5, cost_per_unit = $6,
			min_stock_level = $7, barcode = $8, updated_at = $9
		WHERE id = $1
	`, ing.ID, ing.Code, ing.Name, ing.Category, ing.Unit, ing.CostPerUnit,
		ing.MinStockLevel, ing.Barcode, ing.UpdatedAt)
	if err != nil {
		return inventory.Ingredient{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return inventory.Ingredient{}, storage.ErrNotFound
	}
	return ing, nil
}

func (s *Store) GetIngredient(ctx context.Context, id string) (inventory.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1
	`, id)
	ing, err := scanIngredient(row)
	if err != nil {
		return inventory.Ingredient{}, mapErr(err)
	}
	return ing, nil
}

func (s *Store) GetIngredientByCode(ctx context.Context, code string) (inventory.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients WHERE code = $1
	`, code)
	ing, err := scanIngredient(row)
	if err != nil {
		return inventory.Ingredient{}, mapErr(err)
	}
	return ing, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]inventory.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ing)
	}
	return result, rows.Err()
}

func scanIngredient(row rowScanner) (inventory.Ingredient, error) {
	var ing inventory.Ingredient
	if err := row.Scan(&ing.ID, &ing.Code, &ing.Name, &ing.Category, &ing.Unit,
		&ing.CostPerUnit, &ing.MinStockLevel, &ing.Barcode,
		&ing.CreatedAt, &ing.UpdatedAt); err != nil {
		return inventory.Ingredient{}, err
	}
	return ing, nil
}

const recordColumns = `id, ingredient_id, location_type, location_id, quantity,
	batch_number, expiry_date, created_by_id, notes, recorded_at, created_at`

func (s *Store) AppendRecord(ctx context.Context, rec inventory.Record) (inventory.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now
	}
	rec.CreatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_records (id, ingredient_id, location_type, location_id,
			quantity, batch_number, expiry_date, created_by_id, notes, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.IngredientID, rec.Location.Type, rec.Location.ID, rec.Quantity,
		rec.BatchNumber, toNullTime(rec.ExpiryDate), toNullString(rec.CreatedByID),
		rec.Notes, rec.RecordedAt, rec.CreatedAt)
	if err != nil {
		return inventory.Record{}, mapErr(err)
	}
	return rec, nil
}

// CurrentLevel reads the newest ledger record for the pair, which by
// the absolute-level convention is the current stock.
func (s *Store) CurrentLevel(ctx context.Context, loc inventory.Location, ingredientID string) (inventory.Level, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ingredient_id, location_type, location_id, quantity, recorded_at
		FROM inventory_records
		WHERE location_type = $1 AND location_id = $2 AND ingredient_id = $3
		ORDER BY recorded_at DESC, created_at DESC
		LIMIT 1
	`, loc.Type, loc.ID, ingredientID)

	var lvl inventory.Level
	if err := row.Scan(&lvl.IngredientID, &lvl.Location.Type, &lvl.Location.ID,
		&lvl.Quantity, &lvl.RecordedAt); err != nil {
		return inventory.Level{}, mapErr(err)
	}
	return lvl, nil
}

func (s *Store) ListLevels(ctx context.Context, loc inventory.Location) ([]inventory.Level, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (ingredient_id)
			ingredient_id, location_type, location_id, quantity, recorded_at
		FROM inventory_records
		WHERE location_type = $1 AND location_id = $2
		ORDER BY ingredient_id, recorded_at DESC, created_at DESC
	`, loc.Type, loc.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Level
	for rows.Next() {
		var lvl inventory.Level
		if err := rows.Scan(&lvl.IngredientID, &lvl.Location.Type, &lvl.Location.ID,
			&lvl.Quantity, &lvl.RecordedAt); err != nil {
			return nil, err
		}
		result = append(result, lvl)
	}
	return result, rows.Err()
}

func (s *Store) ListMovements(ctx context.Context, ingredientID string, from, to time.Time) ([]inventory.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM inventory_records WHERE ingredient_id = $1`
	args := []any{ingredientID}
	if !from.IsZero() {
		args = append(args, from)
		query += ` AND recorded_at >= $` + itoa(len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += ` AND recorded_at < $` + itoa(len(args))
	}
	query += ` ORDER BY recorded_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanRecord(row rowScanner) (inventory.Record, error) {
	var (
		rec       inventory.Record
		expiry    sql.NullTime
		createdBy sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.IngredientID, &rec.Location.Type, &rec.Location.ID,
		&rec.Quantity, &rec.BatchNumber, &expiry, &createdBy, &rec.Notes,
		&rec.RecordedAt, &rec.CreatedAt); err != nil {
		return inventory.Record{}, err
	}
	rec.ExpiryDate = fromNullTime(expiry)
	rec.CreatedByID = fromNullString(createdBy)
	return rec, nil
}
