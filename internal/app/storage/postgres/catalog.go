package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/catalog"
	"github.com/vendnet/vendops/internal/app/storage"
)

const productColumns = `id, code, name, category, price, vat_rate, active,
	description, barcode, created_at, updated_at`

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, code, name, category, price, vat_rate, active,
			description, barcode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Code, p.Name, p.Category, p.Price, p.VATRate, p.Active,
		p.Description, p.Barcode, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET code = $2, name = $3, category = $4, price = $5, vat_rate = $6,
			active = $7, description = $8, barcode = $9, updated_at = $10
		WHERE id = $1
	`, p.ID, p.Code, p.Name, p.Category, p.Price, p.VATRate, p.Active,
		p.Description, p.Barcode, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		return catalog.Product{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE code = $1
	`, code)
	p, err := scanProduct(row)
	if err != nil {
		return catalog.Product{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanProduct(row rowScanner) (catalog.Product, error) {
	var p catalog.Product
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.Price, &p.VATRate,
		&p.Active, &p.Description, &p.Barcode, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

const recipeColumns = `id, product_id, version, active, notes, items, created_at, updated_at`

func (s *Store) CreateRecipe(ctx context.Context, r catalog.Recipe) (catalog.Recipe, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	items := r.Items
	if items == nil {
		items = []catalog.RecipeItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return catalog.Recipe{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, product_id, version, active, notes, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.ProductID, r.Version, r.Active, r.Notes, itemsJSON, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return catalog.Recipe{}, mapErr(err)
	}
	return r, nil
}

func (s *Store) GetRecipe(ctx context.Context, id string) (catalog.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recipeColumns+` FROM recipes WHERE id = $1
	`, id)
	r, err := scanRecipe(row)
	if err != nil {
		return catalog.Recipe{}, mapErr(err)
	}
	return r, nil
}

func (s *Store) ListRecipes(ctx context.Context, productID string) ([]catalog.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recipeColumns+` FROM recipes WHERE product_id = $1 ORDER BY version
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) GetActiveRecipe(ctx context.Context, productID string) (catalog.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recipeColumns+` FROM recipes WHERE product_id = $1 AND active
	`, productID)
	r, err := scanRecipe(row)
	if err != nil {
		return catalog.Recipe{}, mapErr(err)
	}
	return r, nil
}

// SetActiveRecipe flips the active flag to the given version. The
// partial unique index on (product_id) WHERE active enforces at most
// one active version, so deactivation happens in the same transaction.
func (s *Store) SetActiveRecipe(ctx context.Context, productID, recipeID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE recipes SET active = FALSE, updated_at = NOW()
		WHERE product_id = $1 AND active
	`, productID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE recipes SET active = TRUE, updated_at = NOW()
		WHERE id = $1 AND product_id = $2
	`, recipeID, productID)
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

func scanRecipe(row rowScanner) (catalog.Recipe, error) {
	var (
		r        catalog.Recipe
		itemsRaw []byte
	)
	if err := row.Scan(&r.ID, &r.ProductID, &r.Version, &r.Active, &r.Notes,
		&itemsRaw, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return catalog.Recipe{}, err
	}
	if len(itemsRaw) > 0 {
		_ = json.Unmarshal(itemsRaw, &r.Items)
	}
	return r, nil
}
