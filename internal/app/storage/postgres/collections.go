package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/collection"
	"github.com/vendnet/vendops/internal/app/storage"
)

const collectionColumns = `id, machine_id, operator_id, status, denominations,
	amount_collected, expected_amount, discrepancy, notes, verification_notes,
	verified_by_id, collected_at, completed_at, verified_at, created_at, updated_at`

func (s *Store) CreateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.CollectedAt.IsZero() {
		c.CollectedAt = now
	}
	denomsJSON, err := marshalDenominations(c.Denominations)
	if err != nil {
		return collection.Collection{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cash_collections (id, machine_id, operator_id, status, denominations,
			amount_collected, expected_amount, discrepancy, notes, verification_notes,
			verified_by_id, collected_at, completed_at, verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, c.ID, c.MachineID, c.OperatorID, c.Status, denomsJSON,
		c.AmountCollected, c.ExpectedAmount, c.Discrepancy, c.Notes, c.VerificationNotes,
		toNullString(c.VerifiedByID), c.CollectedAt, toNullTime(c.CompletedAt),
		toNullTime(c.VerifiedAt), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return collection.Collection{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) UpdateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	c.UpdatedAt = time.Now().UTC()
	denomsJSON, err := marshalDenominations(c.Denominations)
	if err != nil {
		return collection.Collection{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cash_collections
		SET status = $2, denominations = $3, amount_collected = $4, expected_amount = $5,
			discrepancy = $6, notes = $7, verification_notes = $8, verified_by_id = $9,
			completed_at = $10, verified_at = $11, updated_at = $12
		WHERE id = $1
	`, c.ID, c.Status, denomsJSON, c.AmountCollected, c.ExpectedAmount,
		c.Discrepancy, c.Notes, c.VerificationNotes, toNullString(c.VerifiedByID),
		toNullTime(c.CompletedAt), toNullTime(c.VerifiedAt), c.UpdatedAt)
	if err != nil {
		return collection.Collection{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return collection.Collection{}, storage.ErrNotFound
	}
	return s.GetCollection(ctx, c.ID)
}

func (s *Store) GetCollection(ctx context.Context, id string) (collection.Collection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+collectionColumns+` FROM cash_collections WHERE id = $1
	`, id)
	c, err := scanCollection(row)
	if err != nil {
		return collection.Collection{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) ListCollections(ctx context.Context, filter storage.CollectionFilter) ([]collection.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM cash_collections WHERE TRUE`
	args := []any{}
	if filter.MachineID != "" {
		args = append(args, filter.MachineID)
		query += ` AND machine_id = $` + itoa(len(args))
	}
	if filter.OperatorID != "" {
		args = append(args, filter.OperatorID)
		query += ` AND operator_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND collected_at >= $` + itoa(len(args))
	}
	query += ` ORDER BY collected_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []collection.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func marshalDenominations(denoms []collection.Denomination) ([]byte, error) {
	if denoms == nil {
		denoms = []collection.Denomination{}
	}
	return json.Marshal(denoms)
}

func scanCollection(row rowScanner) (collection.Collection, error) {
	var (
		c           collection.Collection
		denomsRaw   []byte
		verifiedBy  sql.NullString
		completedAt sql.NullTime
		verifiedAt  sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.MachineID, &c.OperatorID, &c.Status, &denomsRaw,
		&c.AmountCollected, &c.ExpectedAmount, &c.Discrepancy, &c.Notes, &c.VerificationNotes,
		&verifiedBy, &c.CollectedAt, &completedAt, &verifiedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return collection.Collection{}, err
	}
	if len(denomsRaw) > 0 {
		_ = json.Unmarshal(denomsRaw, &c.Denominations)
	}
	c.VerifiedByID = fromNullString(verifiedBy)
	c.CompletedAt = fromNullTime(completedAt)
	c.VerifiedAt = fromNullTime(verifiedAt)
	return c, nil
}
