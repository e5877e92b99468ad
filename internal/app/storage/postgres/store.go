// Package postgres implements the storage interfaces backed by
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/storage"
)

// Store implements the storage interfaces over a shared database handle.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MachineStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.InventoryStore = (*Store)(nil)
var _ storage.TaskStore = (*Store)(nil)
var _ storage.SaleStore = (*Store)(nil)
var _ storage.FinanceStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.CollectionStore = (*Store)(nil)
var _ storage.SupplierStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// mapErr translates driver errors to the storage sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return storage.ErrConflict
	}
	return err
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time.UTC()
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func toNullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, telegram_id, phone, email, username, full_name, password_hash,
	active, verified, last_login, settings, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	settingsJSON, err := json.Marshal(orEmptyMap(u.Settings))
	if err != nil {
		return user.User{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, telegram_id, phone, email, username, full_name, password_hash,
			active, verified, last_login, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, u.ID, toNullInt64(u.TelegramID), u.Phone, u.Email, u.Username, u.FullName, u.PasswordHash,
		u.Active, u.Verified, toNullTime(u.LastLogin), settingsJSON, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	settingsJSON, err := json.Marshal(orEmptyMap(u.Settings))
	if err != nil {
		return user.User{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET telegram_id = $2, phone = $3, email = $4, username = $5, full_name = $6,
			password_hash = $7, active = $8, verified = $9, last_login = $10,
			settings = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL
	`, u.ID, toNullInt64(u.TelegramID), u.Phone, u.Email, u.Username, u.FullName,
		u.PasswordHash, u.Active, u.Verified, toNullTime(u.LastLogin), settingsJSON, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	u.Roles = existing.Roles
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUserWhere(ctx, "id = $1", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, storage.ErrNotFound
	}
	return s.getUserWhere(ctx, "username = $1", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, storage.ErrNotFound
	}
	return s.getUserWhere(ctx, "email = $1", email)
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (user.User, error) {
	if telegramID == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return s.getUserWhere(ctx, "telegram_id = $1", telegramID)
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg any) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE `+where+` AND deleted_at IS NULL
	`, arg)

	u, err := scanUser(row)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	roles, err := s.userRoles(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		roles, err := s.userRoles(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Roles = roles
	}
	return result, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u           user.User
		telegramID  sql.NullInt64
		lastLogin   sql.NullTime
		settingsRaw []byte
	)
	if err := row.Scan(&u.ID, &telegramID, &u.Phone, &u.Email, &u.Username, &u.FullName,
		&u.PasswordHash, &u.Active, &u.Verified, &lastLogin, &settingsRaw,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	if telegramID.Valid {
		u.TelegramID = telegramID.Int64
	}
	u.LastLogin = fromNullTime(lastLogin)
	if len(settingsRaw) > 0 {
		_ = json.Unmarshal(settingsRaw, &u.Settings)
	}
	return u, nil
}

func (s *Store) UpsertRole(ctx context.Context, r user.Role) (user.Role, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	permsJSON, err := json.Marshal(r.Permissions)
	if err != nil {
		return user.Role{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO roles (id, name, display_name, description, is_system, permissions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			is_system = EXCLUDED.is_system,
			permissions = EXCLUDED.permissions
		RETURNING id
	`, r.ID, r.Name, r.DisplayName, r.Description, r.System, permsJSON)
	if err := row.Scan(&r.ID); err != nil {
		return user.Role{}, mapErr(err)
	}
	return r, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (user.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, description, is_system, permissions
		FROM roles
		WHERE name = $1
	`, name)
	r, err := scanRole(row)
	if err != nil {
		return user.Role{}, mapErr(err)
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]user.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, description, is_system, permissions
		FROM roles
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRole(row rowScanner) (user.Role, error) {
	var (
		r        user.Role
		permsRaw []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Description, &r.System, &permsRaw); err != nil {
		return user.Role{}, err
	}
	if len(permsRaw) > 0 {
		_ = json.Unmarshal(permsRaw, &r.Permissions)
	}
	return r, nil
}

func (s *Store) SetUserRoles(ctx context.Context, userID string, roleNames []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)
	`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, name := range roleNames {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, id FROM roles WHERE name = $2
		`, userID, name)
		if err != nil {
			return mapErr(err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("role %q: %w", name, storage.ErrNotFound)
		}
	}
	return tx.Commit()
}

func (s *Store) userRoles(ctx context.Context, userID string) ([]user.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.display_name, r.description, r.is_system, r.permissions
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func itoa(n int) string { return strconv.Itoa(n) }

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
