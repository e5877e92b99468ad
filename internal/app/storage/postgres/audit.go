package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/audit"
)

func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, time, user_id, username, role, method, path,
			status, remote_addr, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.Time, e.UserID, e.Username, e.Role, e.Method, e.Path,
		e.Status, e.RemoteAddr, e.UserAgent)
	if err != nil {
		return audit.Entry{}, mapErr(err)
	}
	return e, nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, time, user_id, username, role, method, path, status, remote_addr, user_agent
		FROM audit_log
		ORDER BY time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.Time, &e.UserID, &e.Username, &e.Role,
			&e.Method, &e.Path, &e.Status, &e.RemoteAddr, &e.UserAgent); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
