package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/task"
	"github.com/vendnet/vendops/internal/app/storage"
)

const taskColumns = `id, machine_id, type, status, title, description, priority,
	assigned_to_id, assigned_at, started_at, completed_at, items, result_data,
	created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	itemsJSON, resultJSON, err := marshalTaskJSON(t)
	if err != nil {
		return task.Task{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, machine_id, type, status, title, description, priority,
			assigned_to_id, assigned_at, started_at, completed_at, items, result_data,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, t.ID, t.MachineID, t.Type, t.Status, t.Title, t.Description, t.Priority,
		toNullString(t.AssignedToID), toNullTime(t.AssignedAt), toNullTime(t.StartedAt),
		toNullTime(t.CompletedAt), itemsJSON, resultJSON, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return task.Task{}, mapErr(err)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.UpdatedAt = time.Now().UTC()

	itemsJSON, resultJSON, err := marshalTaskJSON(t)
	if err != nil {
		return task.Task{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET machine_id = $2, type = $3, status = $4, title = $5, description = $6,
			priority = $7, assigned_to_id = $8, assigned_at = $9, started_at = $10,
			completed_at = $11, items = $12, result_data = $13, updated_at = $14
		WHERE id = $1
	`, t.ID, t.MachineID, t.Type, t.Status, t.Title, t.Description, t.Priority,
		toNullString(t.AssignedToID), toNullTime(t.AssignedAt), toNullTime(t.StartedAt),
		toNullTime(t.CompletedAt), itemsJSON, resultJSON, t.UpdatedAt)
	if err != nil {
		return task.Task{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return task.Task{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id)
	t, err := scanTask(row)
	if err != nil {
		return task.Task{}, mapErr(err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE TRUE`
	args := []any{}
	if filter.MachineID != "" {
		args = append(args, filter.MachineID)
		query += ` AND machine_id = $` + itoa(len(args))
	}
	if filter.AssignedToID != "" {
		args = append(args, filter.AssignedToID)
		query += ` AND assigned_to_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY priority DESC, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func marshalTaskJSON(t task.Task) ([]byte, []byte, error) {
	items := t.Items
	if items == nil {
		items = []task.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, nil, err
	}
	resultJSON, err := json.Marshal(orEmptyMap(t.ResultData))
	if err != nil {
		return nil, nil, err
	}
	return itemsJSON, resultJSON, nil
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t          task.Task
		assignedTo sql.NullString
		assignedAt sql.NullTime
		startedAt  sql.NullTime
		completed  sql.NullTime
		itemsRaw   []byte
		resultRaw  []byte
	)
	if err := row.Scan(&t.ID, &t.MachineID, &t.Type, &t.Status, &t.Title, &t.Description,
		&t.Priority, &assignedTo, &assignedAt, &startedAt, &completed,
		&itemsRaw, &resultRaw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, err
	}
	t.AssignedToID = fromNullString(assignedTo)
	t.AssignedAt = fromNullTime(assignedAt)
	t.StartedAt = fromNullTime(startedAt)
	t.CompletedAt = fromNullTime(completed)
	if len(itemsRaw) > 0 {
		_ = json.Unmarshal(itemsRaw, &t.Items)
	}
	if len(resultRaw) > 0 {
		_ = json.Unmarshal(resultRaw, &t.ResultData)
	}
	return t, nil
}
