package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/storage"
)

const machineColumns = `id, code, name, type, model, serial_number, status,
	location_address, location_lat, location_lng, installation_date, last_service_date,
	responsible_user_id, settings, metadata, created_at, updated_at`

func (s *Store) CreateMachine(ctx context.Context, m machine.Machine) (machine.Machine, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	settingsJSON, err := json.Marshal(orEmptyMap(m.Settings))
	if err != nil {
		return machine.Machine{}, err
	}
	metaJSON, err := json.Marshal(orEmptyMap(m.Metadata))
	if err != nil {
		return machine.Machine{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO machines (id, code, name, type, model, serial_number, status,
			location_address, location_lat, location_lng, installation_date, last_service_date,
			responsible_user_id, settings, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, m.ID, m.Code, m.Name, m.Type, m.Model, m.SerialNumber, m.Status,
		m.LocationAddress, m.LocationLat, m.LocationLng,
		toNullTime(m.InstallationDate), toNullTime(m.LastServiceDate),
		toNullString(m.ResponsibleUserID), settingsJSON, metaJSON, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return machine.Machine{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) UpdateMachine(ctx context.Context, m machine.Machine) (machine.Machine, error) {
	m.UpdatedAt = time.Now().UTC()

	settingsJSON, err := json.Marshal(orEmptyMap(m.Settings))
	if err != nil {
		return machine.Machine{}, err
	}
	metaJSON, err := json.Marshal(orEmptyMap(m.Metadata))
	if err != nil {
		return machine.Machine{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE machines
		SET code = $2, name = $3, type = $4, model = $5, serial_number = $6, status = $7,
			location_address = $8, location_lat = $9, location_lng = $10,
			installation_date = $11, last_service_date = $12, responsible_user_id = $13,
			settings = $14, metadata = $15, updated_at = $16
		WHERE id = $1 AND deleted_at IS NULL
	`, m.ID, m.Code, m.Name, m.Type, m.Model, m.SerialNumber, m.Status,
		m.LocationAddress, m.LocationLat, m.LocationLng,
		toNullTime(m.InstallationDate), toNullTime(m.LastServiceDate),
		toNullString(m.ResponsibleUserID), settingsJSON, metaJSON, m.UpdatedAt)
	if err != nil {
		return machine.Machine{}, mapErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return machine.Machine{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetMachine(ctx context.Context, id string) (machine.Machine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+machineColumns+`
		FROM machines
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	m, err := scanMachine(row)
	if err != nil {
		return machine.Machine{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) GetMachineByCode(ctx context.Context, code string) (machine.Machine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+machineColumns+`
		FROM machines
		WHERE code = $1 AND deleted_at IS NULL
	`, code)
	m, err := scanMachine(row)
	if err != nil {
		return machine.Machine{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) ListMachines(ctx context.Context, filter storage.MachineFilter) ([]machine.Machine, error) {
	query := `SELECT ` + machineColumns + ` FROM machines WHERE deleted_at IS NULL`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type = $` + itoa(len(args))
	}
	if filter.ResponsibleUserID != "" {
		args = append(args, filter.ResponsibleUserID)
		query += ` AND responsible_user_id = $` + itoa(len(args))
	}
	query += ` ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []machine.Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) DeleteMachine(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE machines SET deleted_at = NOW(), updated_at = NOW()
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

func scanMachine(row rowScanner) (machine.Machine, error) {
	var (
		m           machine.Machine
		installed   sql.NullTime
		serviced    sql.NullTime
		responsible sql.NullString
		settingsRaw []byte
		metaRaw     []byte
	)
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Type, &m.Model, &m.SerialNumber, &m.Status,
		&m.LocationAddress, &m.LocationLat, &m.LocationLng, &installed, &serviced,
		&responsible, &settingsRaw, &metaRaw, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return machine.Machine{}, err
	}
	m.InstallationDate = fromNullTime(installed)
	m.LastServiceDate = fromNullTime(serviced)
	m.ResponsibleUserID = fromNullString(responsible)
	if len(settingsRaw) > 0 {
		_ = json.Unmarshal(settingsRaw, &m.Settings)
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &m.Metadata)
	}
	return m, nil
}
