package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vendnet/vendops/internal/app/domain/audit"
	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestGetMachineNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM machines`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetMachine(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetMachine() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateMachineMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO machines`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateMachine(context.Background(), machine.Machine{
		Code: "VM-001", Name: "Lobby", Type: machine.TypeCoffee, Status: machine.StatusActive,
	})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("CreateMachine() error = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCurrentLevelReadsLatestRecord(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"ingredient_id", "location_type", "location_id", "quantity", "recorded_at"}).
		AddRow("ing-1", "warehouse", "main", 12.5, at)
	mock.ExpectQuery(`SELECT ingredient_id, location_type, location_id, quantity, recorded_at`).
		WithArgs("warehouse", "main", "ing-1").
		WillReturnRows(rows)

	lvl, err := store.CurrentLevel(context.Background(), domaininv.Location{
		Type: domaininv.LocationWarehouse, ID: "main",
	}, "ing-1")
	if err != nil {
		t.Fatalf("CurrentLevel() error = %v", err)
	}
	if lvl.Quantity != 12.5 || lvl.IngredientID != "ing-1" {
		t.Fatalf("level = %+v", lvl)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendAuditFillsDefaults(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO audit_log`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e, err := store.AppendAudit(context.Background(), audit.Entry{
		Method: "POST", Path: "/api/v1/machines", Status: 201,
	})
	if err != nil {
		t.Fatalf("AppendAudit() error = %v", err)
	}
	if e.ID == "" || e.Time.IsZero() {
		t.Fatalf("entry = %+v, want generated id and time", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAuditDefaultsLimit(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "time", "user_id", "username", "role",
		"method", "path", "status", "remote_addr", "user_agent"})
	mock.ExpectQuery(`FROM audit_log`).
		WithArgs(100).
		WillReturnRows(rows)

	if _, err := store.ListAudit(context.Background(), 0); err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
