// Package machines manages the vending machine fleet.
package machines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/machine"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Service manages machine records.
type Service struct {
	store storage.MachineStore
	users storage.UserStore
	sales storage.SaleStore
	log   *logger.Logger
}

// New constructs a machine service.
func New(store storage.MachineStore, users storage.UserStore, sales storage.SaleStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("machines")
	}
	return &Service{store: store, users: users, sales: sales, log: log}
}

// Register creates a machine after validating its code and type.
func (s *Service) Register(ctx context.Context, m machine.Machine) (machine.Machine, error) {
	m.Code = strings.TrimSpace(m.Code)
	m.Name = strings.TrimSpace(m.Name)
	if m.Code == "" || m.Name == "" {
		return machine.Machine{}, fmt.Errorf("code and name are required")
	}
	if !machine.ValidType(m.Type) {
		return machine.Machine{}, fmt.Errorf("unsupported machine type %q", m.Type)
	}
	if m.Status == "" {
		m.Status = machine.StatusActive
	}
	if !machine.ValidStatus(m.Status) {
		return machine.Machine{}, fmt.Errorf("unsupported machine status %q", m.Status)
	}
	if m.ResponsibleUserID != "" && s.users != nil {
		if _, err := s.users.GetUser(ctx, m.ResponsibleUserID); err != nil {
			return machine.Machine{}, fmt.Errorf("responsible user validation failed: %w", err)
		}
	}

	created, err := s.store.CreateMachine(ctx, m)
	if err != nil {
		return machine.Machine{}, err
	}
	s.log.WithField("machine_id", created.ID).
		WithField("code", created.Code).
		Info("machine registered")
	return created, nil
}

// Update applies field changes to a machine.
func (s *Service) Update(ctx context.Context, m machine.Machine) (machine.Machine, error) {
	existing, err := s.store.GetMachine(ctx, m.ID)
	if err != nil {
		return machine.Machine{}, err
	}
	if m.Code == "" {
		m.Code = existing.Code
	}
	if m.Type == "" {
		m.Type = existing.Type
	}
	if m.Status == "" {
		m.Status = existing.Status
	}
	if !machine.ValidType(m.Type) {
		return machine.Machine{}, fmt.Errorf("unsupported machine type %q", m.Type)
	}
	if !machine.ValidStatus(m.Status) {
		return machine.Machine{}, fmt.Errorf("unsupported machine status %q", m.Status)
	}
	m.CreatedAt = existing.CreatedAt

	updated, err := s.store.UpdateMachine(ctx, m)
	if err != nil {
		return machine.Machine{}, err
	}
	s.log.WithField("machine_id", m.ID).Info("machine updated")
	return updated, nil
}

// SetStatus transitions a machine's operational state.
func (s *Service) SetStatus(ctx context.Context, id string, status machine.Status) (machine.Machine, error) {
	if !machine.ValidStatus(status) {
		return machine.Machine{}, fmt.Errorf("unsupported machine status %q", status)
	}
	m, err := s.store.GetMachine(ctx, id)
	if err != nil {
		return machine.Machine{}, err
	}
	m.Status = status
	if status == machine.StatusMaintenance {
		m.LastServiceDate = time.Now().UTC()
	}
	updated, err := s.store.UpdateMachine(ctx, m)
	if err != nil {
		return machine.Machine{}, err
	}
	s.log.WithField("machine_id", id).
		WithField("status", string(status)).
		Info("machine status changed")
	return updated, nil
}

// AssignResponsible sets the user who services the machine.
func (s *Service) AssignResponsible(ctx context.Context, machineID, userID string) (machine.Machine, error) {
	m, err := s.store.GetMachine(ctx, machineID)
	if err != nil {
		return machine.Machine{}, err
	}
	if userID != "" && s.users != nil {
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			return machine.Machine{}, fmt.Errorf("responsible user validation failed: %w", err)
		}
	}
	m.ResponsibleUserID = userID
	return s.store.UpdateMachine(ctx, m)
}

// Get fetches one machine.
func (s *Service) Get(ctx context.Context, id string) (machine.Machine, error) {
	return s.store.GetMachine(ctx, id)
}

// GetByCode fetches one machine by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (machine.Machine, error) {
	return s.store.GetMachineByCode(ctx, code)
}

// List lists machines matching the filter.
func (s *Service) List(ctx context.Context, filter storage.MachineFilter) ([]machine.Machine, error) {
	return s.store.ListMachines(ctx, filter)
}

// Decommission soft-deletes a machine.
func (s *Service) Decommission(ctx context.Context, id string) error {
	if err := s.store.DeleteMachine(ctx, id); err != nil {
		return err
	}
	s.log.WithField("machine_id", id).Info("machine decommissioned")
	return nil
}

// Statistics aggregates a machine's sales over the period.
func (s *Service) Statistics(ctx context.Context, id string, from, to time.Time) (machine.Statistics, error) {
	if _, err := s.store.GetMachine(ctx, id); err != nil {
		return machine.Statistics{}, err
	}
	salesList, err := s.sales.ListSales(ctx, storage.SaleFilter{MachineID: id, From: from, To: to})
	if err != nil {
		return machine.Statistics{}, err
	}
	stats := machine.Statistics{MachineID: id, From: from, To: to}
	for _, sl := range salesList {
		stats.SalesCount++
		stats.TotalRevenue += sl.TotalAmount
	}
	if stats.SalesCount > 0 {
		stats.AverageCheck = stats.TotalRevenue / float64(stats.SalesCount)
	}
	return stats, nil
}
