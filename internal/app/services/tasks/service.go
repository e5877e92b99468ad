// Package tasks manages field work orders for machines.
package tasks

import (
	"context"
	"fmt"
	"time"

	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/task"
	"github.com/vendnet/vendops/internal/app/services/inventory"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Service manages task lifecycle and the stock effects of completion.
type Service struct {
	store     storage.TaskStore
	machines  storage.MachineStore
	users     storage.UserStore
	inventory *inventory.Service
	log       *logger.Logger
}

// New constructs a task service.
func New(store storage.TaskStore, machines storage.MachineStore, users storage.UserStore, inv *inventory.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{store: store, machines: machines, users: users, inventory: inv, log: log}
}

// Create registers a task against a machine.
func (s *Service) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if !task.ValidType(t.Type) {
		return task.Task{}, fmt.Errorf("unsupported task type %q", t.Type)
	}
	if t.Title == "" {
		return task.Task{}, fmt.Errorf("title is required")
	}
	if s.machines != nil {
		if _, err := s.machines.GetMachine(ctx, t.MachineID); err != nil {
			return task.Task{}, fmt.Errorf("machine validation failed: %w", err)
		}
	}
	if t.Type == task.TypeRefill {
		for _, item := range t.Items {
			if item.PlannedQuantity <= 0 {
				return task.Task{}, fmt.Errorf("ingredient %s: planned quantity must be positive", item.IngredientID)
			}
		}
	}
	t.Status = task.StatusPending
	if t.Priority == 0 {
		t.Priority = 1
	}

	created, err := s.store.CreateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", created.ID).
		WithField("machine_id", created.MachineID).
		WithField("type", string(created.Type)).
		Info("task created")
	return created, nil
}

// Assign hands a pending task to a user.
func (s *Service) Assign(ctx context.Context, taskID, userID string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if t.Status != task.StatusPending && t.Status != task.StatusAssigned {
		return task.Task{}, fmt.Errorf("cannot assign task in status %q", t.Status)
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			return task.Task{}, fmt.Errorf("assignee validation failed: %w", err)
		}
	}
	t.Status = task.StatusAssigned
	t.AssignedToID = userID
	t.AssignedAt = time.Now().UTC()

	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", taskID).
		WithField("assignee_id", userID).
		Info("task assigned")
	return updated, nil
}

// Start moves an assigned task into progress.
func (s *Service) Start(ctx context.Context, taskID, userID string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if t.Status != task.StatusAssigned {
		return task.Task{}, fmt.Errorf("cannot start task in status %q", t.Status)
	}
	if t.AssignedToID != "" && t.AssignedToID != userID {
		return task.Task{}, fmt.Errorf("task is assigned to another user")
	}
	t.Status = task.StatusInProgress
	t.StartedAt = time.Now().UTC()

	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", taskID).Info("task started")
	return updated, nil
}

// CompleteInput carries completion details. ActualQuantities maps
// ingredient id to what was actually loaded on refill tasks.
type CompleteInput struct {
	ActualQuantities map[string]float64
	ResultData       map[string]string
}

// Complete finishes a task. Refill completions move the actual
// quantities from the operator's bag into the machine's stock.
func (s *Service) Complete(ctx context.Context, taskID, userID string, in CompleteInput) (task.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if t.Status != task.StatusInProgress {
		return task.Task{}, fmt.Errorf("cannot complete task in status %q", t.Status)
	}
	if t.AssignedToID != "" && t.AssignedToID != userID {
		return task.Task{}, fmt.Errorf("task is assigned to another user")
	}

	for i, item := range t.Items {
		if actual, ok := in.ActualQuantities[item.IngredientID]; ok {
			t.Items[i].ActualQuantity = actual
		} else {
			t.Items[i].ActualQuantity = item.PlannedQuantity
		}
	}

	if t.Type == task.TypeRefill && s.inventory != nil {
		bag := domaininv.Location{Type: domaininv.LocationBag, ID: userID}
		machineLoc := domaininv.Location{Type: domaininv.LocationMachine, ID: t.MachineID}
		for _, item := range t.Items {
			if item.ActualQuantity <= 0 {
				continue
			}
			mv := inventory.Movement{
				IngredientID: item.IngredientID,
				Quantity:     item.ActualQuantity,
				Notes:        "refill " + taskID,
			}
			if err := s.inventory.Transfer(ctx, bag, machineLoc, mv, userID); err != nil {
				return task.Task{}, fmt.Errorf("refill ingredient %s: %w", item.IngredientID, err)
			}
		}
	}

	t.Status = task.StatusCompleted
	t.CompletedAt = time.Now().UTC()
	if in.ResultData != nil {
		t.ResultData = in.ResultData
	}

	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", taskID).
		WithField("machine_id", t.MachineID).
		Info("task completed")
	return updated, nil
}

// Cancel aborts a task that has not finished.
func (s *Service) Cancel(ctx context.Context, taskID, reason string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if t.Status.Terminal() {
		return task.Task{}, fmt.Errorf("cannot cancel task in status %q", t.Status)
	}
	t.Status = task.StatusCancelled
	if reason != "" {
		if t.ResultData == nil {
			t.ResultData = make(map[string]string)
		}
		t.ResultData["cancel_reason"] = reason
	}
	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", taskID).Info("task cancelled")
	return updated, nil
}

// Get fetches one task.
func (s *Service) Get(ctx context.Context, id string) (task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// List lists tasks matching the filter.
func (s *Service) List(ctx context.Context, filter storage.TaskFilter) ([]task.Task, error) {
	return s.store.ListTasks(ctx, filter)
}
