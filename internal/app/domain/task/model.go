package task

import "time"

// Type is the kind of work a task asks an operator to do at a machine.
type Type string

const (
	TypeRefill     Type = "refill"
	TypeCleaning   Type = "cleaning"
	TypeRepair     Type = "repair"
	TypeCollection Type = "collection"
	TypeInspection Type = "inspection"
)

// ValidType reports whether t is a known task type.
func ValidType(t Type) bool {
	switch t {
	case TypeRefill, TypeCleaning, TypeRepair, TypeCollection, TypeInspection:
		return true
	}
	return false
}

// Status tracks a task through its lifecycle. Transitions are
// forward-only: pending -> assigned -> in_progress -> completed, with
// cancelled reachable from any non-terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Item is a planned ingredient load for a refill task with the actual
// quantity filled in at completion.
type Item struct {
	IngredientID    string  `json:"ingredient_id"`
	PlannedQuantity float64 `json:"planned_quantity"`
	ActualQuantity  float64 `json:"actual_quantity,omitempty"`
}

// Task is a unit of field work against a machine.
type Task struct {
	ID           string            `json:"id"`
	MachineID    string            `json:"machine_id"`
	Type         Type              `json:"type"`
	Status       Status            `json:"status"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Priority     int               `json:"priority"`
	AssignedToID string            `json:"assigned_to_id,omitempty"`
	AssignedAt   time.Time         `json:"assigned_at,omitempty"`
	StartedAt    time.Time         `json:"started_at,omitempty"`
	CompletedAt  time.Time         `json:"completed_at,omitempty"`
	Items        []Item            `json:"items,omitempty"`
	ResultData   map[string]string `json:"result_data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
