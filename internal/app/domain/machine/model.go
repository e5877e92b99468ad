package machine

import "time"

// Type classifies what a machine dispenses.
type Type string

const (
	TypeCoffee Type = "coffee"
	TypeSnack  Type = "snack"
	TypeCombo  Type = "combo"
	TypeWater  Type = "water"
)

// Status is the operational state of a machine.
type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusInactive    Status = "inactive"
	StatusBroken      Status = "broken"
)

// ValidType reports whether t is a known machine type.
func ValidType(t Type) bool {
	switch t {
	case TypeCoffee, TypeSnack, TypeCombo, TypeWater:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known machine status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusInactive, StatusBroken:
		return true
	}
	return false
}

// Machine is a physical vending unit tracked by code and location.
type Machine struct {
	ID                string            `json:"id"`
	Code              string            `json:"code"`
	Name              string            `json:"name"`
	Type              Type              `json:"type"`
	Model             string            `json:"model,omitempty"`
	SerialNumber      string            `json:"serial_number,omitempty"`
	Status            Status            `json:"status"`
	LocationAddress   string            `json:"location_address,omitempty"`
	LocationLat       float64           `json:"location_lat,omitempty"`
	LocationLng       float64           `json:"location_lng,omitempty"`
	InstallationDate  time.Time         `json:"installation_date,omitempty"`
	LastServiceDate   time.Time         `json:"last_service_date,omitempty"`
	ResponsibleUserID string            `json:"responsible_user_id,omitempty"`
	Settings          map[string]string `json:"settings,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         time.Time         `json:"deleted_at,omitempty"`
}

// Operational reports whether the machine is currently selling.
func (m Machine) Operational() bool { return m.Status == StatusActive }

// Statistics summarises a machine's sales over a period.
type Statistics struct {
	MachineID    string    `json:"machine_id"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	SalesCount   int       `json:"sales_count"`
	TotalRevenue float64   `json:"total_revenue"`
	AverageCheck float64   `json:"average_check"`
}
