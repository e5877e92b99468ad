package collection

import "time"

// Status tracks a collection from the machine opening to the manager's
// sign-off.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// Denomination is one counted banknote or coin value.
type Denomination struct {
	Value    float64 `json:"value"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// Collection is one cash pickup from a machine. The counted amount is
// compared against the cash sales accumulated since the previous
// verified collection; cash sales settle only when the collection is
// verified.
type Collection struct {
	ID                string         `json:"id"`
	MachineID         string         `json:"machine_id"`
	OperatorID        string         `json:"operator_id"`
	Status            Status         `json:"status"`
	Denominations     []Denomination `json:"denominations,omitempty"`
	AmountCollected   float64        `json:"amount_collected"`
	ExpectedAmount    float64        `json:"expected_amount"`
	Discrepancy       float64        `json:"discrepancy"`
	Notes             string         `json:"notes,omitempty"`
	VerificationNotes string         `json:"verification_notes,omitempty"`
	VerifiedByID      string         `json:"verified_by_id,omitempty"`
	CollectedAt       time.Time      `json:"collected_at"`
	CompletedAt       time.Time      `json:"completed_at,omitempty"`
	VerifiedAt        time.Time      `json:"verified_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
