package investment

import "time"

// Status is the lifecycle state of an investment.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PayoutStatus tracks a scheduled payout through settlement.
type PayoutStatus string

const (
	PayoutScheduled  PayoutStatus = "scheduled"
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutFailed     PayoutStatus = "failed"
	PayoutCancelled  PayoutStatus = "cancelled"
)

// Investment records a financing party's stake in one machine.
// SharePercent is the stake within the investor profit pool; active
// shares on a machine never sum above 100.
type Investment struct {
	ID           string    `json:"id"`
	MachineID    string    `json:"machine_id"`
	InvestorID   string    `json:"investor_id"`
	Amount       float64   `json:"amount"`
	SharePercent float64   `json:"share_percent"`
	Status       Status    `json:"status"`
	InvestedAt   time.Time `json:"invested_at"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Payout is one investor's computed share of a machine's net profit
// over a period.
type Payout struct {
	ID            string       `json:"id"`
	InvestmentID  string       `json:"investment_id"`
	PeriodStart   time.Time    `json:"period_start"`
	PeriodEnd     time.Time    `json:"period_end"`
	TotalRevenue  float64      `json:"total_revenue"`
	TotalExpenses float64      `json:"total_expenses"`
	NetProfit     float64      `json:"net_profit"`
	Rate          float64      `json:"rate"` // share percent at computation time
	Amount        float64      `json:"amount"`
	Status        PayoutStatus `json:"status"`
	ScheduledDate time.Time    `json:"scheduled_date"`
	PaidAt        time.Time    `json:"paid_at,omitempty"`
	Reference     string       `json:"reference,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
