package sale

import "time"

// PaymentMethod is how a sale was paid for.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodPayme        PaymentMethod = "payme"
	MethodClick        PaymentMethod = "click"
	MethodUzum         PaymentMethod = "uzum"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodPayme, MethodClick, MethodUzum, MethodCard, MethodBankTransfer:
		return true
	}
	return false
}

// SyncStatus marks how far a sale has travelled through reconciliation.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncMatched  SyncStatus = "matched"
	SyncMismatch SyncStatus = "mismatch"
)

// Sale is one dispense event reported by a machine.
type Sale struct {
	ID            string        `json:"id"`
	MachineID     string        `json:"machine_id"`
	ProductID     string        `json:"product_id"`
	Quantity      int           `json:"quantity"`
	UnitPrice     float64       `json:"unit_price"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	SyncStatus    SyncStatus    `json:"sync_status"`
	RawData       []byte        `json:"-"`
	SoldAt        time.Time     `json:"sold_at"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Payment is a settlement record from one of the payment sources
// (machine cash counter, Payme, Click, Uzum, bank statement). Payments
// start unverified and get linked to sales during reconciliation.
type Payment struct {
	ID                string        `json:"id"`
	SaleID            string        `json:"sale_id,omitempty"`
	Source            string        `json:"source"`
	ExternalID        string        `json:"external_id,omitempty"`
	Amount            float64       `json:"amount"`
	Method            PaymentMethod `json:"method"`
	PaidAt            time.Time     `json:"paid_at"`
	Verified          bool          `json:"verified"`
	VerifiedAt        time.Time     `json:"verified_at,omitempty"`
	VerificationNotes string        `json:"verification_notes,omitempty"`
	RawData           []byte        `json:"-"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Discrepancy is one reconciliation finding.
type Discrepancy struct {
	Kind      string  `json:"kind"` // orphan_payment, unmatched_sale, amount_mismatch
	SaleID    string  `json:"sale_id,omitempty"`
	PaymentID string  `json:"payment_id,omitempty"`
	Expected  float64 `json:"expected,omitempty"`
	Actual    float64 `json:"actual,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// ReconciliationReport summarises one reconciliation run.
type ReconciliationReport struct {
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	SalesTotal    int           `json:"sales_total"`
	PaymentsTotal int           `json:"payments_total"`
	Matched       int           `json:"matched"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// ReportLine is one aggregation bucket within a sales report.
type ReportLine struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// Report aggregates sales over a period for the dashboard.
type Report struct {
	From         time.Time             `json:"from"`
	To           time.Time             `json:"to"`
	SalesCount   int                   `json:"sales_count"`
	TotalRevenue float64               `json:"total_revenue"`
	AverageCheck float64               `json:"average_check"`
	ByMethod     map[string]ReportLine `json:"by_method"`
	ByProduct    map[string]ReportLine `json:"by_product"`
}
