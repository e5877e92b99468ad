package finance

import "time"

// AccountType classifies where money sits.
type AccountType string

const (
	AccountCash   AccountType = "cash"
	AccountBank   AccountType = "bank"
	AccountWallet AccountType = "wallet"
	AccountCard   AccountType = "card"
)

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountCash, AccountBank, AccountWallet, AccountCard:
		return true
	}
	return false
}

// TransactionType is the direction of a money movement.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Category labels a transaction for reporting.
type Category string

const (
	CategorySales        Category = "sales"
	CategoryInvestment   Category = "investment"
	CategoryOtherIncome  Category = "other_income"
	CategoryPurchase     Category = "purchase"
	CategoryRent         Category = "rent"
	CategoryUtilities    Category = "utilities"
	CategorySalary       Category = "salary"
	CategoryTransport    Category = "transport"
	CategoryRepair       Category = "repair"
	CategoryTax          Category = "tax"
	CategoryPayout       Category = "payout"
	CategoryCollection   Category = "collection"
	CategoryAdjustment   Category = "adjustment"
	CategoryOtherExpense Category = "other_expense"
)

// Account is a financial account with a running balance.
type Account struct {
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Currency    string      `json:"currency"`
	Balance     float64     `json:"balance"`
	Active      bool        `json:"active"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Transaction moves money into, out of, or between accounts.
// Income has only To, expense only From, transfer both.
type Transaction struct {
	ID            string          `json:"id"`
	Type          TransactionType `json:"type"`
	Category      Category        `json:"category,omitempty"`
	FromAccountID string          `json:"from_account_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	Amount        float64         `json:"amount"`
	Description   string          `json:"description,omitempty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	CreatedByID   string          `json:"created_by_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Summary aggregates transactions over a period.
type Summary struct {
	From         time.Time            `json:"from"`
	To           time.Time            `json:"to"`
	TotalIncome  float64              `json:"total_income"`
	TotalExpense float64              `json:"total_expense"`
	Net          float64              `json:"net"`
	ByCategory   map[Category]float64 `json:"by_category"`
}
