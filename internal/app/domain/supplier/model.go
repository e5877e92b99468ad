package supplier

import "time"

// Supplier is a vendor the warehouse buys ingredients from.
type Supplier struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TaxID       string    `json:"tax_id,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PurchaseStatus is the lifecycle of a purchase order.
type PurchaseStatus string

const (
	PurchaseDraft     PurchaseStatus = "draft"
	PurchaseConfirmed PurchaseStatus = "confirmed"
	PurchaseReceived  PurchaseStatus = "received"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// PurchaseItem is one ordered ingredient line. ReceivedQuantity is
// filled at warehouse intake and may differ from the ordered Quantity.
type PurchaseItem struct {
	IngredientID     string  `json:"ingredient_id"`
	Quantity         float64 `json:"quantity"`
	PricePerUnit     float64 `json:"price_per_unit"`
	Amount           float64 `json:"amount"`
	ReceivedQuantity float64 `json:"received_quantity,omitempty"`
}

// Purchase is an order placed with a supplier. Receiving it books the
// delivered quantities into the warehouse stock ledger.
type Purchase struct {
	ID           string         `json:"id"`
	SupplierID   string         `json:"supplier_id"`
	Status       PurchaseStatus `json:"status"`
	Items        []PurchaseItem `json:"items"`
	TotalAmount  float64        `json:"total_amount"`
	DeliveryDate time.Time      `json:"delivery_date,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	CreatedByID   string         `json:"created_by_id,omitempty"`
	ConfirmedByID string         `json:"confirmed_by_id,omitempty"`
	ReceivedByID  string         `json:"received_by_id,omitempty"`
	ConfirmedAt  time.Time      `json:"confirmed_at,omitempty"`
	ReceivedAt   time.Time      `json:"received_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
