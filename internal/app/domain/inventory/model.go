package inventory

import "time"

// IngredientCategory groups ingredients for warehouse views.
type IngredientCategory string

const (
	CategoryCoffee IngredientCategory = "coffee"
	CategoryMilk   IngredientCategory = "milk"
	CategorySyrup  IngredientCategory = "syrup"
	CategoryWater  IngredientCategory = "water"
	CategoryCup    IngredientCategory = "cup"
	CategoryLid    IngredientCategory = "lid"
	CategorySugar  IngredientCategory = "sugar"
	CategorySnack  IngredientCategory = "snack"
	CategoryOther  IngredientCategory = "other"
)

// Unit is the measurement unit an ingredient is tracked in.
type Unit string

const (
	UnitKg   Unit = "kg"
	UnitL    Unit = "l"
	UnitPcs  Unit = "pcs"
	UnitPack Unit = "pack"
)

// ValidUnit reports whether u is a known unit.
func ValidUnit(u Unit) bool {
	switch u {
	case UnitKg, UnitL, UnitPcs, UnitPack:
		return true
	}
	return false
}

// LocationType identifies where stock physically sits.
type LocationType string

const (
	LocationWarehouse LocationType = "warehouse"
	LocationMachine   LocationType = "machine"
	LocationBag       LocationType = "bag"
	LocationTransit   LocationType = "transit"
)

// ValidLocationType reports whether t is a known location type.
func ValidLocationType(t LocationType) bool {
	switch t {
	case LocationWarehouse, LocationMachine, LocationBag, LocationTransit:
		return true
	}
	return false
}

// Location is a typed stock location reference.
type Location struct {
	Type LocationType `json:"type"`
	ID   string       `json:"id"`
}

// Ingredient is a consumable tracked across locations.
type Ingredient struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	Category      IngredientCategory `json:"category"`
	Unit          Unit               `json:"unit"`
	CostPerUnit   float64            `json:"cost_per_unit,omitempty"`
	MinStockLevel float64            `json:"min_stock_level,omitempty"`
	Barcode       string             `json:"barcode,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Record is one entry in the append-only stock ledger. Quantity is the
// absolute level at the location after the action; the latest record
// per (location, ingredient) is the current stock.
type Record struct {
	ID           string       `json:"id"`
	IngredientID string       `json:"ingredient_id"`
	Location     Location     `json:"location"`
	Quantity     float64      `json:"quantity"`
	BatchNumber  string       `json:"batch_number,omitempty"`
	ExpiryDate   time.Time    `json:"expiry_date,omitempty"`
	CreatedByID  string       `json:"created_by_id,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	RecordedAt   time.Time    `json:"recorded_at"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Level is the current quantity of an ingredient at a location.
type Level struct {
	IngredientID string    `json:"ingredient_id"`
	Location     Location  `json:"location"`
	Quantity     float64   `json:"quantity"`
	RecordedAt   time.Time `json:"recorded_at"`
}
