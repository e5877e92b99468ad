package catalog

import "time"

// Category classifies a sellable product.
type Category string

const (
	CategoryCoffee    Category = "coffee"
	CategoryTea       Category = "tea"
	CategoryChocolate Category = "chocolate"
	CategorySnack     Category = "snack"
	CategoryWater     Category = "water"
	CategoryJuice     Category = "juice"
	CategoryOther     Category = "other"
)

// Product is a sellable item with a price and an optional recipe.
type Product struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Category    Category `json:"category,omitempty"`
	Price       float64  `json:"price"`
	VATRate     float64  `json:"vat_rate"`
	Active      bool     `json:"active"`
	Description string   `json:"description,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceWithoutVAT strips VAT from the gross price.
func (p Product) PriceWithoutVAT() float64 {
	return p.Price / (1 + p.VATRate)
}

// RecipeItem is one ingredient requirement within a recipe.
type RecipeItem struct {
	IngredientID string  `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Notes        string  `json:"notes,omitempty"`
}

// Recipe maps a product to the ingredient quantities one serving
// consumes. Versions are immutable; at most one is active per product.
type Recipe struct {
	ID        string       `json:"id"`
	ProductID string       `json:"product_id"`
	Version   int          `json:"version"`
	Active    bool         `json:"active"`
	Notes     string       `json:"notes,omitempty"`
	Items     []RecipeItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
