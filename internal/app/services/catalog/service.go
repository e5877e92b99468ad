// Package catalog manages products and their recipes.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/vendnet/vendops/internal/app/domain/catalog"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Service manages the product catalog.
type Service struct {
	store       storage.CatalogStore
	ingredients storage.InventoryStore
	log         *logger.Logger
}

// New constructs a catalog service.
func New(store storage.CatalogStore, ingredients storage.InventoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, ingredients: ingredients, log: log}
}

// CreateProduct registers a sellable product.
func (s *Service) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if p.Code == "" || p.Name == "" {
		return catalog.Product{}, fmt.Errorf("code and name are required")
	}
	if p.Price <= 0 {
		return catalog.Product{}, fmt.Errorf("price must be positive")
	}
	if p.VATRate < 0 || p.VATRate >= 1 {
		return catalog.Product{}, fmt.Errorf("vat_rate must be in [0, 1)")
	}
	p.Active = true

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return catalog.Product{}, err
	}
	s.log.WithField("product_id", created.ID).
		WithField("code", created.Code).
		Info("product created")
	return created, nil
}

// UpdateProduct applies field changes to a product.
func (s *Service) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	existing, err := s.store.GetProduct(ctx, p.ID)
	if err != nil {
		return catalog.Product{}, err
	}
	if p.Code == "" {
		p.Code = existing.Code
	}
	if p.Name == "" {
		p.Name = existing.Name
	}
	if p.Price <= 0 {
		return catalog.Product{}, fmt.Errorf("price must be positive")
	}
	p.CreatedAt = existing.CreatedAt

	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return catalog.Product{}, err
	}
	s.log.WithField("product_id", p.ID).Info("product updated")
	return updated, nil
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// ListProducts lists the catalog, optionally only active items.
func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]catalog.Product, error) {
	return s.store.ListProducts(ctx, activeOnly)
}

// CreateRecipe adds a new recipe version for a product. The version is
// assigned automatically; activation is a separate step.
func (s *Service) CreateRecipe(ctx context.Context, r catalog.Recipe) (catalog.Recipe, error) {
	if _, err := s.store.GetProduct(ctx, r.ProductID); err != nil {
		return catalog.Recipe{}, fmt.Errorf("product validation failed: %w", err)
	}
	if len(r.Items) == 0 {
		return catalog.Recipe{}, fmt.Errorf("recipe needs at least one ingredient")
	}
	seen := make(map[string]bool, len(r.Items))
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return catalog.Recipe{}, fmt.Errorf("ingredient %s: quantity must be positive", item.IngredientID)
		}
		if seen[item.IngredientID] {
			return catalog.Recipe{}, fmt.Errorf("ingredient %s listed twice", item.IngredientID)
		}
		seen[item.IngredientID] = true
		if s.ingredients != nil {
			if _, err := s.ingredients.GetIngredient(ctx, item.IngredientID); err != nil {
				return catalog.Recipe{}, fmt.Errorf("ingredient %s validation failed: %w", item.IngredientID, err)
			}
		}
	}

	existing, err := s.store.ListRecipes(ctx, r.ProductID)
	if err != nil {
		return catalog.Recipe{}, err
	}
	maxVersion := 0
	for _, rec := range existing {
		if rec.Version > maxVersion {
			maxVersion = rec.Version
		}
	}
	r.Version = maxVersion + 1
	r.Active = false

	created, err := s.store.CreateRecipe(ctx, r)
	if err != nil {
		return catalog.Recipe{}, err
	}
	s.log.WithField("recipe_id", created.ID).
		WithField("product_id", created.ProductID).
		WithField("version", created.Version).
		Info("recipe version created")
	return created, nil
}

// ActivateRecipe makes the given version the one sales consume from.
func (s *Service) ActivateRecipe(ctx context.Context, recipeID string) (catalog.Recipe, error) {
	r, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return catalog.Recipe{}, err
	}
	if err := s.store.SetActiveRecipe(ctx, r.ProductID, recipeID); err != nil {
		return catalog.Recipe{}, err
	}
	s.log.WithField("recipe_id", recipeID).
		WithField("product_id", r.ProductID).
		WithField("version", r.Version).
		Info("recipe activated")
	return s.store.GetRecipe(ctx, recipeID)
}

// GetRecipe fetches one recipe version.
func (s *Service) GetRecipe(ctx context.Context, id string) (catalog.Recipe, error) {
	return s.store.GetRecipe(ctx, id)
}

// ListRecipes lists all versions for a product.
func (s *Service) ListRecipes(ctx context.Context, productID string) ([]catalog.Recipe, error) {
	return s.store.ListRecipes(ctx, productID)
}

// ActiveRecipe fetches the recipe sales consume ingredients from.
func (s *Service) ActiveRecipe(ctx context.Context, productID string) (catalog.Recipe, error) {
	return s.store.GetActiveRecipe(ctx, productID)
}

// RecipeCost prices one serving of the recipe from current ingredient
// costs.
func (s *Service) RecipeCost(ctx context.Context, recipeID string) (float64, error) {
	r, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return 0, err
	}
	if s.ingredients == nil {
		return 0, nil
	}
	var total float64
	for _, item := range r.Items {
		ing, err := s.ingredients.GetIngredient(ctx, item.IngredientID)
		if err != nil {
			return 0, fmt.Errorf("ingredient %s: %w", item.IngredientID, err)
		}
		total += item.Quantity * ing.CostPerUnit
	}
	return total, nil
}
