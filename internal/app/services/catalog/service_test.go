package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendnet/vendops/internal/app/domain/catalog"
	"github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/storage/memory"
	"github.com/vendnet/vendops/pkg/logger"
)

type catalogFixture struct {
	svc        *Service
	ctx        context.Context
	product    catalog.Product
	ingredient inventory.Ingredient
}

func newCatalogFixture(t *testing.T) catalogFixture {
	t.Helper()
	store := memory.New()
	svc := New(store, store, logger.NewNop())
	ctx := context.Background()

	ing, err := store.CreateIngredient(ctx, inventory.Ingredient{Code: "COFFEE", Name: "Coffee beans", Unit: inventory.UnitKg})
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, catalog.Product{Code: "ESP", Name: "Espresso", Category: catalog.CategoryCoffee, Price: 15000, VATRate: 0.12})
	require.NoError(t, err)

	return catalogFixture{svc: svc, ctx: ctx, product: p, ingredient: ing}
}

func TestCreateProductValidation(t *testing.T) {
	fx := newCatalogFixture(t)

	_, err := fx.svc.CreateProduct(fx.ctx, catalog.Product{Name: "No Code", Price: 100})
	assert.Error(t, err, "code is required")

	_, err = fx.svc.CreateProduct(fx.ctx, catalog.Product{Code: "FREE", Name: "Free", Price: 0})
	assert.Error(t, err, "price must be positive")

	_, err = fx.svc.CreateProduct(fx.ctx, catalog.Product{Code: "VAT", Name: "Bad VAT", Price: 100, VATRate: 1.5})
	assert.Error(t, err, "vat rate above 1 is rejected")

	assert.True(t, fx.product.Active, "new products start active")
}

func TestPriceWithoutVAT(t *testing.T) {
	p := catalog.Product{Price: 112, VATRate: 0.12}
	assert.InDelta(t, 100, p.PriceWithoutVAT(), 1e-9)
}

func TestRecipeVersioning(t *testing.T) {
	fx := newCatalogFixture(t)
	item := catalog.RecipeItem{IngredientID: fx.ingredient.ID, Quantity: 0.02}

	v1, err := fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{item}})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.False(t, v1.Active, "new versions start inactive")

	v2, err := fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{item}})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	all, err := fx.svc.ListRecipes(fx.ctx, fx.product.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestActivateRecipeSwitchesActiveVersion(t *testing.T) {
	fx := newCatalogFixture(t)
	item := catalog.RecipeItem{IngredientID: fx.ingredient.ID, Quantity: 0.02}

	v1, err := fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{item}})
	require.NoError(t, err)
	v2, err := fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{item}})
	require.NoError(t, err)

	_, err = fx.svc.ActivateRecipe(fx.ctx, v1.ID)
	require.NoError(t, err)
	active, err := fx.svc.ActiveRecipe(fx.ctx, fx.product.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, active.ID)

	// Activating another version deactivates the previous one.
	_, err = fx.svc.ActivateRecipe(fx.ctx, v2.ID)
	require.NoError(t, err)
	active, err = fx.svc.ActiveRecipe(fx.ctx, fx.product.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, active.ID)

	old, err := fx.svc.GetRecipe(fx.ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, old.Active)
}

func TestCreateRecipeValidation(t *testing.T) {
	fx := newCatalogFixture(t)

	_, err := fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: "no-such-product", Items: []catalog.RecipeItem{{IngredientID: fx.ingredient.ID, Quantity: 1}}})
	assert.Error(t, err, "product must exist")

	_, err = fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID})
	assert.Error(t, err, "recipe needs at least one ingredient")

	_, err = fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{{IngredientID: fx.ingredient.ID, Quantity: -1}}})
	assert.Error(t, err, "quantity must be positive")

	_, err = fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{
		{IngredientID: fx.ingredient.ID, Quantity: 1},
		{IngredientID: fx.ingredient.ID, Quantity: 2},
	}})
	assert.Error(t, err, "duplicate ingredient is rejected")

	_, err = fx.svc.CreateRecipe(fx.ctx, catalog.Recipe{ProductID: fx.product.ID, Items: []catalog.RecipeItem{{IngredientID: "no-such-ingredient", Quantity: 1}}})
	assert.Error(t, err, "ingredient must exist")
}

func TestUpdateProductKeepsUnsetFields(t *testing.T) {
	fx := newCatalogFixture(t)

	updated, err := fx.svc.UpdateProduct(fx.ctx, catalog.Product{ID: fx.product.ID, Price: 18000, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "ESP", updated.Code)
	assert.Equal(t, "Espresso", updated.Name)
	assert.Equal(t, float64(18000), updated.Price)
}

func TestRecipeCost(t *testing.T) {
	store := memory.New()
	svc := New(store, store, logger.NewNop())
	ctx := context.Background()

	coffee, err := store.CreateIngredient(ctx, inventory.Ingredient{Code: "COFFEE", Name: "Coffee beans", Unit: inventory.UnitKg, CostPerUnit: 250000})
	require.NoError(t, err)
	milk, err := store.CreateIngredient(ctx, inventory.Ingredient{Code: "MILK", Name: "Milk", Unit: inventory.UnitL, CostPerUnit: 12000})
	require.NoError(t, err)

	p, err := svc.CreateProduct(ctx, catalog.Product{Code: "LAT", Name: "Latte", Price: 20000})
	require.NoError(t, err)
	recipe, err := svc.CreateRecipe(ctx, catalog.Recipe{ProductID: p.ID, Items: []catalog.RecipeItem{
		{IngredientID: coffee.ID, Quantity: 0.02},
		{IngredientID: milk.ID, Quantity: 0.25},
	}})
	require.NoError(t, err)

	cost, err := svc.RecipeCost(ctx, recipe.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.02*250000+0.25*12000, cost, 1e-9)

	_, err = svc.RecipeCost(ctx, "no-such-recipe")
	assert.Error(t, err)
}
