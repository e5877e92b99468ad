// Package inventory tracks ingredient stock across warehouse, bags and
// machines through an append-only ledger.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// ErrInsufficientStock is returned when an issue or transfer would
// drive a location's level negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// Service manages ingredients and stock movements.
type Service struct {
	store storage.InventoryStore
	log   *logger.Logger
}

// New constructs an inventory service.
func New(store storage.InventoryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("inventory")
	}
	return &Service{store: store, log: log}
}

// CreateIngredient registers a trackable consumable.
func (s *Service) CreateIngredient(ctx context.Context, ing inventory.Ingredient) (inventory.Ingredient, error) {
	ing.Code = strings.TrimSpace(ing.Code)
	ing.Name = strings.TrimSpace(ing.Name)
	if ing.Code == "" || ing.Name == "" {
		return inventory.Ingredient{}, fmt.Errorf("code and name are required")
	}
	if !inventory.ValidUnit(ing.Unit) {
		return inventory.Ingredient{}, fmt.Errorf("unsupported unit %q", ing.Unit)
	}
	if ing.Category == "" {
		ing.Category = inventory.CategoryOther
	}
	created, err := s.store.CreateIngredient(ctx, ing)
	if err != nil {
		return inventory.Ingredient{}, err
	}
	s.log.WithField("ingredient_id", created.ID).
		WithField("code", created.Code).
		Info("ingredient created")
	return created, nil
}

// UpdateIngredient applies field changes to an ingredient.
func (s *Service) UpdateIngredient(ctx context.Context, ing inventory.Ingredient) (inventory.Ingredient, error) {
	existing, err := s.store.GetIngredient(ctx, ing.ID)
	if err != nil {
		return inventory.Ingredient{}, err
	}
	if ing.Code == "" {
		ing.Code = existing.Code
	}
	if ing.Name == "" {
		ing.Name = existing.Name
	}
	if ing.Unit == "" {
		ing.Unit = existing.Unit
	}
	if !inventory.ValidUnit(ing.Unit) {
		return inventory.Ingredient{}, fmt.Errorf("unsupported unit %q", ing.Unit)
	}
	ing.CreatedAt = existing.CreatedAt
	return s.store.UpdateIngredient(ctx, ing)
}

// GetIngredient fetches one ingredient.
func (s *Service) GetIngredient(ctx context.Context, id string) (inventory.Ingredient, error) {
	return s.store.GetIngredient(ctx, id)
}

// ListIngredients lists the ingredient catalog.
func (s *Service) ListIngredients(ctx context.Context) ([]inventory.Ingredient, error) {
	return s.store.ListIngredients(ctx)
}

// Movement describes one requested stock change.
type Movement struct {
	IngredientID string
	Quantity     float64
	BatchNumber  string
	ExpiryDate   time.Time
	Notes        string
}

// Receive books incoming stock at a location, raising its level by the
// movement quantity.
func (s *Service) Receive(ctx context.Context, loc inventory.Location, mv Movement, actorID string) (inventory.Level, error) {
	if err := validateLocation(loc); err != nil {
		return inventory.Level{}, err
	}
	if mv.Quantity <= 0 {
		return inventory.Level{}, fmt.Errorf("quantity must be positive")
	}
	if _, err := s.store.GetIngredient(ctx, mv.IngredientID); err != nil {
		return inventory.Level{}, fmt.Errorf("ingredient validation failed: %w", err)
	}

	current := s.levelOrZero(ctx, loc, mv.IngredientID)
	level, err := s.appendLevel(ctx, loc, mv, current+mv.Quantity, actorID)
	if err != nil {
		return inventory.Level{}, err
	}
	s.log.WithField("ingredient_id", mv.IngredientID).
		WithField("location", locKey(loc)).
		WithField("quantity", mv.Quantity).
		Info("stock received")
	return level, nil
}

// Issue removes stock from a location, e.g. consumption or write-off.
func (s *Service) Issue(ctx context.Context, loc inventory.Location, mv Movement, actorID string) (inventory.Level, error) {
	if err := validateLocation(loc); err != nil {
		return inventory.Level{}, err
	}
	if mv.Quantity <= 0 {
		return inventory.Level{}, fmt.Errorf("quantity must be positive")
	}

	current := s.levelOrZero(ctx, loc, mv.IngredientID)
	if current < mv.Quantity {
		return inventory.Level{}, fmt.Errorf("%w: have %.3f, need %.3f", ErrInsufficientStock, current, mv.Quantity)
	}
	level, err := s.appendLevel(ctx, loc, mv, current-mv.Quantity, actorID)
	if err != nil {
		return inventory.Level{}, err
	}
	s.log.WithField("ingredient_id", mv.IngredientID).
		WithField("location", locKey(loc)).
		WithField("quantity", mv.Quantity).
		Info("stock issued")
	return level, nil
}

// Transfer moves stock between locations as one issue plus one
// receive, both recorded at the same instant.
func (s *Service) Transfer(ctx context.Context, from, to inventory.Location, mv Movement, actorID string) error {
	if err := validateLocation(from); err != nil {
		return err
	}
	if err := validateLocation(to); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("source and destination are the same location")
	}
	if mv.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	fromLevel := s.levelOrZero(ctx, from, mv.IngredientID)
	if fromLevel < mv.Quantity {
		return fmt.Errorf("%w: have %.3f, need %.3f", ErrInsufficientStock, fromLevel, mv.Quantity)
	}
	toLevel := s.levelOrZero(ctx, to, mv.IngredientID)

	// Both sides carry the same RecordedAt so the ledger pairs up.
	at := time.Now().UTC()
	if _, err := s.appendLevelAt(ctx, from, mv, fromLevel-mv.Quantity, actorID, at); err != nil {
		return err
	}
	if _, err := s.appendLevelAt(ctx, to, mv, toLevel+mv.Quantity, actorID, at); err != nil {
		// The source decrement is already in the ledger. Write a
		// compensating record so stock does not vanish in transit.
		restore := mv
		restore.Notes = strings.TrimSpace("transfer rollback " + mv.Notes)
		if _, rbErr := s.appendLevelAt(ctx, from, restore, fromLevel, actorID, time.Now().UTC()); rbErr != nil {
			s.log.WithError(rbErr).
				WithField("ingredient_id", mv.IngredientID).
				WithField("from", locKey(from)).
				Error("transfer rollback failed, source level understated")
		}
		return err
	}
	s.log.WithField("ingredient_id", mv.IngredientID).
		WithField("from", locKey(from)).
		WithField("to", locKey(to)).
		WithField("quantity", mv.Quantity).
		Info("stock transferred")
	return nil
}

// Adjust sets an absolute level after a physical count.
func (s *Service) Adjust(ctx context.Context, loc inventory.Location, ingredientID string, quantity float64, notes, actorID string) (inventory.Level, error) {
	if err := validateLocation(loc); err != nil {
		return inventory.Level{}, err
	}
	if quantity < 0 {
		return inventory.Level{}, fmt.Errorf("quantity cannot be negative")
	}
	if _, err := s.store.GetIngredient(ctx, ingredientID); err != nil {
		return inventory.Level{}, fmt.Errorf("ingredient validation failed: %w", err)
	}
	mv := Movement{IngredientID: ingredientID, Notes: notes}
	level, err := s.appendLevel(ctx, loc, mv, quantity, actorID)
	if err != nil {
		return inventory.Level{}, err
	}
	s.log.WithField("ingredient_id", ingredientID).
		WithField("location", locKey(loc)).
		WithField("quantity", quantity).
		Info("stock adjusted")
	return level, nil
}

// Level reads the current stock of an ingredient at a location. A pair
// with no ledger records reads as zero.
func (s *Service) Level(ctx context.Context, loc inventory.Location, ingredientID string) (inventory.Level, error) {
	level, err := s.store.CurrentLevel(ctx, loc, ingredientID)
	if errors.Is(err, storage.ErrNotFound) {
		return inventory.Level{IngredientID: ingredientID, Location: loc}, nil
	}
	return level, err
}

// Levels lists current stock for every ingredient seen at a location.
func (s *Service) Levels(ctx context.Context, loc inventory.Location) ([]inventory.Level, error) {
	return s.store.ListLevels(ctx, loc)
}

// Movements lists the ledger for an ingredient over a period.
func (s *Service) Movements(ctx context.Context, ingredientID string, from, to time.Time) ([]inventory.Record, error) {
	return s.store.ListMovements(ctx, ingredientID, from, to)
}

// LowStock reports warehouse ingredients at or under their minimum.
type LowStock struct {
	Ingredient inventory.Ingredient `json:"ingredient"`
	Quantity   float64              `json:"quantity"`
}

// LowStockReport lists warehouse ingredients needing reorder.
func (s *Service) LowStockReport(ctx context.Context, warehouseID string) ([]LowStock, error) {
	ingredients, err := s.store.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}
	loc := inventory.Location{Type: inventory.LocationWarehouse, ID: warehouseID}
	levels, err := s.store.ListLevels(ctx, loc)
	if err != nil {
		return nil, err
	}
	byIngredient := make(map[string]float64, len(levels))
	for _, lvl := range levels {
		byIngredient[lvl.IngredientID] = lvl.Quantity
	}

	var report []LowStock
	for _, ing := range ingredients {
		if ing.MinStockLevel <= 0 {
			continue
		}
		qty := byIngredient[ing.ID]
		if qty <= ing.MinStockLevel {
			report = append(report, LowStock{Ingredient: ing, Quantity: qty})
		}
	}
	return report, nil
}

func (s *Service) levelOrZero(ctx context.Context, loc inventory.Location, ingredientID string) float64 {
	level, err := s.store.CurrentLevel(ctx, loc, ingredientID)
	if err != nil {
		return 0
	}
	return level.Quantity
}

func (s *Service) appendLevel(ctx context.Context, loc inventory.Location, mv Movement, newLevel float64, actorID string) (inventory.Level, error) {
	return s.appendLevelAt(ctx, loc, mv, newLevel, actorID, time.Now().UTC())
}

func (s *Service) appendLevelAt(ctx context.Context, loc inventory.Location, mv Movement, newLevel float64, actorID string, at time.Time) (inventory.Level, error) {
	rec, err := s.store.AppendRecord(ctx, inventory.Record{
		IngredientID: mv.IngredientID,
		Location:     loc,
		Quantity:     newLevel,
		BatchNumber:  mv.BatchNumber,
		ExpiryDate:   mv.ExpiryDate,
		CreatedByID:  actorID,
		Notes:        mv.Notes,
		RecordedAt:   at,
	})
	if err != nil {
		return inventory.Level{}, err
	}
	return inventory.Level{
		IngredientID: rec.IngredientID,
		Location:     rec.Location,
		Quantity:     rec.Quantity,
		RecordedAt:   rec.RecordedAt,
	}, nil
}

func validateLocation(loc inventory.Location) error {
	if !inventory.ValidLocationType(loc.Type) {
		return fmt.Errorf("unsupported location type %q", loc.Type)
	}
	if loc.ID == "" {
		return fmt.Errorf("location id is required")
	}
	return nil
}

func locKey(loc inventory.Location) string {
	return string(loc.Type) + ":" + loc.ID
}
