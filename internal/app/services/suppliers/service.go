// Package suppliers manages vendors and the purchase orders that feed
// warehouse stock.
package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/supplier"
	"github.com/vendnet/vendops/internal/app/services/inventory"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Service manages suppliers and purchases.
type Service struct {
	store     storage.SupplierStore
	finance   storage.FinanceStore
	inventory *inventory.Service
	log       *logger.Logger
}

// New constructs a suppliers service.
func New(store storage.SupplierStore, fin storage.FinanceStore, inv *inventory.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("suppliers")
	}
	return &Service{store: store, finance: fin, inventory: inv, log: log}
}

// CreateSupplier registers a vendor.
func (s *Service) CreateSupplier(ctx context.Context, sp supplier.Supplier) (supplier.Supplier, error) {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return supplier.Supplier{}, fmt.Errorf("name is required")
	}
	sp.Active = true
	created, err := s.store.CreateSupplier(ctx, sp)
	if err != nil {
		return supplier.Supplier{}, err
	}
	s.log.WithField("supplier_id", created.ID).
		WithField("name", created.Name).
		Info("supplier created")
	return created, nil
}

// UpdateSupplier applies field changes to a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, sp supplier.Supplier) (supplier.Supplier, error) {
	existing, err := s.store.GetSupplier(ctx, sp.ID)
	if err != nil {
		return supplier.Supplier{}, err
	}
	if sp.Name == "" {
		sp.Name = existing.Name
	}
	if sp.TaxID == "" {
		sp.TaxID = existing.TaxID
	}
	sp.CreatedAt = existing.CreatedAt
	return s.store.UpdateSupplier(ctx, sp)
}

// GetSupplier fetches one supplier.
func (s *Service) GetSupplier(ctx context.Context, id string) (supplier.Supplier, error) {
	return s.store.GetSupplier(ctx, id)
}

// ListSuppliers lists suppliers.
func (s *Service) ListSuppliers(ctx context.Context, activeOnly bool) ([]supplier.Supplier, error) {
	return s.store.ListSuppliers(ctx, activeOnly)
}

// PurchaseItemInput is one ordered line of a new purchase.
type PurchaseItemInput struct {
	IngredientID string
	Quantity     float64
	PricePerUnit float64
}

// CreatePurchase opens a draft purchase order with the given lines.
func (s *Service) CreatePurchase(ctx context.Context, supplierID string, items []PurchaseItemInput, deliveryDate time.Time, notes, actorID string) (supplier.Purchase, error) {
	sp, err := s.store.GetSupplier(ctx, supplierID)
	if err != nil {
		return supplier.Purchase{}, fmt.Errorf("supplier validation failed: %w", err)
	}
	if !sp.Active {
		return supplier.Purchase{}, fmt.Errorf("supplier %s is not active", sp.Name)
	}
	if len(items) == 0 {
		return supplier.Purchase{}, fmt.Errorf("at least one item is required")
	}

	var total float64
	lines := make([]supplier.PurchaseItem, 0, len(items))
	for _, in := range items {
		if in.Quantity <= 0 || in.PricePerUnit <= 0 {
			return supplier.Purchase{}, fmt.Errorf("item quantity and price must be positive")
		}
		if _, err := s.inventory.GetIngredient(ctx, in.IngredientID); err != nil {
			return supplier.Purchase{}, fmt.Errorf("ingredient validation failed: %w", err)
		}
		amount := in.Quantity * in.PricePerUnit
		total += amount
		lines = append(lines, supplier.PurchaseItem{
			IngredientID: in.IngredientID,
			Quantity:     in.Quantity,
			PricePerUnit: in.PricePerUnit,
			Amount:       amount,
		})
	}

	created, err := s.store.CreatePurchase(ctx, supplier.Purchase{
		SupplierID:   supplierID,
		Status:       supplier.PurchaseDraft,
		Items:        lines,
		TotalAmount:  total,
		DeliveryDate: deliveryDate,
		Notes:        notes,
		CreatedByID:  actorID,
	})
	if err != nil {
		return supplier.Purchase{}, err
	}
	s.log.WithField("purchase_id", created.ID).
		WithField("supplier_id", supplierID).
		WithField("total", total).
		Info("purchase created")
	return created, nil
}

// ConfirmPurchase moves a draft order to confirmed.
func (s *Service) ConfirmPurchase(ctx context.Context, id, actorID string) (supplier.Purchase, error) {
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return supplier.Purchase{}, err
	}
	if p.Status != supplier.PurchaseDraft {
		return supplier.Purchase{}, fmt.Errorf("only a draft purchase can be confirmed")
	}
	p.Status = supplier.PurchaseConfirmed
	p.ConfirmedByID = actorID
	p.ConfirmedAt = time.Now().UTC()
	return s.store.UpdatePurchase(ctx, p)
}

// CancelPurchase abandons a draft or confirmed order.
func (s *Service) CancelPurchase(ctx context.Context, id string) (supplier.Purchase, error) {
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return supplier.Purchase{}, err
	}
	if p.Status != supplier.PurchaseDraft && p.Status != supplier.PurchaseConfirmed {
		return supplier.Purchase{}, fmt.Errorf("purchase is already %s", p.Status)
	}
	p.Status = supplier.PurchaseCancelled
	return s.store.UpdatePurchase(ctx, p)
}

// ReceivePurchase books a confirmed order into the warehouse. Delivered
// quantities default to the ordered ones; shortfalls and overages are
// recorded per line. The paid total posts as a purchase expense.
func (s *Service) ReceivePurchase(ctx context.Context, id, warehouseID string, received map[string]float64, actorID string) (supplier.Purchase, error) {
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return supplier.Purchase{}, err
	}
	if p.Status != supplier.PurchaseConfirmed {
		return supplier.Purchase{}, fmt.Errorf("only a confirmed purchase can be received")
	}
	if warehouseID == "" {
		warehouseID = "main"
	}

	loc := domaininv.Location{Type: domaininv.LocationWarehouse, ID: warehouseID}
	var paid float64
	for i := range p.Items {
		item := &p.Items[i]
		qty, ok := received[item.IngredientID]
		if !ok {
			qty = item.Quantity
		}
		if qty < 0 {
			return supplier.Purchase{}, fmt.Errorf("received quantity cannot be negative")
		}
		item.ReceivedQuantity = qty
		paid += qty * item.PricePerUnit
		if qty == 0 {
			continue
		}
		mv := inventory.Movement{
			IngredientID: item.IngredientID,
			Quantity:     qty,
			Notes:        "purchase " + p.ID,
		}
		if _, err := s.inventory.Receive(ctx, loc, mv, actorID); err != nil {
			return supplier.Purchase{}, fmt.Errorf("receive %s: %w", item.IngredientID, err)
		}
	}

	p.Status = supplier.PurchaseReceived
	p.ReceivedByID = actorID
	p.ReceivedAt = time.Now().UTC()
	updated, err := s.store.UpdatePurchase(ctx, p)
	if err != nil {
		return supplier.Purchase{}, err
	}

	if err := s.postExpense(ctx, updated, paid, actorID); err != nil {
		s.log.WithError(err).
			WithField("purchase_id", updated.ID).
			Warn("purchase expense posting failed")
	}

	s.log.WithField("purchase_id", updated.ID).
		WithField("warehouse_id", warehouseID).
		WithField("paid", paid).
		Info("purchase received")
	return updated, nil
}

func (s *Service) postExpense(ctx context.Context, p supplier.Purchase, amount float64, actorID string) error {
	if s.finance == nil || amount <= 0 {
		return nil
	}
	account, err := s.finance.GetFinanceAccountByCode(ctx, "bank_main")
	if err != nil {
		return fmt.Errorf("account bank_main: %w", err)
	}
	_, err = s.finance.CreateTransaction(ctx, finance.Transaction{
		Type:          finance.TypeExpense,
		Category:      finance.CategoryPurchase,
		FromAccountID: account.ID,
		Amount:        amount,
		Description:   "purchase " + p.ID,
		ReferenceType: "purchase",
		ReferenceID:   p.ID,
		CreatedByID:   actorID,
		OccurredAt:    p.ReceivedAt,
	})
	return err
}

// GetPurchase fetches one purchase.
func (s *Service) GetPurchase(ctx context.Context, id string) (supplier.Purchase, error) {
	return s.store.GetPurchase(ctx, id)
}

// ListPurchases lists purchases matching the filter.
func (s *Service) ListPurchases(ctx context.Context, filter storage.PurchaseFilter) ([]supplier.Purchase, error) {
	return s.store.ListPurchases(ctx, filter)
}
