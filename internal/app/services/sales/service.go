// Package sales records dispense events and reconciles them against
// payment provider settlements.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vendnet/vendops/internal/app/domain/finance"
	domaininv "github.com/vendnet/vendops/internal/app/domain/inventory"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/services/inventory"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// accountCodeForMethod maps a payment method to the finance account
// the revenue lands on.
var accountCodeForMethod = map[sale.PaymentMethod]string{
	sale.MethodCash:         "cash_main",
	sale.MethodPayme:        "wallet_payme",
	sale.MethodClick:        "wallet_click",
	sale.MethodUzum:         "wallet_uzum",
	sale.MethodCard:         "bank_main",
	sale.MethodBankTransfer: "bank_main",
}

// AccountCodeForMethod exposes the method-to-account mapping.
func AccountCodeForMethod(m sale.PaymentMethod) (string, bool) {
	code, ok := accountCodeForMethod[m]
	return code, ok
}

// Service records sales and their side effects on stock and finance.
type Service struct {
	store     storage.SaleStore
	machines  storage.MachineStore
	catalog   storage.CatalogStore
	finance   storage.FinanceStore
	inventory *inventory.Service
	log       *logger.Logger
}

// New constructs a sales service.
func New(store storage.SaleStore, machines storage.MachineStore, cat storage.CatalogStore, fin storage.FinanceStore, inv *inventory.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sales")
	}
	return &Service{store: store, machines: machines, catalog: cat, finance: fin, inventory: inv, log: log}
}

// RecordInput carries one reported dispense event.
type RecordInput struct {
	MachineID     string
	ProductID     string
	Quantity      int
	UnitPrice     float64
	PaymentMethod sale.PaymentMethod
	TransactionID string
	SoldAt        time.Time
	RawData       []byte
}

// Record books a sale, posts the revenue to finance and consumes the
// machine's ingredient stock per the product's active recipe.
func (s *Service) Record(ctx context.Context, in RecordInput) (sale.Sale, error) {
	if !sale.ValidMethod(in.PaymentMethod) {
		return sale.Sale{}, fmt.Errorf("unsupported payment method %q", in.PaymentMethod)
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	m, err := s.machines.GetMachine(ctx, in.MachineID)
	if err != nil {
		return sale.Sale{}, fmt.Errorf("machine validation failed: %w", err)
	}
	p, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return sale.Sale{}, fmt.Errorf("product validation failed: %w", err)
	}
	if !p.Active {
		return sale.Sale{}, fmt.Errorf("product %s is not active", p.Code)
	}
	if in.UnitPrice <= 0 {
		in.UnitPrice = p.Price
	}

	sl := sale.Sale{
		MachineID:     m.ID,
		ProductID:     p.ID,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		TotalAmount:   in.UnitPrice * float64(in.Quantity),
		PaymentMethod: in.PaymentMethod,
		TransactionID: in.TransactionID,
		SyncStatus:    sale.SyncPending,
		RawData:       in.RawData,
		SoldAt:        in.SoldAt,
	}
	created, err := s.store.CreateSale(ctx, sl)
	if err != nil {
		return sale.Sale{}, err
	}

	if err := s.postRevenue(ctx, created); err != nil {
		s.log.WithError(err).
			WithField("sale_id", created.ID).
			Warn("revenue posting failed")
	}
	s.consumeStock(ctx, created)

	s.log.WithField("sale_id", created.ID).
		WithField("machine_id", created.MachineID).
		WithField("amount", created.TotalAmount).
		WithField("method", string(created.PaymentMethod)).
		Info("sale recorded")
	return created, nil
}

func (s *Service) postRevenue(ctx context.Context, sl sale.Sale) error {
	if s.finance == nil {
		return nil
	}
	code, ok := accountCodeForMethod[sl.PaymentMethod]
	if !ok {
		return fmt.Errorf("no account mapped for method %q", sl.PaymentMethod)
	}
	account, err := s.finance.GetFinanceAccountByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("account %s: %w", code, err)
	}
	_, err = s.finance.CreateTransaction(ctx, finance.Transaction{
		Type:          finance.TypeIncome,
		Category:      finance.CategorySales,
		ToAccountID:   account.ID,
		Amount:        sl.TotalAmount,
		Description:   "sale " + sl.ID,
		ReferenceType: "sale",
		ReferenceID:   sl.ID,
		OccurredAt:    sl.SoldAt,
	})
	return err
}

// consumeStock lowers the machine's ingredient levels per the active
// recipe. Missing recipes and stock shortfalls are logged, not fatal;
// the sale already happened physically.
func (s *Service) consumeStock(ctx context.Context, sl sale.Sale) {
	if s.inventory == nil {
		return
	}
	recipe, err := s.catalog.GetActiveRecipe(ctx, sl.ProductID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.WithError(err).WithField("sale_id", sl.ID).Warn("recipe lookup failed")
		}
		return
	}
	loc := domaininv.Location{Type: domaininv.LocationMachine, ID: sl.MachineID}
	for _, item := range recipe.Items {
		qty := item.Quantity * float64(sl.Quantity)
		mv := inventory.Movement{
			IngredientID: item.IngredientID,
			Quantity:     qty,
			Notes:        "sale " + sl.ID,
		}
		if _, err := s.inventory.Issue(ctx, loc, mv, ""); err != nil {
			if errors.Is(err, inventory.ErrInsufficientStock) {
				// Machine tracking drifted from reality; floor at zero.
				if _, aerr := s.inventory.Adjust(ctx, loc, item.IngredientID, 0, "sale "+sl.ID+" drained stock", ""); aerr != nil {
					s.log.WithError(aerr).WithField("sale_id", sl.ID).Warn("stock floor adjustment failed")
				}
				s.log.WithField("sale_id", sl.ID).
					WithField("ingredient_id", item.IngredientID).
					Warn("machine stock went below recipe consumption")
				continue
			}
			s.log.WithError(err).WithField("sale_id", sl.ID).Warn("stock consumption failed")
		}
	}
}

// Get fetches one sale.
func (s *Service) Get(ctx context.Context, id string) (sale.Sale, error) {
	return s.store.GetSale(ctx, id)
}

// List lists sales matching the filter.
func (s *Service) List(ctx context.Context, filter storage.SaleFilter) ([]sale.Sale, error) {
	return s.store.ListSales(ctx, filter)
}

// IngestPayment books a settlement record from a payment source. The
// external id and amount fall back to fields extracted from the raw
// provider payload when not given explicitly.
func (s *Service) IngestPayment(ctx context.Context, p sale.Payment) (sale.Payment, error) {
	if p.Source == "" {
		return sale.Payment{}, fmt.Errorf("source is required")
	}
	if !sale.ValidMethod(p.Method) {
		return sale.Payment{}, fmt.Errorf("unsupported payment method %q", p.Method)
	}
	if len(p.RawData) > 0 {
		if p.ExternalID == "" {
			for _, path := range []string{"transaction_id", "id", "payment.id"} {
				if v := gjson.GetBytes(p.RawData, path); v.Exists() {
					p.ExternalID = v.String()
					break
				}
			}
		}
		if p.Amount == 0 {
			for _, path := range []string{"amount", "payment.amount"} {
				if v := gjson.GetBytes(p.RawData, path); v.Exists() {
					p.Amount = v.Float()
					break
				}
			}
		}
	}
	if p.Amount <= 0 {
		return sale.Payment{}, fmt.Errorf("amount must be positive")
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}

	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return sale.Payment{}, err
	}
	s.log.WithField("payment_id", created.ID).
		WithField("source", created.Source).
		WithField("amount", created.Amount).
		Info("payment ingested")
	return created, nil
}

// ListPayments lists payments matching the filter.
func (s *Service) ListPayments(ctx context.Context, filter storage.PaymentFilter) ([]sale.Payment, error) {
	return s.store.ListPayments(ctx, filter)
}
