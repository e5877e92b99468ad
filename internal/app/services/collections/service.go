// Package collections handles cash pickups from machines. Cash sales
// settle here rather than in payment reconciliation: a verified
// collection closes the machine's cash window.
package collections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/collection"
	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// ErrNotOwner is returned when an operator touches a collection
// started by someone else.
var ErrNotOwner = errors.New("collection belongs to another operator")

// Service manages the cash collection lifecycle.
type Service struct {
	store    storage.CollectionStore
	machines storage.MachineStore
	sales    storage.SaleStore
	log      *logger.Logger
}

// New constructs a collections service.
func New(store storage.CollectionStore, machines storage.MachineStore, sales storage.SaleStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("collections")
	}
	return &Service{store: store, machines: machines, sales: sales, log: log}
}

// Start opens a collection for a machine. A machine can have at most
// one collection in progress.
func (s *Service) Start(ctx context.Context, machineID, operatorID string) (collection.Collection, error) {
	if operatorID == "" {
		return collection.Collection{}, fmt.Errorf("operator id is required")
	}
	if _, err := s.machines.GetMachine(ctx, machineID); err != nil {
		return collection.Collection{}, fmt.Errorf("machine validation failed: %w", err)
	}
	open, err := s.store.ListCollections(ctx, storage.CollectionFilter{
		MachineID: machineID,
		Status:    collection.StatusInProgress,
	})
	if err != nil {
		return collection.Collection{}, err
	}
	if len(open) > 0 {
		return collection.Collection{}, fmt.Errorf("machine %s already has a collection in progress: %w", machineID, storage.ErrConflict)
	}

	created, err := s.store.CreateCollection(ctx, collection.Collection{
		MachineID:   machineID,
		OperatorID:  operatorID,
		Status:      collection.StatusInProgress,
		CollectedAt: time.Now().UTC(),
	})
	if err != nil {
		return collection.Collection{}, err
	}
	s.log.WithField("collection_id", created.ID).
		WithField("machine_id", machineID).
		Info("collection started")
	return created, nil
}

// SetDenominations replaces the counted banknote breakdown. Only the
// operator who started the collection may count it.
func (s *Service) SetDenominations(ctx context.Context, id, operatorID string, denoms []collection.Denomination) (collection.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return collection.Collection{}, err
	}
	if c.OperatorID != operatorID {
		return collection.Collection{}, ErrNotOwner
	}
	if c.Status != collection.StatusInProgress {
		return collection.Collection{}, fmt.Errorf("collection is already %s", c.Status)
	}

	var total float64
	out := make([]collection.Denomination, 0, len(denoms))
	for _, d := range denoms {
		if d.Value <= 0 || d.Quantity <= 0 {
			return collection.Collection{}, fmt.Errorf("denomination value and quantity must be positive")
		}
		d.Amount = d.Value * float64(d.Quantity)
		total += d.Amount
		out = append(out, d)
	}
	c.Denominations = out
	c.AmountCollected = total
	return s.store.UpdateCollection(ctx, c)
}

// Complete closes the count and computes the expected amount from the
// cash sales accumulated since the previous verified collection.
func (s *Service) Complete(ctx context.Context, id, operatorID, notes string) (collection.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return collection.Collection{}, err
	}
	if c.OperatorID != operatorID {
		return collection.Collection{}, ErrNotOwner
	}
	if c.Status != collection.StatusInProgress {
		return collection.Collection{}, fmt.Errorf("collection is already %s", c.Status)
	}
	if len(c.Denominations) == 0 {
		return collection.Collection{}, fmt.Errorf("counted denominations are required")
	}

	expected, err := s.expectedCash(ctx, c)
	if err != nil {
		return collection.Collection{}, err
	}
	c.ExpectedAmount = expected
	c.Discrepancy = c.AmountCollected - expected
	c.Notes = notes
	c.Status = collection.StatusCompleted
	c.CompletedAt = time.Now().UTC()

	updated, err := s.store.UpdateCollection(ctx, c)
	if err != nil {
		return collection.Collection{}, err
	}
	s.log.WithField("collection_id", updated.ID).
		WithField("collected", updated.AmountCollected).
		WithField("expected", updated.ExpectedAmount).
		WithField("discrepancy", updated.Discrepancy).
		Info("collection completed")
	return updated, nil
}

// Verify is the manager's sign-off. Approval settles the machine's
// pending cash sales in the covered window and books the counted cash
// as a verified payment; rejection leaves the sales pending.
func (s *Service) Verify(ctx context.Context, id, verifierID string, approved bool, notes string) (collection.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return collection.Collection{}, err
	}
	if c.Status != collection.StatusCompleted {
		return collection.Collection{}, fmt.Errorf("only a completed collection can be verified")
	}

	now := time.Now().UTC()
	c.VerifiedByID = verifierID
	c.VerifiedAt = now
	c.VerificationNotes = notes

	if !approved {
		c.Status = collection.StatusRejected
		updated, err := s.store.UpdateCollection(ctx, c)
		if err != nil {
			return collection.Collection{}, err
		}
		s.log.WithField("collection_id", c.ID).Warn("collection rejected")
		return updated, nil
	}

	c.Status = collection.StatusVerified
	updated, err := s.store.UpdateCollection(ctx, c)
	if err != nil {
		return collection.Collection{}, err
	}

	if err := s.settleCashSales(ctx, updated); err != nil {
		s.log.WithError(err).
			WithField("collection_id", updated.ID).
			Warn("cash sale settlement failed")
	}
	if _, err := s.sales.CreatePayment(ctx, sale.Payment{
		Source:            "collection",
		ExternalID:        updated.ID,
		Amount:            updated.AmountCollected,
		Method:            sale.MethodCash,
		PaidAt:            updated.CollectedAt,
		Verified:          true,
		VerifiedAt:        now,
		VerificationNotes: notes,
	}); err != nil {
		s.log.WithError(err).
			WithField("collection_id", updated.ID).
			Warn("collection payment booking failed")
	}

	s.log.WithField("collection_id", updated.ID).
		WithField("machine_id", updated.MachineID).
		WithField("amount", updated.AmountCollected).
		Info("collection verified")
	return updated, nil
}

// Get fetches one collection.
func (s *Service) Get(ctx context.Context, id string) (collection.Collection, error) {
	return s.store.GetCollection(ctx, id)
}

// List lists collections matching the filter.
func (s *Service) List(ctx context.Context, filter storage.CollectionFilter) ([]collection.Collection, error) {
	return s.store.ListCollections(ctx, filter)
}

// PendingVerification lists completed collections awaiting sign-off.
func (s *Service) PendingVerification(ctx context.Context) ([]collection.Collection, error) {
	return s.store.ListCollections(ctx, storage.CollectionFilter{Status: collection.StatusCompleted})
}

// expectedCash sums the machine's cash sales between the previous
// verified collection and this one's opening.
func (s *Service) expectedCash(ctx context.Context, c collection.Collection) (float64, error) {
	from, err := s.windowStart(ctx, c)
	if err != nil {
		return 0, err
	}
	sales, err := s.sales.ListSales(ctx, storage.SaleFilter{
		MachineID: c.MachineID,
		From:      from,
		To:        c.CollectedAt,
	})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, sl := range sales {
		if sl.PaymentMethod == sale.MethodCash {
			total += sl.TotalAmount
		}
	}
	return total, nil
}

func (s *Service) settleCashSales(ctx context.Context, c collection.Collection) error {
	from, err := s.windowStart(ctx, c)
	if err != nil {
		return err
	}
	pending, err := s.sales.ListSales(ctx, storage.SaleFilter{
		MachineID:  c.MachineID,
		From:       from,
		To:         c.CollectedAt,
		SyncStatus: sale.SyncPending,
	})
	if err != nil {
		return err
	}
	for _, sl := range pending {
		if sl.PaymentMethod != sale.MethodCash {
			continue
		}
		sl.SyncStatus = sale.SyncMatched
		if _, err := s.sales.UpdateSale(ctx, sl); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) windowStart(ctx context.Context, c collection.Collection) (time.Time, error) {
	verified, err := s.store.ListCollections(ctx, storage.CollectionFilter{
		MachineID: c.MachineID,
		Status:    collection.StatusVerified,
	})
	if err != nil {
		return time.Time{}, err
	}
	var from time.Time
	for _, v := range verified {
		if v.ID == c.ID {
			continue
		}
		if v.CollectedAt.Before(c.CollectedAt) && v.CollectedAt.After(from) {
			from = v.CollectedAt
		}
	}
	return from, nil
}
