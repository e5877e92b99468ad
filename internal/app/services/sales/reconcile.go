package sales

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/storage"
)

// matchWindow is how far a payment's timestamp may drift from the sale
// it settles when no external id links them.
const matchWindow = 15 * time.Minute

// amountTolerance absorbs provider rounding on matched pairs.
const amountTolerance = 0.01

// Reconcile matches unverified payments in the period against pending
// sales. Matching is by external id first, then by method and amount
// within the time window. Matched pairs are marked; everything left
// over lands in the report as a discrepancy.
func (s *Service) Reconcile(ctx context.Context, from, to time.Time) (sale.ReconciliationReport, error) {
	report := sale.ReconciliationReport{From: from, To: to}

	unverified := false
	payments, err := s.store.ListPayments(ctx, storage.PaymentFilter{
		From: from, To: to, Verified: &unverified,
	})
	if err != nil {
		return report, err
	}
	pending, err := s.store.ListSales(ctx, storage.SaleFilter{
		From: from, To: to, SyncStatus: sale.SyncPending,
	})
	if err != nil {
		return report, err
	}
	report.SalesTotal = len(pending)
	report.PaymentsTotal = len(payments)

	claimed := make(map[string]bool, len(pending))

	for _, p := range payments {
		match, ok := findMatch(p, pending, claimed)
		if !ok {
			report.Discrepancies = append(report.Discrepancies, sale.Discrepancy{
				Kind:      "orphan_payment",
				PaymentID: p.ID,
				Actual:    p.Amount,
				Detail:    fmt.Sprintf("no %s sale within window", p.Method),
			})
			continue
		}
		claimed[match.ID] = true

		if math.Abs(match.TotalAmount-p.Amount) > amountTolerance {
			report.Discrepancies = append(report.Discrepancies, sale.Discrepancy{
				Kind:      "amount_mismatch",
				SaleID:    match.ID,
				PaymentID: p.ID,
				Expected:  match.TotalAmount,
				Actual:    p.Amount,
			})
			match.SyncStatus = sale.SyncMismatch
		} else {
			match.SyncStatus = sale.SyncMatched
			report.Matched++
		}
		if _, err := s.store.UpdateSale(ctx, match); err != nil {
			return report, err
		}

		p.SaleID = match.ID
		p.Verified = true
		p.VerifiedAt = time.Now().UTC()
		if _, err := s.store.UpdatePayment(ctx, p); err != nil {
			return report, err
		}
	}

	for _, sl := range pending {
		if claimed[sl.ID] || sl.PaymentMethod == sale.MethodCash {
			// Cash settles at collection, not per transaction.
			continue
		}
		report.Discrepancies = append(report.Discrepancies, sale.Discrepancy{
			Kind:     "unmatched_sale",
			SaleID:   sl.ID,
			Expected: sl.TotalAmount,
			Detail:   fmt.Sprintf("no %s payment received", sl.PaymentMethod),
		})
	}

	s.log.WithField("from", from.Format(time.RFC3339)).
		WithField("to", to.Format(time.RFC3339)).
		WithField("matched", report.Matched).
		WithField("discrepancies", len(report.Discrepancies)).
		Info("reconciliation finished")
	return report, nil
}

func findMatch(p sale.Payment, pending []sale.Sale, claimed map[string]bool) (sale.Sale, bool) {
	if p.ExternalID != "" {
		for _, sl := range pending {
			if !claimed[sl.ID] && sl.TransactionID != "" && sl.TransactionID == p.ExternalID {
				return sl, true
			}
		}
	}
	for _, sl := range pending {
		if claimed[sl.ID] || sl.PaymentMethod != p.Method {
			continue
		}
		if math.Abs(sl.TotalAmount-p.Amount) > amountTolerance {
			continue
		}
		drift := sl.SoldAt.Sub(p.PaidAt)
		if drift < 0 {
			drift = -drift
		}
		if drift <= matchWindow {
			return sl, true
		}
	}
	return sale.Sale{}, false
}
