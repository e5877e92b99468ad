// Package investments tracks investor stakes in machines and computes
// their periodic profit payouts.
package investments

import (
	"context"
	"fmt"
	"time"

	domainfin "github.com/vendnet/vendops/internal/app/domain/finance"
	"github.com/vendnet/vendops/internal/app/domain/investment"
	"github.com/vendnet/vendops/internal/app/services/finance"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// DefaultPoolPercent is the share of a machine's net profit reserved
// for the investor pool.
const DefaultPoolPercent = 70.0

// Service manages investments and payout computation.
type Service struct {
	store       storage.InvestmentStore
	machines    storage.MachineStore
	users       storage.UserStore
	sales       storage.SaleStore
	finance     *finance.Service
	poolPercent float64
	log         *logger.Logger
}

// New constructs an investment service.
func New(store storage.InvestmentStore, machines storage.MachineStore, users storage.UserStore, sales storage.SaleStore, fin *finance.Service, poolPercent float64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("investments")
	}
	if poolPercent <= 0 || poolPercent > 100 {
		poolPercent = DefaultPoolPercent
	}
	return &Service{store: store, machines: machines, users: users, sales: sales, finance: fin, poolPercent: poolPercent, log: log}
}

// Create registers a stake. Active shares on one machine never sum
// above 100 percent.
func (s *Service) Create(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	if inv.SharePercent <= 0 || inv.SharePercent > 100 {
		return investment.Investment{}, fmt.Errorf("share_percent must be in (0, 100]")
	}
	if inv.Amount <= 0 {
		return investment.Investment{}, fmt.Errorf("amount must be positive")
	}
	if s.machines != nil {
		if _, err := s.machines.GetMachine(ctx, inv.MachineID); err != nil {
			return investment.Investment{}, fmt.Errorf("machine validation failed: %w", err)
		}
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, inv.InvestorID); err != nil {
			return investment.Investment{}, fmt.Errorf("investor validation failed: %w", err)
		}
	}

	allocated, err := s.allocatedShare(ctx, inv.MachineID, "")
	if err != nil {
		return investment.Investment{}, err
	}
	if allocated+inv.SharePercent > 100 {
		return investment.Investment{}, fmt.Errorf("machine share exceeded: %.2f%% already allocated", allocated)
	}

	if inv.Status == "" {
		inv.Status = investment.StatusActive
	}
	created, err := s.store.CreateInvestment(ctx, inv)
	if err != nil {
		return investment.Investment{}, err
	}
	s.log.WithField("investment_id", created.ID).
		WithField("machine_id", created.MachineID).
		WithField("share_percent", created.SharePercent).
		Info("investment created")
	return created, nil
}

// Update changes a stake's share or status, keeping the 100% cap.
func (s *Service) Update(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	existing, err := s.store.GetInvestment(ctx, inv.ID)
	if err != nil {
		return investment.Investment{}, err
	}
	if inv.SharePercent <= 0 {
		inv.SharePercent = existing.SharePercent
	}
	if inv.Status == "" {
		inv.Status = existing.Status
	}
	inv.MachineID = existing.MachineID
	inv.InvestorID = existing.InvestorID
	if inv.Amount <= 0 {
		inv.Amount = existing.Amount
	}
	if inv.InvestedAt.IsZero() {
		inv.InvestedAt = existing.InvestedAt
	}

	if inv.Status == investment.StatusActive {
		allocated, err := s.allocatedShare(ctx, inv.MachineID, inv.ID)
		if err != nil {
			return investment.Investment{}, err
		}
		if allocated+inv.SharePercent > 100 {
			return investment.Investment{}, fmt.Errorf("machine share exceeded: %.2f%% already allocated", allocated)
		}
	}
	return s.store.UpdateInvestment(ctx, inv)
}

// Get fetches one investment.
func (s *Service) Get(ctx context.Context, id string) (investment.Investment, error) {
	return s.store.GetInvestment(ctx, id)
}

// List lists investments matching the filter.
func (s *Service) List(ctx context.Context, filter storage.InvestmentFilter) ([]investment.Investment, error) {
	return s.store.ListInvestments(ctx, filter)
}

// ComputePayouts creates scheduled payouts for every active stake on a
// machine over the period. The payout base is the machine's revenue
// minus its direct expenses, scaled by the investor pool percent.
func (s *Service) ComputePayouts(ctx context.Context, machineID string, periodStart, periodEnd time.Time) ([]investment.Payout, error) {
	stakes, err := s.store.ListInvestments(ctx, storage.InvestmentFilter{
		MachineID: machineID,
		Status:    investment.StatusActive,
	})
	if err != nil {
		return nil, err
	}
	if len(stakes) == 0 {
		return nil, nil
	}

	salesList, err := s.sales.ListSales(ctx, storage.SaleFilter{
		MachineID: machineID, From: periodStart, To: periodEnd,
	})
	if err != nil {
		return nil, err
	}
	var revenue float64
	for _, sl := range salesList {
		revenue += sl.TotalAmount
	}

	var expenses float64
	if s.finance != nil {
		expenses, err = s.finance.MachineExpenses(ctx, machineID, periodStart, periodEnd)
		if err != nil {
			return nil, err
		}
	}

	netProfit := revenue - expenses
	pool := netProfit * s.poolPercent / 100
	if pool <= 0 {
		s.log.WithField("machine_id", machineID).
			WithField("net_profit", netProfit).
			Info("no profit to distribute, skipping payouts")
		return nil, nil
	}

	payouts := make([]investment.Payout, 0, len(stakes))
	for _, stake := range stakes {
		amount := pool * stake.SharePercent / 100
		if amount <= 0 {
			continue
		}
		p := investment.Payout{
			InvestmentID:  stake.ID,
			PeriodStart:   periodStart,
			PeriodEnd:     periodEnd,
			TotalRevenue:  revenue,
			TotalExpenses: expenses,
			NetProfit:     netProfit,
			Rate:          stake.SharePercent,
			Amount:        amount,
			Status:        investment.PayoutScheduled,
			ScheduledDate: periodEnd.AddDate(0, 0, 7),
		}
		created, err := s.store.CreatePayout(ctx, p)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, created)
	}

	s.log.WithField("machine_id", machineID).
		WithField("period_start", periodStart.Format("2006-01-02")).
		WithField("net_profit", netProfit).
		WithField("payouts", len(payouts)).
		Info("payouts computed")
	return payouts, nil
}

// MarkPaid settles a payout and books the expense transaction.
func (s *Service) MarkPaid(ctx context.Context, payoutID, accountCode, reference string) (investment.Payout, error) {
	p, err := s.store.GetPayout(ctx, payoutID)
	if err != nil {
		return investment.Payout{}, err
	}
	if p.Status != investment.PayoutScheduled && p.Status != investment.PayoutProcessing {
		return investment.Payout{}, fmt.Errorf("cannot pay payout in status %q", p.Status)
	}

	if s.finance != nil && p.Amount > 0 {
		account, err := s.finance.ListAccounts(ctx)
		if err != nil {
			return investment.Payout{}, err
		}
		var accountID string
		for _, a := range account {
			if a.Code == accountCode {
				accountID = a.ID
				break
			}
		}
		if accountID == "" {
			return investment.Payout{}, fmt.Errorf("account %q not found", accountCode)
		}
		_, err = s.finance.Post(ctx, domainfin.Transaction{
			Type:          domainfin.TypeExpense,
			Category:      domainfin.CategoryPayout,
			FromAccountID: accountID,
			Amount:        p.Amount,
			Description:   "investor payout " + p.ID,
			ReferenceType: "payout",
			ReferenceID:   p.ID,
		})
		if err != nil {
			return investment.Payout{}, err
		}
	}

	p.Status = investment.PayoutPaid
	p.PaidAt = time.Now().UTC()
	p.Reference = reference
	updated, err := s.store.UpdatePayout(ctx, p)
	if err != nil {
		return investment.Payout{}, err
	}
	s.log.WithField("payout_id", payoutID).
		WithField("amount", p.Amount).
		Info("payout paid")
	return updated, nil
}

// ListPayouts lists payouts matching the filter.
func (s *Service) ListPayouts(ctx context.Context, filter storage.PayoutFilter) ([]investment.Payout, error) {
	return s.store.ListPayouts(ctx, filter)
}

func (s *Service) allocatedShare(ctx context.Context, machineID, excludeID string) (float64, error) {
	active, err := s.store.ListInvestments(ctx, storage.InvestmentFilter{
		MachineID: machineID,
		Status:    investment.StatusActive,
	})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, inv := range active {
		if inv.ID == excludeID {
			continue
		}
		total += inv.SharePercent
	}
	return total, nil
}
