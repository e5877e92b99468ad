// Package scheduler runs the recurring jobs: nightly payment
// reconciliation and monthly investor payout computation.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vendnet/vendops/internal/app/services/investments"
	"github.com/vendnet/vendops/internal/app/services/sales"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// Config sets the job schedules in cron syntax.
type Config struct {
	ReconcileSpec string
	PayoutSpec    string
}

func (c Config) withDefaults() Config {
	if c.ReconcileSpec == "" {
		c.ReconcileSpec = "30 2 * * *"
	}
	if c.PayoutSpec == "" {
		c.PayoutSpec = "0 4 1 * *"
	}
	return c
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cfg         Config
	cron        *cron.Cron
	sales       *sales.Service
	investments *investments.Service
	machines    storage.MachineStore
	log         *logger.Logger
}

// New constructs a scheduler.
func New(cfg Config, salesSvc *sales.Service, invSvc *investments.Service, machines storage.MachineStore, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	return &Scheduler{
		cfg:         cfg.withDefaults(),
		cron:        cron.New(),
		sales:       salesSvc,
		investments: invSvc,
		machines:    machines,
		log:         log,
	}
}

// Start registers the jobs and launches the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReconcileSpec, s.runReconciliation); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.PayoutSpec, s.runPayouts); err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("reconcile_spec", s.cfg.ReconcileSpec).
		WithField("payout_spec", s.cfg.PayoutSpec).
		Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// runReconciliation reconciles the previous calendar day.
func (s *Scheduler) runReconciliation() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	to := now.Truncate(24 * time.Hour)
	from := to.Add(-24 * time.Hour)

	report, err := s.sales.Reconcile(ctx, from, to)
	if err != nil {
		s.log.WithError(err).Error("scheduled reconciliation failed")
		return
	}
	s.log.WithField("matched", report.Matched).
		WithField("discrepancies", len(report.Discrepancies)).
		Info("scheduled reconciliation done")
}

// runPayouts computes payouts for every machine over the previous
// calendar month.
func (s *Scheduler) runPayouts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodStart := monthStart.AddDate(0, -1, 0)

	machines, err := s.machines.ListMachines(ctx, storage.MachineFilter{})
	if err != nil {
		s.log.WithError(err).Error("machine listing failed for payout run")
		return
	}
	total := 0
	for _, m := range machines {
		payouts, err := s.investments.ComputePayouts(ctx, m.ID, periodStart, monthStart)
		if err != nil {
			s.log.WithError(err).
				WithField("machine_id", m.ID).
				Error("payout computation failed")
			continue
		}
		total += len(payouts)
	}
	s.log.WithField("period_start", periodStart.Format("2006-01-02")).
		WithField("payouts", total).
		Info("scheduled payout run done")
}
