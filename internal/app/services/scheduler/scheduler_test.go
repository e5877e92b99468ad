package scheduler

import (
	"testing"

	"github.com/vendnet/vendops/pkg/logger"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.ReconcileSpec != "30 2 * * *" {
		t.Fatalf("ReconcileSpec = %q", cfg.ReconcileSpec)
	}
	if cfg.PayoutSpec != "0 4 1 * *" {
		t.Fatalf("PayoutSpec = %q", cfg.PayoutSpec)
	}

	custom := Config{ReconcileSpec: "0 3 * * *"}.withDefaults()
	if custom.ReconcileSpec != "0 3 * * *" {
		t.Fatalf("custom ReconcileSpec overwritten: %q", custom.ReconcileSpec)
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New(Config{ReconcileSpec: "not a cron spec"}, nil, nil, nil, logger.NewNop())
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() accepted an invalid cron spec")
	}
}

func TestStartAndStop(t *testing.T) {
	s := New(Config{}, nil, nil, nil, logger.NewNop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
