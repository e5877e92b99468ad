package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %v, want 15m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("RefreshTokenTTL = %v, want 720h", cfg.Auth.RefreshTokenTTL)
	}
	if !cfg.Scheduler.Enabled {
		t.Fatal("Scheduler.Enabled = false, want true by default")
	}
	if cfg.Payouts.PoolPercent != 70 {
		t.Fatalf("PoolPercent = %v, want 70", cfg.Payouts.PoolPercent)
	}
	if cfg.Scheduler.ReconcileSpec != "30 2 * * *" {
		t.Fatalf("ReconcileSpec = %q", cfg.Scheduler.ReconcileSpec)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("server:\n  addr: \":9090\"\nauth:\n  jwt_secret: file-secret\npayouts:\n  pool_percent: 55\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Fatalf("JWTSecret = %q, want file-secret", cfg.Auth.JWTSecret)
	}
	if cfg.Payouts.PoolPercent != 55 {
		t.Fatalf("PoolPercent = %v, want 55", cfg.Payouts.PoolPercent)
	}
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("server:\n  addr: \":9090\"\nauth:\n  jwt_secret: file-secret\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("AUTH_JWT_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("Addr = %q, want env value :7070", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("JWTSecret = %q, want env value", cfg.Auth.JWTSecret)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load(missing file) succeeded, want error")
	}
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() without secret succeeded, want error")
	}
	cfg.Auth.JWTSecret = "s"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateBotRequiresToken(t *testing.T) {
	var cfg Config
	cfg.Auth.JWTSecret = "s"
	if err := cfg.ValidateBot(); err == nil {
		t.Fatal("ValidateBot() without bot token succeeded, want error")
	}
	cfg.Telegram.BotToken = "123:abc"
	if err := cfg.ValidateBot(); err != nil {
		t.Fatalf("ValidateBot() error = %v", err)
	}
	cfg.Auth.JWTSecret = ""
	if err := cfg.ValidateBot(); err == nil {
		t.Fatal("ValidateBot() without jwt secret succeeded, want error")
	}
}
