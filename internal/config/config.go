// Package config loads service configuration from an optional YAML
// file overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration for the API server and the bot.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Payouts   PayoutConfig    `yaml:"payouts"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"SERVER_RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"SERVER_RATE_LIMIT_BURST"`
	CORSOrigins     string        `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
}

// DatabaseConfig selects the persistence backend. With an empty DSN
// the application runs on in-memory stores.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// RedisConfig selects the session and bot state backend. With an
// empty address both fall back to process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// AuthConfig tunes token issuing.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"AUTH_REFRESH_TOKEN_TTL"`
}

// TelegramConfig configures the bot.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	Debug    bool   `yaml:"debug" env:"TELEGRAM_DEBUG"`
}

// SchedulerConfig sets the recurring job schedules.
type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
	ReconcileSpec string `yaml:"reconcile_spec" env:"SCHEDULER_RECONCILE_SPEC"`
	PayoutSpec    string `yaml:"payout_spec" env:"SCHEDULER_PAYOUT_SPEC"`
}

// PayoutConfig tunes investor profit distribution.
type PayoutConfig struct {
	PoolPercent float64 `yaml:"pool_percent" env:"PAYOUT_POOL_PERCENT"`
}

// Load reads the optional YAML file at path, applies environment
// variables on top, then fills remaining zero values with defaults.
// Environment always wins over the file.
func Load(path string) (Config, error) {
	cfg := Config{Scheduler: SchedulerConfig{Enabled: true}}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.RateLimitRPS <= 0 {
		c.Server.RateLimitRPS = 20
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 40
	}
	if c.Server.CORSOrigins == "" {
		c.Server.CORSOrigins = "*"
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Scheduler.ReconcileSpec == "" {
		c.Scheduler.ReconcileSpec = "30 2 * * *"
	}
	if c.Scheduler.PayoutSpec == "" {
		c.Scheduler.PayoutSpec = "0 4 1 * *"
	}
	if c.Payouts.PoolPercent <= 0 || c.Payouts.PoolPercent > 100 {
		c.Payouts.PoolPercent = 70
	}
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	return nil
}

// ValidateBot additionally checks the settings only the bot needs.
func (c Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
