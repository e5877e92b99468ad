// Command vendops-bot runs the Telegram frontend against the same
// database as the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/vendnet/vendops/internal/app"
	authsvc "github.com/vendnet/vendops/internal/app/services/auth"
	"github.com/vendnet/vendops/internal/app/storage/postgres"
	"github.com/vendnet/vendops/internal/bot"
	"github.com/vendnet/vendops/internal/config"
	"github.com/vendnet/vendops/internal/database"
	"github.com/vendnet/vendops/pkg/logger"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "vendops-bot:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}
	log := logger.New("vendops-bot", cfg.LogLevel)

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	store := postgres.New(db)

	var state bot.StateStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		defer client.Close()
		state = bot.NewRedisStateStore(client)
	} else {
		state = bot.NewMemoryStateStore()
		log.Warn("no redis configured, conversation state is in-memory")
	}

	// The bot runs no background jobs; the API server owns those.
	application, err := app.New(app.Stores{
		Users:       store,
		Machines:    store,
		Catalog:     store,
		Inventory:   store,
		Tasks:       store,
		Sales:       store,
		Finance:     store,
		Investments: store,
		Audit:       store,
	}, app.Options{
		Auth: authsvc.Config{
			JWTSecret: cfg.Auth.JWTSecret,
			BotToken:  cfg.Telegram.BotToken,
		},
	}, log)
	if err != nil {
		return err
	}

	b, err := bot.New(cfg.Telegram.BotToken, application, store, state, cfg.Telegram.Debug, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("bot polling for updates")
	return b.Run(ctx)
}
