// Command vendopsd runs the vending network API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/vendnet/vendops/internal/app"
	"github.com/vendnet/vendops/internal/app/httpapi"
	"github.com/vendnet/vendops/internal/app/metrics"
	authsvc "github.com/vendnet/vendops/internal/app/services/auth"
	"github.com/vendnet/vendops/internal/app/services/scheduler"
	"github.com/vendnet/vendops/internal/app/storage/postgres"
	"github.com/vendnet/vendops/internal/config"
	"github.com/vendnet/vendops/internal/database"
	"github.com/vendnet/vendops/internal/session"
	"github.com/vendnet/vendops/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vendopsd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// A missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New("vendopsd", cfg.LogLevel)

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}
	store := postgres.New(db)

	var sessions session.Store
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
		sessions = session.NewRedis(client)
		log.WithField("addr", cfg.Redis.Addr).Info("sessions backed by redis")
	} else {
		sessions = session.NewMemory()
		log.Warn("no redis configured, sessions are in-memory")
	}

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
			JWTSecret:       cfg.Auth.JWTSecret,
			AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
			BotToken:        cfg.Telegram.BotToken,
		},
		Sessions: sessions,
		Scheduler: scheduler.Config{
			ReconcileSpec: cfg.Scheduler.ReconcileSpec,
			PayoutSpec:    cfg.Scheduler.PayoutSpec,
		},
		PoolPercent: cfg.Payouts.PoolPercent,
		RunJobs:     cfg.Scheduler.Enabled,
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return err
	}
	defer application.Stop()

	api := httpapi.New(application, httpapi.Config{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}, log)

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", metrics.InstrumentHandler(api))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
