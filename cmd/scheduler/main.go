package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadbot_backend/internal/adapters"
	leadrepo "leadbot_backend/internal/leads/repository"
	"leadbot_backend/internal/scheduler"
	"leadbot_backend/platform/config"
	"leadbot_backend/platform/db"
	"leadbot_backend/platform/logger"
	"leadbot_backend/platform/retry"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := retry.Value(ctx, log, "database connection", retry.Startup, func(ctx context.Context) (*pgxpool.Pool, error) {
		return db.NewPool(ctx, cfg)
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := leadrepo.New(pool)

	cleanup := scheduler.NewPartialLeadCleanup(repo, log, cfg.GetPartialCleanupInterval(), cfg.GetPartialRetention())
	go cleanup.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, adapters.NewConversationLeadStore(repo), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	if err := worker.Run(ctx); err != nil {
		log.Error("scheduler worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}
