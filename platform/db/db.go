// Package db opens the postgres pool and applies the embedded migrations.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadbot_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "leadbot"

// Pool defaults. pool_max_conns and friends in DATABASE_URL take precedence.
const (
	defaultMaxConns        = 20
	defaultMinConns        = 2
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = 30 * time.Minute
)

// NewPool opens a pool and verifies it with a ping. Conversation writes are
// short single-row statements, and whatsmeow's device store shares the pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := cfg.GetDatabaseURL()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	applyDefaults(poolConfig, dsn)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func applyDefaults(pc *pgxpool.Config, dsn string) {
	if !strings.Contains(dsn, "pool_max_conns") {
		pc.MaxConns = defaultMaxConns
	}
	if !strings.Contains(dsn, "pool_min_conns") {
		pc.MinConns = defaultMinConns
	}
	if !strings.Contains(dsn, "pool_max_conn_lifetime") {
		pc.MaxConnLifetime = defaultMaxConnLifetime
	}
	if !strings.Contains(dsn, "pool_max_conn_idle_time") {
		pc.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
}
