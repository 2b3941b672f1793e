// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection and schema of the engine.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolOptions tune the connection pool and the startup retry loop.
type PoolOptions struct {
	MaxConns       int32
	MinConns       int32
	ConnectRetries uint64
	RetryBase      time.Duration
	PingTimeout    time.Duration
}

// DefaultPoolOptions returns the options used when none are configured.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		ConnectRetries: 5,
		RetryBase:      500 * time.Millisecond,
		PingTimeout:    3 * time.Second,
	}
}

// pinger is the part of *pgxpool.Pool Connect needs to check liveness.
type pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pool for dsn and waits until the database answers,
// backing off exponentially while it is still starting.
func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_POOL_FAILED").Wrap(err)
	}
	if err := waitReady(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitReady(ctx context.Context, db pinger, opts PoolOptions) error {
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultPoolOptions().RetryBase
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultPoolOptions().PingTimeout
	}
	backoff := retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(opts.RetryBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_UNREACHABLE").With("attempts", attempt).Wrap(err)
	}
	return nil
}
