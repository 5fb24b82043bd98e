// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

// Package store provides database connection and schema management.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions controls how Connect waits for the database.
type ConnectOptions struct {
	// MaxAttempts bounds the number of ping attempts. Zero means one attempt.
	MaxAttempts uint64
	// InitialBackoff is the first delay between attempts; it doubles each retry.
	InitialBackoff time.Duration
	// MaxConns caps the pool size when positive.
	MaxConns int32
}

// DefaultConnectOptions returns the options used by the serve command.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxAttempts:    6,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Connect opens a pgx pool for databaseURL and pings it, retrying with
// exponential backoff while the database is still starting up.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.NewExponential(max(opts.InitialBackoff, time.Millisecond))
	backoff = retry.WithMaxRetries(max(opts.MaxAttempts, 1)-1, backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}

	return pool, nil
}
