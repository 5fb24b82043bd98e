// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/internal/auth/postgres"
	"github.com/profilehub/profilehub/internal/auth/sqlite"
	"github.com/profilehub/profilehub/internal/config"
	"github.com/profilehub/profilehub/internal/store"
)

// userStore is an opened auth.UserStore with its lifecycle hooks.
type userStore struct {
	auth.UserStore
	ping  func(ctx context.Context) error
	close func()
}

// Ping reports whether the backing database is reachable.
func (s *userStore) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the database handle.
func (s *userStore) Close() {
	s.close()
}

// openUserStore opens the store selected by cfg.Database.
func openUserStore(ctx context.Context, cfg *config.Config) (*userStore, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		opts := store.DefaultConnectOptions()
		if cfg.Database.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
			defer cancel()
		}
		pool, err := store.Connect(ctx, cfg.Database.URL, opts)
		if err != nil {
			return nil, oops.With("driver", config.DriverPostgres).Wrap(err)
		}
		slog.Info("connected to database", "driver", config.DriverPostgres)
		return &userStore{
			UserStore: postgres.NewUserStore(pool),
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil

	default:
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, oops.With("driver", config.DriverSQLite).Wrap(err)
		}
		users, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, oops.With("driver", config.DriverSQLite).Wrap(err)
		}
		slog.Info("opened database", "driver", config.DriverSQLite, "path", path)
		return &userStore{
			UserStore: users,
			ping:      users.Ping,
			close: func() {
				if err := users.Close(); err != nil {
					slog.Warn("closing database failed", "error", err)
				}
			},
		}, nil
	}
}

// newAuthService builds the account service for users from cfg.Auth.
func newAuthService(cfg *config.Config, users auth.UserStore, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Auth.Argon2.HasherParams())
	if err != nil {
		return nil, oops.With("key", "auth.argon2").Wrap(err)
	}
	return auth.NewServiceWithLogger(users, hasher, cfg.Auth.PasswordPolicy(), logger)
}
