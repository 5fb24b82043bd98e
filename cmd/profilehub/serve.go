// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/profilehub/profilehub/internal/auth"
	"github.com/profilehub/profilehub/internal/config"
	"github.com/profilehub/profilehub/internal/observability"
	"github.com/profilehub/profilehub/internal/web"
	"github.com/profilehub/profilehub/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of both servers.
const shutdownTimeout = 10 * time.Second

// serveConfig holds options of the serve command that are not configuration.
type serveConfig struct {
	migrate bool
	// onReady is called with the listening addresses once both servers run.
	onReady func(webAddr, metricsAddr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveConfig{})
}

func newServeCmd(cfg *serveConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the ProfileHub web server and, unless metrics.addr is empty, the
metrics and health server. SIGINT and SIGTERM shut both down gracefully.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().String("addr", "", "web listen address (default from config: 127.0.0.1:3000)")
	cmd.Flags().String("metrics-addr", "", "metrics/health listen address (empty config value disables)")
	cmd.Flags().Bool("production", false, "redirect to HTTPS and mark cookies Secure")
	cmd.Flags().BoolVar(&cfg.migrate, "migrate", false, "apply pending PostgreSQL migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *serveConfig) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cmd, cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		errutil.LogError(logger, "invalid configuration", err)
		return err
	}

	if opts.migrate {
		if cfg.Database.Driver != config.DriverPostgres {
			logger.Info("skipping migrations: the sqlite schema is created on open")
		} else if err := applyMigrations(cfg.Database.URL); err != nil {
			errutil.LogError(logger, "migrations failed", err)
			return err
		}
	}

	users, err := openUserStore(ctx, cfg)
	if err != nil {
		errutil.LogError(logger, "opening user store failed", err)
		return err
	}
	defer users.Close()

	svc, err := newAuthService(cfg, users, logger)
	if err != nil {
		return err
	}
	identity, err := auth.NewIdentitySerializer(users)
	if err != nil {
		return err
	}
	sessions, err := web.NewSessionManager([]byte(cfg.Session.Secret), cfg.Session.TTL, cfg.HTTP.Production)
	if err != nil {
		return err
	}

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	site, err := web.NewServer(svc, identity, sessions, web.Options{
		Addr:              cfg.HTTP.Addr,
		Production:        cfg.HTTP.Production,
		StaticDir:         cfg.HTTP.StaticDir,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		Logger:            logger,
		Metrics:           metrics,
	})
	if err != nil {
		return err
	}

	webErrCh, err := site.Start()
	if err != nil {
		errutil.LogError(logger, "starting web server failed", err)
		return err
	}

	var obsServer *observability.Server
	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, registry, users.Ping)
		obsErrCh, err = obsServer.Start()
		if err != nil {
			stopServers(logger, site, nil)
			errutil.LogError(logger, "starting observability server failed", err)
			return err
		}
	}

	if opts.onReady != nil {
		metricsAddr := ""
		if obsServer != nil {
			metricsAddr = obsServer.Addr()
		}
		opts.onReady(site.Addr(), metricsAddr)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-webErrCh:
		if ok && err != nil {
			serveErr = oops.Code("WEB_SERVE_FAILED").Wrap(err)
		}
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			serveErr = oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
		}
	}

	stopServers(logger, site, obsServer)
	return serveErr
}

// stopServers shuts down the web server and, if running, the
// observability server.
func stopServers(logger *slog.Logger, site *web.Server, obs *observability.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := site.Stop(ctx); err != nil {
		errutil.LogError(logger, "web server shutdown failed", err)
	}
	if obs != nil {
		if err := obs.Stop(ctx); err != nil {
			errutil.LogError(logger, "observability server shutdown failed", err)
		}
	}
}
