// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/config"
	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/logging"
	"github.com/driftwood-mud/driftwood/internal/observability"
	"github.com/driftwood-mud/driftwood/internal/store"
	"github.com/driftwood-mud/driftwood/internal/web"
	"github.com/driftwood-mud/driftwood/internal/world"
	"github.com/driftwood-mud/driftwood/internal/world/postgres"
	"github.com/driftwood-mud/driftwood/internal/xdg"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Driftwood server",
		Long: `Start the Driftwood daemon: the world database, the MOO task
engine and the HTTP/WebSocket/SSE/WebRTC gateway, all in one process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// loadConfig resolves the config file path and loads configuration.
// Without --config, the XDG default file is used when it exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		if def := xdg.DefaultConfigFile(); fileExists(def) {
			path = def
		}
	}
	return config.Load(path, cmd.Flags())
}

// app is the assembled server: everything behind the gateway handler
// plus whatever must be torn down at exit.
type app struct {
	handler  http.Handler
	registry *prometheus.Registry
	engine   *core.Engine
	cleanup  func()
}

// buildApp assembles the world store, engine, auth service and gateway.
// With a database URL the world is durable and migrations are applied
// first; without one everything lives in memory and dies with the
// process.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	var (
		worldStore world.Store
		eventLog   core.EventLog
		sessions   auth.SessionRepository
		cleanup    = func() {}
	)

	if cfg.DatabaseURL != "" {
		if err := autoMigrate(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}

		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		worldStore = postgres.NewStore(pool)
		eventLog = store.NewPostgresEventLog(pool)
		sessions = store.NewPostgresSessionRepo(pool)
		cleanup = pool.Close
		logger.Info("connected to database")
	} else {
		logger.Warn("no database_url configured, world is in-memory and will not survive restart")
		worldStore = world.NewMemStore()
		eventLog = core.NewMemoryEventLog()
		sessions = auth.NewMemorySessionRepo()
	}

	svc := world.NewService(worldStore)
	engine := core.NewEngine(svc, eventLog)
	authSvc := auth.NewService(svc, sessions, auth.NewArgon2idHasher(), auth.NewLoginLimiter())

	registry := prometheus.NewRegistry()
	srv := web.NewServer(engine, authSvc, logger, registry)

	return &app{
		handler:  srv.Handler(),
		registry: registry,
		engine:   engine,
		cleanup:  cleanup,
	}, nil
}

// autoMigrate brings the schema up to date before the pool opens.
func autoMigrate(databaseURL string, logger *slog.Logger) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Debug("error closing migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("database schema up to date")
		return nil
	}

	logger.Info("applying migrations", "pending", len(pending))
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	logger.Info("migrations applied", "count", len(pending))
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.SetupLevel("driftwood", version, cfg.LogFormat, level, nil)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.cleanup()

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Listen).Wrap(err)
	}

	httpSrv := &http.Server{
		Handler:           application.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the observability listener first so readiness flips only
	// after the game listener is bound.
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, application.registry, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			_ = listener.Close()
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Driftwood server started")
	logger.Info("server ready", "listen", listener.Addr().String(), "metrics_addr", cfg.MetricsAddr)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr := <-errChan:
		return oops.Code("SERVE_FAILED").Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down gateway", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// fileExists returns true if the file exists, false otherwise.
// Permission errors are treated as "file exists" to avoid silently
// ignoring files we can't read.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
