// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/auth/memory"
	"github.com/holomush/authengine/internal/auth/postgres"
	"github.com/holomush/authengine/internal/config"
	"github.com/holomush/authengine/internal/httpapi"
	"github.com/holomush/authengine/internal/observability"
	"github.com/holomush/authengine/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the maintenance sweeper",
		Long: `Serve the credential endpoints over HTTP, sweep expired records in
the background and expose metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

func poolOptions(cfg config.DatabaseConfig) store.PoolOptions {
	opts := store.DefaultPoolOptions()
	opts.MaxConns = cfg.MaxConns
	opts.MinConns = cfg.MinConns
	opts.ConnectRetries = cfg.ConnectRetries
	return opts
}

// openStore opens the configured credential store. The returned close
// function releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories, observability.ReadinessChecker, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using the in-memory credential store; all data is lost on exit")
		return memoryRepositories(memory.New()), func() bool { return true }, func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			return repositories{}, nil, nil, err
		}
	}
	pool, err := store.Connect(ctx, cfg.Database.URL, poolOptions(cfg.Database))
	if err != nil {
		return repositories{}, nil, nil, err
	}
	return postgresRepositories(postgres.New(pool)), readiness(pool), pool.Close, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repos, ready, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ledger, closeLedger, err := openLedger(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLedger(); err != nil {
			logger.Warn("error closing redis client", "error", err)
		}
	}()

	a, err := buildApp(cfg, repos, ledger, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, ready, auth.RegisterMetrics)
		metrics = obsServer.Metrics()
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("server", "observability").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	router, err := httpapi.New(httpapi.Deps{
		Authenticator: a.authenticator,
		Sessions:      a.sessions,
		Confirmations: a.confirmations,
		Codec:         a.codec,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		stopServer(obsServer, cfg.Server.ShutdownTimeout)
		return oops.Code("SERVE_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	httpErrCh := make(chan error, 1)
	go func() {
		defer close(httpErrCh)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			httpErrCh <- serveErr
		}
	}()
	go monitorServerErrors(ctx, cancel, httpErrCh, "http")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweeper.Run(ctx)
	}()

	logger.Info("authengine ready",
		"addr", listener.Addr().String(),
		"metrics_addr", cfg.Server.MetricsAddr,
		"store", cfg.Database.Driver,
		"redis_ledger", cfg.Redis.Enabled(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	stopServer(obsServer, cfg.Server.ShutdownTimeout)
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}

// readiness reports ready while the database answers a ping.
func readiness(pool *pgxpool.Pool) observability.ReadinessChecker {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx) == nil
	}
}

func stopServer(s *observability.Server, timeout time.Duration) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
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
