// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/katarogu/katarogu/internal/config"
	"github.com/katarogu/katarogu/internal/observability"
	"github.com/katarogu/katarogu/internal/store"
	"github.com/katarogu/katarogu/internal/web"
)

const readinessTimeout = 2 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the auth HTTP server, the metrics endpoint and the expired
session sweeper until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, logger)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("addr", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics and health listen address (empty to disable)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	connectCfg := cfg.ConnectConfig()
	connectCfg.Logger = logger
	pool, err := store.Connect(ctx, cfg.Database.URL, connectCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	a, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("failed to close clients", "error", closeErr)
		}
	}()

	handlerOpts := []web.Option{
		web.WithLogger(logger),
		web.WithRequestTimeout(cfg.Server.RequestTimeout),
	}

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServerWithLogger(cfg.Metrics.Addr, store.ReadinessCheck(pool, readinessTimeout), logger)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return startErr
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		handlerOpts = append(handlerOpts, web.WithMetrics(obsServer.Metrics()))
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	handler, err := web.NewHandler(a.actions, a.sessions, handlerOpts...)
	if err != nil {
		_ = stopServers(cfg, logger, nil, obsServer)
		return err
	}

	httpServer := web.NewServer(cfg.Server.Addr, handler, cfg.Server.ReadHeaderTimeout, logger)
	httpErrCh, err := httpServer.Start()
	if err != nil {
		_ = stopServers(cfg, logger, nil, obsServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, httpErrCh, "http", logger)

	if cfg.Session.SweepInterval > 0 {
		sweeper, sweepErr := a.newSweeper(cfg.Session.SweepInterval, logger)
		if sweepErr != nil {
			_ = stopServers(cfg, logger, httpServer, obsServer)
			return sweepErr
		}
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	cmd.Println("katarogu listening on " + httpServer.Addr())
	logger.Info("server ready",
		"addr", httpServer.Addr(),
		"development", cfg.Development,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := stopServers(cfg, logger, httpServer, obsServer); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// stopServers stops whichever servers are non-nil within the shutdown
// timeout. Only an HTTP drain failure is returned.
func stopServers(cfg *config.Config, logger *slog.Logger, httpServer *web.Server, obsServer *observability.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var err error
	if httpServer != nil {
		if stopErr := httpServer.Stop(shutdownCtx); stopErr != nil {
			logger.Warn("error stopping http server", "error", stopErr)
			err = stopErr
		}
	}
	if obsServer != nil {
		if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
			logger.Warn("error stopping observability server", "error", stopErr)
		}
	}
	return err
}

// monitorServerErrors cancels ctx when a server reports a serve error. It
// returns once the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
