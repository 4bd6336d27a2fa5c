package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lakehttp "github.com/fyrsmithlabs/lakesync/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and worker pool",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring dependencies: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	a.pool.Start(ctx)
	defer func() {
		if err := a.pool.Stop(); err != nil {
			logger.Warn("worker pool did not stop cleanly", zap.Error(err))
		}
	}()

	srv, err := lakehttp.NewServer(lakehttp.Deps{
		Auth:            a.auth,
		Retriever:       a.retriever,
		Generator:       a.generator,
		Executor:        a.executor,
		Registry:        a.registry,
		Queue:           a.queue,
		Scrubber:        a.scrubber,
		ConfiguredRoots: cfg.DiscoveryRoots(),
	}, logger, &lakehttp.Config{Port: cfg.Server.Port})
	if err != nil {
		return fmt.Errorf("constructing http server: %w", err)
	}

	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("starting lakesync",
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", cfg.Transform.WorkerThreads),
		zap.Int("queue_capacity", a.queue.Capacity()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("lakesync shutdown complete")
	return nil
}
