package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/allisson/fleetvault/internal/app"
	"github.com/allisson/fleetvault/internal/config"
)

// RunServer starts the API server, the metrics server and, when enabled, the SIEM
// forwarder. The audit chain is loaded in the background; /ready reports not ready
// until it is. Blocks until SIGINT/SIGTERM or a fatal error, then shuts down within
// DBConnMaxLifetime.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.String("db_driver", cfg.DBDriver),
	)

	defer closeContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	chain, err := container.AuditChain()
	if err != nil {
		return fmt.Errorf("failed to initialize audit chain: %w", err)
	}

	var chainLoaded atomic.Bool
	server.SetReadinessCheck(chainLoaded.Load)

	serverErr := make(chan error, 4)

	go func() {
		if err := chain.Load(ctx); err != nil {
			serverErr <- fmt.Errorf("audit chain load: %w", err)
			return
		}
		chainLoaded.Store(true)
		logger.Info("audit chain loaded", slog.Uint64("length", chain.Length()))

		if !cfg.ForwarderEnabled {
			return
		}
		forwarder, err := container.Forwarder()
		if err != nil {
			serverErr <- fmt.Errorf("failed to initialize forwarder: %w", err)
			return
		}
		if err := forwarder.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErr <- fmt.Errorf("forwarder error: %w", err)
		}
	}()

	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	var shutdownErrors []error

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownErrors = append(shutdownErrors, err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}
