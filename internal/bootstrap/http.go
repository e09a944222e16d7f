package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpx "github.com/target/mmk-sso/internal/http"
)

const shutdownWaitTimeout = 10 * time.Second

// StartHTTPServer creates and starts the HTTP server in the background.
// Serve errors other than a clean shutdown are sent on errCh.
func StartHTTPServer(logger *slog.Logger, handler http.Handler, addr string, errCh chan<- error) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			if errCh != nil {
				errCh <- err
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Pages   *httpx.PageRegistry
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server and detaches every live page.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, shutdownWaitTimeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if cfg.Pages != nil {
		cfg.Pages.Purge()
	}

	logger.Info("HTTP server stopped")
	return nil
}

// RunConfig contains what RunWithShutdown serves.
type RunConfig struct {
	Addr      string
	Satellite *Satellite
	Logger    *slog.Logger
}

// RunWithShutdown serves the satellite until ctx is cancelled, a termination
// signal arrives, or the server fails.
func RunWithShutdown(ctx context.Context, cfg RunConfig) error {
	if cfg.Satellite == nil {
		return errors.New("satellite is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(logger, cfg.Satellite.Handler, cfg.Addr, errCh)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down satellite...")
	case serveErr = <-errCh:
		logger.Error("service error", "error", serveErr)
	}

	stopErr := ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  server,
		Pages:   cfg.Satellite.Pages,
		Logger:  logger,
	})
	return errors.Join(serveErr, stopErr)
}
