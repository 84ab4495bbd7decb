package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreweacott/nuheat-conductor/pkg/logger"
)

// StartServer serves handler on port until ctx is cancelled
func StartServer(ctx context.Context, port int, handler http.Handler, log *logger.Logger) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  65 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", server.Addr, "port", port)
		log.Info("Metrics endpoint available", "url", fmt.Sprintf("http://localhost:%d/metrics", port))
		log.Info("Health endpoint available", "url", fmt.Sprintf("http://localhost:%d/health", port))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for context cancellation or server error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		// Graceful shutdown
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}

		log.Info("HTTP server stopped")
		return nil
	}
}

// SetupGracefulShutdown sets up signal handlers for graceful shutdown
// Returns a context that is cancelled on interrupt or termination signal
func SetupGracefulShutdown(log *logger.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("Received signal", "signal", sig.String())
		cancel()
	}()

	return ctx
}
