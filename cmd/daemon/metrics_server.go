package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runMetricsServer exposes the Prometheus scrape endpoint until the
// context is canceled.
//
// Endpoints:
//   - GET /metrics - Prometheus metrics (scraped by the Prometheus server)
func runMetricsServer(ctx context.Context, logger *slog.Logger, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info("metrics server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Error("metrics server failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
